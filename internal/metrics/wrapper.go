package metrics

import "time"

// Tracker adapts Metrics to the small observer interfaces the stats and
// history packages accept, so those packages never import prometheus.
type Tracker struct {
	m *Metrics
}

func NewTracker(m *Metrics) *Tracker {
	return &Tracker{m: m}
}

// SnapshotReduced implements stats.Tracker.
func (t *Tracker) SnapshotReduced(closed, dropped int, took time.Duration) {
	t.m.SnapshotsReceived.Inc()
	t.m.ClosedPositionsBuilt.Add(float64(closed))
	t.m.UnpairedDealsDropped.Add(float64(dropped))
	t.m.ReduceDuration.Observe(took.Seconds())
}

// The following implement history.Tracker.

func (t *Tracker) HistoryFetchStarted() {
	t.m.HistoryFetches.Inc()
}

func (t *Tracker) HistoryFetchFailed() {
	t.m.HistoryFetchErrors.Inc()
	t.m.ErrorsTotal.Inc()
}

func (t *Tracker) StaleResponseDropped() {
	t.m.StaleResponsesDropped.Inc()
}

func (t *Tracker) SeriesNormalized(took time.Duration) {
	t.m.NormalizeDuration.Observe(took.Seconds())
}
