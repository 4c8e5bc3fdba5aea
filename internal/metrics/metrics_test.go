package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)

	if m.SnapshotsReceived == nil || m.ClosedPositionsBuilt == nil || m.ErrorsTotal == nil {
		t.Fatal("metrics not initialized")
	}

	m.SnapshotsReceived.Inc()
	if got := testutil.ToFloat64(m.SnapshotsReceived); got != 1 {
		t.Errorf("expected snapshots counter 1, got %f", got)
	}
}

func TestTrackerSnapshotReduced(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)
	tracker := NewTracker(m)

	tracker.SnapshotReduced(3, 1, 2*time.Millisecond)
	tracker.SnapshotReduced(2, 0, time.Millisecond)

	if got := testutil.ToFloat64(m.SnapshotsReceived); got != 2 {
		t.Errorf("expected 2 snapshots, got %f", got)
	}
	if got := testutil.ToFloat64(m.ClosedPositionsBuilt); got != 5 {
		t.Errorf("expected 5 closed positions, got %f", got)
	}
	if got := testutil.ToFloat64(m.UnpairedDealsDropped); got != 1 {
		t.Errorf("expected 1 dropped group, got %f", got)
	}
}

func TestTrackerHistoryObservations(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)
	tracker := NewTracker(m)

	tracker.HistoryFetchStarted()
	tracker.HistoryFetchStarted()
	tracker.HistoryFetchFailed()
	tracker.StaleResponseDropped()
	tracker.SeriesNormalized(time.Millisecond)

	if got := testutil.ToFloat64(m.HistoryFetches); got != 2 {
		t.Errorf("expected 2 fetches, got %f", got)
	}
	if got := testutil.ToFloat64(m.HistoryFetchErrors); got != 1 {
		t.Errorf("expected 1 fetch error, got %f", got)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal); got != 1 {
		t.Errorf("expected errors total 1, got %f", got)
	}
	if got := testutil.ToFloat64(m.StaleResponsesDropped); got != 1 {
		t.Errorf("expected 1 stale drop, got %f", got)
	}
}

func TestUpdateView(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)

	m.UpdateView(200, 1500, 3)

	if got := testutil.ToFloat64(m.BalanceMT4); got != 200 {
		t.Errorf("expected mt4 gauge 200, got %f", got)
	}
	if got := testutil.ToFloat64(m.BalanceMT5); got != 1500 {
		t.Errorf("expected mt5 gauge 1500, got %f", got)
	}
	if got := testutil.ToFloat64(m.OpenPositions); got != 3 {
		t.Errorf("expected open positions gauge 3, got %f", got)
	}
}
