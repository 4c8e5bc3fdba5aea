// Package metrics provides Prometheus metrics collection for the
// bridge-stats service: snapshot throughput, closed-position pairing,
// history fetch outcomes, and realtime channel health, exposed on the
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Snapshot pipeline
	SnapshotsReceived    prometheus.Counter   // Total snapshots reduced
	ClosedPositionsBuilt prometheus.Counter   // Total closed positions reconstructed
	UnpairedDealsDropped prometheus.Counter   // Deal groups dropped as unpairable
	ReduceDuration       prometheus.Histogram // Snapshot reduce latency

	// History pipeline
	HistoryFetches        prometheus.Counter   // Total equity history fetches
	HistoryFetchErrors    prometheus.Counter   // Failed equity history fetches
	StaleResponsesDropped prometheus.Counter   // Superseded history responses discarded
	NormalizeDuration     prometheus.Histogram // Series normalization latency

	// Realtime channel
	WSReconnects prometheus.Counter // Realtime channel reconnections

	// Derived state
	BalanceMT4    prometheus.Gauge // Aggregated mt4 balance from the latest snapshot
	BalanceMT5    prometheus.Gauge // Aggregated mt5 balance from the latest snapshot
	OpenPositions prometheus.Gauge // Open position count in the latest snapshot

	// System
	ErrorsTotal prometheus.Counter // Total errors encountered
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for
// testing, where the global registry would collide across tests).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		SnapshotsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "snapshots_received_total",
			Help: "Total number of realtime snapshots reduced",
		}),
		ClosedPositionsBuilt: factory.NewCounter(prometheus.CounterOpts{
			Name: "closed_positions_built_total",
			Help: "Total number of closed positions reconstructed from deal pairs",
		}),
		UnpairedDealsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "unpaired_deals_dropped_total",
			Help: "Total number of deal groups dropped because they could not be paired",
		}),
		ReduceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reduce_duration_seconds",
			Help:    "Snapshot reduce latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		HistoryFetches: factory.NewCounter(prometheus.CounterOpts{
			Name: "history_fetches_total",
			Help: "Total number of equity history fetches issued",
		}),
		HistoryFetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "history_fetch_errors_total",
			Help: "Total number of failed equity history fetches",
		}),
		StaleResponsesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "stale_responses_dropped_total",
			Help: "Total number of superseded history responses discarded",
		}),
		NormalizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "normalize_duration_seconds",
			Help:    "Series normalization latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		WSReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "ws_reconnects_total",
			Help: "Total number of realtime channel reconnections",
		}),
		BalanceMT4: factory.NewGauge(prometheus.GaugeOpts{
			Name: "balance_mt4",
			Help: "Aggregated mt4 balance from the latest snapshot",
		}),
		BalanceMT5: factory.NewGauge(prometheus.GaugeOpts{
			Name: "balance_mt5",
			Help: "Aggregated mt5 balance from the latest snapshot",
		}),
		OpenPositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "open_positions",
			Help: "Number of open positions in the latest snapshot",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}

// UpdateView refreshes the derived-state gauges after a snapshot is
// reduced.
func (m *Metrics) UpdateView(mt4, mt5 float64, openPositions int) {
	m.BalanceMT4.Set(mt4)
	m.BalanceMT5.Set(mt5)
	m.OpenPositions.Set(float64(openPositions))
}
