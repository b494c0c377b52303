package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the sync engine.
type Metrics struct {
	SnapshotsProcessed  prometheus.Counter
	EventsProcessed     prometheus.Counter
	EventsSkipped       prometheus.Counter
	EventsFailed        prometheus.Counter
	PlaceholdersCreated prometheus.Counter
	SnapshotDuration    prometheus.Histogram
}

// New creates and registers the sync metrics on the given registerer. Tests
// pass a fresh registry so engines can be built repeatedly.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SnapshotsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tapsync_snapshots_processed_total",
			Help: "Total number of feed snapshots processed",
		}),
		EventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tapsync_scan_events_processed_total",
			Help: "Total number of scan events upserted into the attendance log",
		}),
		EventsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "tapsync_scan_events_skipped_total",
			Help: "Total number of scan events skipped for missing tag identifiers",
		}),
		EventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tapsync_scan_events_failed_total",
			Help: "Total number of scan events whose upserts failed this cycle",
		}),
		PlaceholdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "tapsync_registry_placeholders_created_total",
			Help: "Total number of placeholder registry entries created for first-seen tags",
		}),
		SnapshotDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tapsync_snapshot_duration_seconds",
			Help:    "Wall time spent processing one feed snapshot",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}
