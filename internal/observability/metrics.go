package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// replay service.
type Metrics struct {
	SessionsStarted  *prometheus.CounterVec // label: mode
	SessionsStopped  prometheus.Counter
	StartFailures    prometheus.Counter
	ActiveSessions   prometheus.Gauge
	FramesComputed   prometheus.Counter
	ComputeDuration  prometheus.Histogram
	EventsSkipped    prometheus.Counter
	SmoothingUpdates prometheus.Counter

	// Ingestion and transport metrics.
	EventsConsumed   prometheus.Counter
	ConsumeErrors    prometheus.Counter
	CatalogSequences prometheus.Gauge
	RenderClients    prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SessionsStarted,
		m.SessionsStopped,
		m.StartFailures,
		m.ActiveSessions,
		m.FramesComputed,
		m.ComputeDuration,
		m.EventsSkipped,
		m.SmoothingUpdates,
		m.EventsConsumed,
		m.ConsumeErrors,
		m.CatalogSequences,
		m.RenderClients,
	)
	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_replay",
			Name:      "sessions_started_total",
			Help:      "Replay sessions started, by animation mode.",
		}, []string{"mode"}),
		SessionsStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_replay",
			Name:      "sessions_stopped_total",
			Help:      "Replay sessions fully torn down.",
		}),
		StartFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_replay",
			Name:      "session_start_failures_total",
			Help:      "Session start attempts rejected by validation.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_replay",
			Name:      "active_sessions",
			Help:      "1 when a replay session is active, 0 otherwise.",
		}),
		FramesComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_replay",
			Name:      "frames_computed_total",
			Help:      "Visual states computed across all sessions.",
		}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_replay",
			Name:      "state_compute_duration_seconds",
			Help:      "Duration of one mode-state computation.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		EventsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_replay",
			Name:      "events_skipped_total",
			Help:      "Events dropped for unparseable times or missing coordinates.",
		}),
		SmoothingUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_replay",
			Name:      "smoothing_updates_total",
			Help:      "Cosmetic sub-frame updates pushed between scrub ticks.",
		}),
		EventsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_replay",
			Name:      "events_consumed_total",
			Help:      "Hazard events read from the source topic.",
		}),
		ConsumeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_replay",
			Name:      "consume_errors_total",
			Help:      "Malformed payloads rejected during ingestion.",
		}),
		CatalogSequences: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_replay",
			Name:      "catalog_sequences",
			Help:      "Event sequences currently held in the catalog.",
		}),
		RenderClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_replay",
			Name:      "render_clients",
			Help:      "Connected websocket renderer clients.",
		}),
	}
}
