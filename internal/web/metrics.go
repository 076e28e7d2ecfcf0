package web

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jholub/mactivity/internal/status"
)

// Metrics exposes refresh and timeline figures to Prometheus. Each Metrics
// owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	refreshTotal    prometheus.Counter
	refreshDuration prometheus.Histogram
	sourceErrors    *prometheus.CounterVec
	stateHours      *prometheus.GaugeVec
	currentState    *prometheus.GaugeVec
	efficiency      prometheus.Gauge
	billable        prometheus.Gauge
	eventCount      prometheus.Gauge
	wsClients       prometheus.Gauge
}

// NewMetrics builds and registers the metric set.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mactivity_refresh_total",
			Help: "Total count of refresh sweeps completed.",
		}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mactivity_refresh_duration_seconds",
			Help:    "Histogram of refresh sweep durations.",
			Buckets: prometheus.DefBuckets,
		}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mactivity_source_errors_total",
			Help: "Total collection failures by source.",
		}, []string{"source"}),
		stateHours: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mactivity_state_hours",
			Help: "Total hours per state type in the current timeline.",
		}, []string{"state"}),
		currentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mactivity_current_state",
			Help: "1 for the current state type, 0 for the rest.",
		}, []string{"state"}),
		efficiency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mactivity_efficiency_percent",
			Help: "Active share of active plus pause time, 0 to 100.",
		}),
		billable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mactivity_billable",
			Help: "Active hours times the configured hourly rate.",
		}),
		eventCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mactivity_event_count",
			Help: "Number of admitted events in the current window.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mactivity_websocket_clients",
			Help: "Connected WebSocket clients.",
		}),
	}

	m.registry.MustRegister(
		m.refreshTotal,
		m.refreshDuration,
		m.sourceErrors,
		m.stateHours,
		m.currentState,
		m.efficiency,
		m.billable,
		m.eventCount,
		m.wsClients,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// knownStates are the gauge label values kept at zero when absent, so
// dashboards never see a vanishing series.
var knownStates = []string{"active", "pause", "sleep", "shutdown", "maintenance", "unknown"}

// ObserveRefresh records the outcome of one refresh sweep.
func (m *Metrics) ObserveRefresh(snap status.Snapshot, took time.Duration) {
	m.refreshTotal.Inc()
	m.refreshDuration.Observe(took.Seconds())
	for name := range snap.SourceErrors {
		m.sourceErrors.WithLabelValues(name).Inc()
	}

	hours := map[string]float64{
		"active":      snap.Summary.ActiveHours,
		"pause":       snap.Summary.PauseHours,
		"sleep":       snap.Summary.SleepHours,
		"shutdown":    snap.Summary.ShutdownHours,
		"maintenance": snap.Summary.MaintenanceHours,
	}
	for _, s := range knownStates {
		m.stateHours.WithLabelValues(s).Set(hours[s])
		current := 0.0
		if string(snap.CurrentState) == s {
			current = 1
		}
		m.currentState.WithLabelValues(s).Set(current)
	}
	m.efficiency.Set(snap.Summary.EfficiencyPercent)
	m.billable.Set(snap.Summary.Billable)
	m.eventCount.Set(float64(snap.EventCount))
}

// SetWSClients records the current WebSocket client count.
func (m *Metrics) SetWSClients(n int) {
	m.wsClients.Set(float64(n))
}
