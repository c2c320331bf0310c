package notify

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muurk/wifiprov/internal/supervisor"
)

var allStates = []supervisor.State{
	supervisor.Idle,
	supervisor.AttemptingSaved,
	supervisor.Connected,
	supervisor.Recovering,
	supervisor.PortalActive,
}

// Metrics exports the supervisor state to Prometheus
type Metrics struct {
	registry    *prometheus.Registry
	state       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	retries     prometheus.Gauge
	status      StatusFunc
}

// NewMetrics registers the collectors on a private registry
func NewMetrics(status StatusFunc) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wifiprov_state",
				Help: "1 for the supervisor's current state, 0 otherwise",
			},
			[]string{"state"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wifiprov_transitions_total",
				Help: "supervisor state transitions",
			},
			[]string{"from", "to"},
		),
		retries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wifiprov_retry_count",
				Help: "failed reconnect cycles since the last successful connection",
			},
		),
		status: status,
	}
	m.registry.MustRegister(m.state, m.transitions, m.retries)
	m.setState(supervisor.Idle)
	return m
}

func (m *Metrics) setState(current supervisor.State) {
	for _, s := range allStates {
		v := 0.0
		if s == current {
			v = 1
		}
		m.state.WithLabelValues(s.String()).Set(v)
	}
}

// OnStateChange implements Notifier
func (m *Metrics) OnStateChange(from, to supervisor.State) {
	m.setState(to)
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	if m.status != nil {
		m.retries.Set(float64(m.status().RetryCount))
	}
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
