// Package metrics exposes Prometheus collectors for monitoring runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	evaluations    *prometheus.CounterVec
	alerts         *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	ecosystemScore prometheus.Gauge
	runs           prometheus.Counter
}

// New registers the collectors on reg. A nil reg yields unregistered
// collectors, which is what tests and one-shot CLI runs use.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxyield_evaluations_total",
				Help: "Entity evaluations by component and outcome",
			},
			[]string{"component", "outcome"},
		),
		alerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxyield_alerts_total",
				Help: "Alerts raised by kind",
			},
			[]string{"kind"},
		),
		fetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taxyield_fetch_duration_seconds",
				Help:    "External data source fetch duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"source"},
		),
		ecosystemScore: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "taxyield_ecosystem_sustainability_score",
				Help: "Sustainability score of the most recent ecosystem run",
			},
		),
		runs: f.NewCounter(
			prometheus.CounterOpts{
				Name: "taxyield_ecosystem_runs_total",
				Help: "Completed ecosystem runs",
			},
		),
	}
}

func (m *Metrics) Evaluation(component, outcome string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(component, outcome).Inc()
}

func (m *Metrics) Alert(kind string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveFetch(source string, started time.Time) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
}

func (m *Metrics) EcosystemRun(score float64) {
	if m == nil {
		return
	}
	m.ecosystemScore.Set(score)
	m.runs.Inc()
}
