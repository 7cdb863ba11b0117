package learning

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for learning runs.
type Metrics struct {
	Runs     *prometheus.CounterVec
	Duration prometheus.Histogram
	InFlight prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "learning_runs_total",
			Help: "Finished learning runs by outcome.",
		}, []string{"outcome"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "learning_run_duration_seconds",
			Help:    "Wall time of learning runs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "learning_runs_in_flight",
			Help: "1 while a learning run is active.",
		}),
	}
}

func (m *Metrics) started() {
	if m != nil {
		m.InFlight.Set(1)
	}
}

func (m *Metrics) finished(outcome State, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.InFlight.Set(0)
	m.Runs.WithLabelValues(string(outcome)).Inc()
	m.Duration.Observe(elapsed.Seconds())
}
