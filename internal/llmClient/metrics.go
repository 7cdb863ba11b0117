package llmclient

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts model calls.
//
//   - llm_calls_total{client,outcome}
//   - llm_call_duration_seconds{client}
type Metrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the model call metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Calls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_calls_total",
			Help: "Model calls by client and outcome.",
		}, []string{"client", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "Latency of model calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"client"}),
	}
}

// WithMetrics records each call on m. A nil m disables it.
func WithMetrics(m *Metrics) Middleware {
	return func(next Client) Client {
		if m == nil {
			return next
		}
		return &clientFunc{next: next, gen: func(ctx context.Context, req GenerateRequest) (string, error) {
			start := time.Now()
			out, err := next.Generate(ctx, req)
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			m.Calls.WithLabelValues(next.Name(), outcome).Inc()
			m.Duration.WithLabelValues(next.Name()).Observe(time.Since(start).Seconds())
			return out, err
		}}
	}
}
