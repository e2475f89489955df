package middleware

import (
	"time"

	"github.com/broady/docgate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values of docgate_backend_calls_total.
const (
	OutcomeSuccess = "success"
	OutcomeStatus  = "error_status" // backend answered with an error status
	OutcomeError   = "error"        // the call itself failed
)

// Metrics holds the Prometheus collectors fed by Interceptor.
type Metrics struct {
	Calls     *prometheus.CounterVec
	Documents *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Active    *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// registers with prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgate_backend_calls_total",
				Help: "Total number of backend calls by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		Documents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgate_documents_total",
				Help: "Total number of input documents forwarded to the backend",
			},
			[]string{"endpoint"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docgate_backend_call_duration_seconds",
				Help:    "Duration of backend calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		Active: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "docgate_backend_calls_active",
				Help: "Number of backend calls in flight",
			},
			[]string{"endpoint"},
		),
	}
}

// Interceptor returns an interceptor that records every backend call.
func (m *Metrics) Interceptor() docgate.UnaryInterceptor {
	return func(ctx docgate.Context, req *docgate.Request, next docgate.CallFunc) (*docgate.Response, error) {
		endpoint := ctx.Endpoint()
		active := m.Active.WithLabelValues(endpoint)
		active.Inc()
		defer active.Dec()

		m.Documents.WithLabelValues(endpoint).Add(float64(len(req.Docs)))

		start := time.Now()
		res, err := next(ctx, req)
		m.Duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

		outcome := OutcomeSuccess
		switch {
		case err != nil || res == nil:
			outcome = OutcomeError
		case !res.OK():
			outcome = OutcomeStatus
		}
		m.Calls.WithLabelValues(endpoint, outcome).Inc()

		return res, err
	}
}
