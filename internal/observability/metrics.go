package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

// Metrics holds the Prometheus collectors for the service. Each Metrics
// owns its registry so tests and multiple servers do not collide.
type Metrics struct {
	registry    *prometheus.Registry
	projections *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	renders     *prometheus.CounterVec
	horizon     prometheus.Histogram
	httpLatency *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		projections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ltv_projections_total",
			Help: "Projection requests by outcome.",
		}, []string{"outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ltv_validation_rejections_total",
			Help: "Validation rejections by input field.",
		}, []string{"field"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ltv_renders_total",
			Help: "Report renders by output format and status.",
		}, []string{"format", "status"}),
		horizon: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ltv_projection_horizon_periods",
			Help:    "Horizon length of accepted projections.",
			Buckets: []float64{6, 12, 24, 36, 60, 120, 240, 600, 1200},
		}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ltv_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.projections,
		m.rejections,
		m.renders,
		m.horizon,
		m.httpLatency,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveProjection(horizon int) {
	if m == nil {
		return
	}
	m.projections.WithLabelValues(OutcomeOK).Inc()
	m.horizon.Observe(float64(horizon))
}

func (m *Metrics) ObserveRejection(fields []string) {
	if m == nil {
		return
	}
	m.projections.WithLabelValues(OutcomeRejected).Inc()
	for _, f := range fields {
		m.rejections.WithLabelValues(f).Inc()
	}
}

func (m *Metrics) ObserveRender(format string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.renders.WithLabelValues(format, status).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
