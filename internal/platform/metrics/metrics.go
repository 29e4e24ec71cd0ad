package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	// Computed recommendations by catalog kind and status
	Recommendations *prometheus.CounterVec

	// Schedule labels that could not be parsed and fell back to 0 months
	ParseFallbacks *prometheus.CounterVec

	// Schedule references to IDs missing from the catalog
	UnknownItems *prometheus.CounterVec

	RequestDuration *prometheus.HistogramVec

	// Audited state-changing requests by resource, action and status code
	AuditWrites *prometheus.CounterVec
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		Recommendations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthtrack_recommendations_total",
			Help: "Recommendations computed by catalog kind and status",
		}, []string{"kind", "status"}),

		ParseFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthtrack_age_range_parse_fallbacks_total",
			Help: "Age-range labels that could not be parsed and resolved to 0 months",
		}, []string{"kind"}),

		UnknownItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthtrack_unknown_catalog_items_total",
			Help: "Schedule references skipped because the catalog has no such item",
		}, []string{"kind"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "healthtrack_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status code",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "code"}),

		AuditWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthtrack_audit_writes_total",
			Help: "Audited state-changing API requests by resource, action and status code",
		}, []string{"resource", "action", "code"}),
	}
}

// IncrementStatus records one computed recommendation.
func (m *Metrics) IncrementStatus(kind, status string) {
	if m != nil {
		m.Recommendations.WithLabelValues(kind, status).Inc()
	}
}

// IncrementParseFallback records a label that resolved to 0 by fallback.
func (m *Metrics) IncrementParseFallback(kind string) {
	if m != nil {
		m.ParseFallbacks.WithLabelValues(kind).Inc()
	}
}

// IncrementUnknownItem records a skipped schedule reference.
func (m *Metrics) IncrementUnknownItem(kind string) {
	if m != nil {
		m.UnknownItems.WithLabelValues(kind).Inc()
	}
}

// ObserveRequest records the latency of one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, code int, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
	}
}

// RecordAudit counts one audited request.
func (m *Metrics) RecordAudit(resource, action string, code int) {
	if m != nil {
		m.AuditWrites.WithLabelValues(resource, action, strconv.Itoa(code)).Inc()
	}
}

// Middleware times every request, labelled by its registered route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			code := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				code = he.Code
			}
			m.ObserveRequest(c.Request().Method, c.Path(), code, time.Since(start))
			return err
		}
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
