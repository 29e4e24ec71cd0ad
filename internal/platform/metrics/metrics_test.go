package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.IncrementStatus("vaccine", "due")
	m.IncrementParseFallback("vaccine")
	m.IncrementUnknownItem("vaccine")
	m.ObserveRequest(http.MethodGet, "/", 200, 0)
	m.RecordAudit("children", "create", 201)
}

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncrementStatus("vaccine", "overdue")
	m.IncrementStatus("vaccine", "overdue")
	m.IncrementParseFallback("procedure")

	if got := testutil.ToFloat64(m.Recommendations.WithLabelValues("vaccine", "overdue")); got != 2 {
		t.Errorf("overdue count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ParseFallbacks.WithLabelValues("procedure")); got != 1 {
		t.Errorf("fallback count = %v, want 1", got)
	}
}

func TestMetrics_RecordAudit(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordAudit("children", "create", http.StatusCreated)
	m.RecordAudit("children", "create", http.StatusCreated)
	m.RecordAudit("patients", "delete", http.StatusNotFound)

	if got := testutil.ToFloat64(m.AuditWrites.WithLabelValues("children", "create", "201")); got != 2 {
		t.Errorf("children create count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.AuditWrites.WithLabelValues("patients", "delete", "404")); got != 1 {
		t.Errorf("patients delete count = %v, want 1", got)
	}
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `healthtrack_http_request_duration_seconds_count{code="200",method="GET",route="/ping"} 1`) {
		t.Errorf("expected /ping observation in metrics output, got:\n%s", rec.Body.String())
	}
}
