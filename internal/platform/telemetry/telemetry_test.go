package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersCollectors(t *testing.T) {
	m := New()
	m.RecordsCreated.Inc()
	if got := testutil.ToFloat64(m.RecordsCreated); got != 1 {
		t.Errorf("expected records counter 1, got %v", got)
	}

	m.BackupAttempts.WithLabelValues("succeeded").Inc()
	m.BackupAttempts.WithLabelValues("failed").Inc()
	m.BackupAttempts.WithLabelValues("failed").Inc()
	if got := testutil.ToFloat64(m.BackupAttempts.WithLabelValues("failed")); got != 2 {
		t.Errorf("expected 2 failed attempts, got %v", got)
	}

	m.StorageUtilization.Set(90.0)
	if got := testutil.ToFloat64(m.StorageUtilization); got != 90.0 {
		t.Errorf("expected utilization 90.0, got %v", got)
	}
}

func TestMiddleware_CountsRequests(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/records", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/records", "200"))
	if got != 1 {
		t.Errorf("expected 1 counted request, got %v", got)
	}
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.RecordsCreated.Inc()

	e := echo.New()
	e.GET("/metrics", m.Handler())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "medhist_records_created_total") {
		t.Error("expected exposition to contain medhist_records_created_total")
	}
}
