// Package telemetry exposes service metrics through a dedicated Prometheus
// registry: request counts, record creations, backup attempt outcomes, and
// the current storage utilization.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	registry *prometheus.Registry

	RecordsCreated     prometheus.Counter
	BackupAttempts     *prometheus.CounterVec
	StorageUtilization prometheus.Gauge
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New creates a Metrics instance with all collectors registered on a private
// registry (the default registry is avoided so tests can create instances
// freely).
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RecordsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medhist_records_created_total",
			Help: "Total number of patient records created",
		}),
		BackupAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medhist_backup_attempts_total",
				Help: "Total number of backup attempts by outcome",
			},
			[]string{"outcome"},
		),
		StorageUtilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "medhist_storage_utilization_pct",
			Help: "Storage utilization as a percentage of the configured quota",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medhist_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "medhist_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	m.registry.MustRegister(
		m.RecordsCreated,
		m.BackupAttempts,
		m.StorageUtilization,
		m.HTTPRequestsTotal,
		m.HTTPDuration,
	)

	return m
}

// Handler returns the Prometheus exposition endpoint for the registry.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}

// Middleware records request count and latency for every request. The route
// path (not the raw URL) is used as the label to keep cardinality bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
			m.HTTPDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
