// metrics.go — Prometheus HTTP метрики Dashboard Module:
// dm_http_requests_total, dm_http_request_duration_seconds.
// Имена групп и пайплайнов в путях заменяются шаблонами.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dm_http_requests_total",
			Help: "Общее количество HTTP-запросов к Dashboard Module",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dm_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Dashboard Module в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет имена групп и пайплайнов шаблонами.
// /api/v1/dashboard/groups/build → /api/v1/dashboard/groups/{group}
// /api/v1/pipeline_selection/pipelines/deploy/visible → /api/v1/pipeline_selection/pipelines/{pipeline}/visible
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/dashboard", "/api/v1/pipeline_selection":
		return path
	}

	const groupsPrefix = "/api/v1/dashboard/groups/"
	if rest, ok := strings.CutPrefix(path, groupsPrefix); ok && rest != "" {
		return groupsPrefix + "{group}"
	}

	const pipelinesPrefix = "/api/v1/pipeline_selection/pipelines/"
	if rest, ok := strings.CutPrefix(path, pipelinesPrefix); ok && strings.HasSuffix(rest, "/visible") {
		return pipelinesPrefix + "{pipeline}/visible"
	}

	return "other"
}
