package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recognition_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recognition_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Analysis metrics
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recognition_analyses_total",
			Help: "Completed analyses by source and content kind",
		},
		[]string{"source", "content_kind"},
	)

	analysisFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recognition_analysis_failures_total",
			Help: "Failed analyses by source and error kind",
		},
		[]string{"source", "error_kind"},
	)

	analysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recognition_analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"source"},
	)

	inferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recognition_inference_duration_seconds",
			Help:    "Classifier call latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)

	// Job metrics
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recognition_jobs_total",
			Help: "Background analysis jobs by outcome",
		},
		[]string{"outcome"},
	)

	// Active connections gauge
	activeConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recognition_active_connections",
			Help: "Number of active connections",
		},
		[]string{"type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint string, statusCode int, durationSeconds float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusClass(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

func statusClass(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	}
	return "unknown"
}

// RecordAnalysis records a successful analysis of the given content kind.
func RecordAnalysis(source, contentKind string, duration time.Duration) {
	analysesTotal.WithLabelValues(source, contentKind).Inc()
	analysisDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordAnalysisFailure records a failed analysis by error kind.
func RecordAnalysisFailure(source, errorKind string) {
	analysisFailuresTotal.WithLabelValues(source, errorKind).Inc()
}

// RecordJob records a background job outcome: completed or failed.
// RecordInference observes one classifier call.
func RecordInference(duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	inferenceDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func RecordJob(outcome string) {
	jobsTotal.WithLabelValues(outcome).Inc()
}

// SetActiveConnections sets the number of active connections by type
func SetActiveConnections(connType string, count float64) {
	activeConnections.WithLabelValues(connType).Set(count)
}

// Middleware records request count and latency per matched route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordHTTPRequest(r.Method, endpoint, status, time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
