// Package metrics exposes Prometheus instrumentation for the OCR service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocr_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Job lifecycle metrics
	JobsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_jobs_created_total",
			Help: "Total number of jobs created",
		},
		[]string{"file_type"},
	)

	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_jobs_completed_total",
			Help: "Total number of jobs completed successfully",
		},
		[]string{"file_type"},
	)

	JobsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_jobs_failed_total",
			Help: "Total number of jobs that failed",
		},
		[]string{"file_type"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocr_job_duration_seconds",
			Help:    "Job processing duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"file_type"},
	)

	JobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ocr_jobs_in_flight",
			Help: "Number of jobs currently being processed",
		},
	)

	JobsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ocr_jobs_swept_total",
			Help: "Total number of expired jobs removed by cleanup",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		JobsCreatedTotal,
		JobsCompletedTotal,
		JobsFailedTotal,
		JobDuration,
		JobsInFlight,
		JobsSweptTotal,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordJobCreated records a newly created job.
func RecordJobCreated(fileType string) {
	JobsCreatedTotal.WithLabelValues(fileType).Inc()
}

// RecordJobCompleted records a successful job and its duration.
func RecordJobCompleted(fileType string, duration time.Duration) {
	JobsCompletedTotal.WithLabelValues(fileType).Inc()
	JobDuration.WithLabelValues(fileType).Observe(duration.Seconds())
}

// RecordJobFailed records a failed job and its duration.
func RecordJobFailed(fileType string, duration time.Duration) {
	JobsFailedTotal.WithLabelValues(fileType).Inc()
	JobDuration.WithLabelValues(fileType).Observe(duration.Seconds())
}

// Middleware records request counts and latencies per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
