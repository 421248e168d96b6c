package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type HTTPServerMetrics struct {
	processRegistry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
	rejected *prometheus.CounterVec
	uploads  *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	m := &HTTPServerMetrics{processRegistry: newProcessRegistry()}
	m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "HTTP requests by route and status code.",
		ConstLabels: serviceLabels(service),
	}, []string{"method", "route", "code"})
	m.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   "http",
		Name:        "request_duration_seconds",
		Help:        "HTTP request latency by route.",
		ConstLabels: serviceLabels(service),
		Buckets:     []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 30},
	}, []string{"method", "route"})
	m.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "http",
		Name:        "in_flight_requests",
		Help:        "Requests currently inside a handler.",
		ConstLabels: serviceLabels(service),
	})
	m.rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   "http",
		Name:        "rejected_requests_total",
		Help:        "Requests turned away by rate limiting or backpressure.",
		ConstLabels: serviceLabels(service),
	}, []string{"reason"})
	m.uploads = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   "http",
		Name:        "upload_bytes",
		Help:        "Size of uploaded resume files.",
		ConstLabels: serviceLabels(service),
		Buckets:     prometheus.ExponentialBuckets(16*1024, 2, 10),
	}, []string{"route"})
	m.registry.MustRegister(m.requests, m.latency, m.inFlight, m.rejected, m.uploads)
	return m
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeLabel(r.URL.Path)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		m.inFlight.Inc()
		started := time.Now()
		defer func() {
			m.inFlight.Dec()
			m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			m.latency.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())
		}()

		next.ServeHTTP(rec, r)
	})
}

// routeLabel keeps label cardinality bounded by collapsing resume ids.
func routeLabel(path string) string {
	if strings.HasPrefix(path, "/v1/resumes/") {
		return "/v1/resumes/{resume_id}"
	}
	return path
}

func (m *HTTPServerMetrics) RecordRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *HTTPServerMetrics) RecordUpload(path string, size int64) {
	if size >= 0 {
		m.uploads.WithLabelValues(routeLabel(path)).Observe(float64(size))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
