package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

type WorkerMetrics struct {
	processRegistry

	processed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	queueLag  prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	m := &WorkerMetrics{processRegistry: newProcessRegistry()}
	m.processed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   "worker",
		Name:        "resumes_processed_total",
		Help:        "Resumes taken off the queue by final status.",
		ConstLabels: serviceLabels(service),
	}, []string{"status"})
	m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   "worker",
		Name:        "resume_processing_seconds",
		Help:        "Time from dequeue to final status.",
		ConstLabels: serviceLabels(service),
		Buckets:     prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"status"})
	m.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "worker",
		Name:        "resumes_in_flight",
		Help:        "Resumes currently being analyzed.",
		ConstLabels: serviceLabels(service),
	})
	m.queueLag = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   "worker",
		Name:        "queue_lag_seconds",
		Help:        "Delay between the upload event and processing start.",
		ConstLabels: serviceLabels(service),
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	})
	m.registry.MustRegister(m.processed, m.duration, m.inFlight, m.queueLag)
	return m
}

func (m *WorkerMetrics) StartResume() {
	m.inFlight.Inc()
}

// FinishResume labels the outcome with the resume status it ended in.
func (m *WorkerMetrics) FinishResume(elapsed time.Duration, err error) {
	m.inFlight.Dec()

	status := domain.StatusAnalyzed
	if err != nil {
		status = domain.StatusFailed
	}
	m.processed.WithLabelValues(string(status)).Inc()
	m.duration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag >= 0 {
		m.queueLag.Observe(lag.Seconds())
	}
}
