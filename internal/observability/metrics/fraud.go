package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

// FraudMetrics records analysis outcomes. It satisfies ports.AnalysisObserver.
type FraudMetrics struct {
	service string

	analysesTotal *prometheus.CounterVec
	degradedTotal *prometheus.CounterVec
	findingsTotal *prometheus.CounterVec
	riskScore     *prometheus.HistogramVec
	duration      *prometheus.HistogramVec
}

func NewFraudMetrics(service string, registerer prometheus.Registerer) *FraudMetrics {
	analysesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fraud",
			Name:      "analyses_total",
			Help:      "Completed fraud analyses by source and risk level.",
		},
		[]string{"service", "source", "risk_level"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fraud",
			Name:      "degraded_reports_total",
			Help:      "Reports produced with at least one signal missing.",
		},
		[]string{"service", "source"},
	)
	findingsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fraud",
			Name:      "findings_total",
			Help:      "Detector findings by detector and severity.",
		},
		[]string{"service", "detector", "severity"},
	)
	riskScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fraud",
			Name:      "risk_score",
			Help:      "Distribution of aggregated risk scores.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"service", "source"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fraud",
			Name:      "analysis_duration_seconds",
			Help:      "Extraction plus analysis duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "source"},
	)

	registerer.MustRegister(analysesTotal, degradedTotal, findingsTotal, riskScore, duration)

	return &FraudMetrics{
		service:       service,
		analysesTotal: analysesTotal,
		degradedTotal: degradedTotal,
		findingsTotal: findingsTotal,
		riskScore:     riskScore,
		duration:      duration,
	}
}

func (m *FraudMetrics) ObserveAnalysis(source string, report *domain.FraudReport, elapsed time.Duration) {
	if report == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}

	m.analysesTotal.WithLabelValues(m.service, source, string(report.RiskLevel)).Inc()
	if report.Degraded {
		m.degradedTotal.WithLabelValues(m.service, source).Inc()
	}
	for _, f := range report.Findings {
		m.findingsTotal.WithLabelValues(m.service, f.Detector, string(f.Severity)).Inc()
	}
	if report.RiskLevel != domain.RiskUnknown {
		m.riskScore.WithLabelValues(m.service, source).Observe(report.RiskScore)
	}
	m.duration.WithLabelValues(m.service, source).Observe(elapsed.Seconds())
}
