package domain

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities; unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

func (s Severity) Valid() bool { return s.Rank() > 0 }

type DetectionFinding struct {
	Detector      string   `json:"detector_name"`
	Kind          string   `json:"kind"`
	Severity      Severity `json:"severity"`
	Description   string   `json:"description"`
	EvidenceRatio float64  `json:"evidence_ratio"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
	// RiskUnknown is only reported when extraction produced nothing to analyze.
	RiskUnknown RiskLevel = "unknown"
)

// FraudReport is built once per analysis and not mutated afterwards.
type FraudReport struct {
	RiskScore          float64            `json:"risk_score"`
	RiskLevel          RiskLevel          `json:"risk_level"`
	DetectedIssues     []string           `json:"detected_issues"`
	Degraded           bool               `json:"degraded"`
	DegradationReasons []string           `json:"degradation_reasons"`
	Findings           []DetectionFinding `json:"raw_findings"`
}
