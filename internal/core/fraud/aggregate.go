package fraud

import (
	"fmt"
	"math"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

const (
	KindHiddenText          = "hidden_text"
	KindMetadataUnavailable = "metadata_unavailable"
	KindWhiteColor          = "white_color"
	KindInvisibleRenderMode = "invisible_render_mode"
	KindOffPageText         = "off_page_text"
	KindOverlappingText     = "overlapping_text"
	KindKeywordStuffing     = "keyword_stuffing"
	KindInvisibleCharacters = "invisible_characters"
	KindFormattingAnomaly   = "formatting_anomaly"
	KindAuthenticity        = "authenticity_red_flags"
)

// Aggregate folds detector outcomes into a report. It is a pure function:
// the same outcomes and config always produce the same report. Outcomes are
// expected in detector execution order.
func Aggregate(outcomes []Outcome, cfg Config) *domain.FraudReport {
	report := &domain.FraudReport{
		DetectedIssues:     []string{},
		DegradationReasons: []string{},
		Findings:           []domain.DetectionFinding{},
	}

	escalate := shouldEscalate(outcomes)

	var direct, corroborating float64
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			report.Degraded = true
			report.DegradationReasons = append(report.DegradationReasons,
				fmt.Sprintf("%s detector failed and contributed nothing: %v", outcome.Detector, outcome.Err))
			continue
		}
		if outcome.Result.Degraded {
			report.Degraded = true
		}
		for _, note := range outcome.Result.Notes {
			report.DegradationReasons = append(report.DegradationReasons, outcome.Detector+": "+note)
		}

		var sum, visibility float64
		floor := false
		for _, f := range outcome.Result.Findings {
			f.Detector = outcome.Detector
			f.EvidenceRatio = clamp01(f.EvidenceRatio)
			report.Findings = append(report.Findings, f)

			c := contribution(f, cfg)
			if escalate && outcome.Detector == DetectorContentStream && isVisibilityKind(f.Kind) {
				visibility += c
				floor = floor || earnsMediumFloor(f)
				continue
			}
			sum += c
			if f.Severity.Rank() >= domain.SeverityMedium.Rank() {
				report.DetectedIssues = append(report.DetectedIssues, f.Description)
			}
		}

		if visibility > 0 {
			escalated := visibility * cfg.EscalationFactor
			if floor {
				escalated = math.Max(escalated, cfg.RiskLevelThresholds.Medium)
			}
			sum += escalated
			for _, f := range outcome.Result.Findings {
				if isVisibilityKind(f.Kind) {
					report.DetectedIssues = append(report.DetectedIssues, f.Description)
				}
			}
			report.DetectedIssues = append(report.DetectedIssues,
				"character color metadata is missing while the content stream hides text; risk escalated")
		}

		if isCorroborating(outcome.Detector) {
			corroborating += sum
		} else {
			direct += sum
		}
	}

	score := direct + math.Min(corroborating, cfg.CorroboratingCap)
	report.RiskScore = round4(clamp01(score))
	report.RiskLevel = cfg.Level(report.RiskScore)
	return report
}

func contribution(f domain.DetectionFinding, cfg Config) float64 {
	if f.Kind == KindMetadataUnavailable {
		// Missing metadata is not evidence; it only feeds escalation.
		return 0
	}
	return cfg.weight(f.Detector) * (cfg.severityScore(f.Severity) + cfg.EvidenceBonus*clamp01(f.EvidenceRatio))
}

func shouldEscalate(outcomes []Outcome) bool {
	var metadataMissing, hiddenInStream bool
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			continue
		}
		for _, f := range outcome.Result.Findings {
			switch {
			case outcome.Detector == DetectorColor && f.Kind == KindMetadataUnavailable:
				metadataMissing = true
			case outcome.Detector == DetectorContentStream && isVisibilityKind(f.Kind):
				hiddenInStream = true
			}
		}
	}
	return metadataMissing && hiddenInStream
}

// earnsMediumFloor keeps a single stray off-page move from reaching medium on
// documents whose extractor never supplies colors.
func earnsMediumFloor(f domain.DetectionFinding) bool {
	return f.Kind == KindInvisibleRenderMode || f.Severity.Rank() >= domain.SeverityMedium.Rank()
}

func isVisibilityKind(kind string) bool {
	return kind == KindInvisibleRenderMode || kind == KindOffPageText
}

func isCorroborating(detector string) bool {
	return detector == DetectorFormatting || detector == DetectorAuthenticity
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
