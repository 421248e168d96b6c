// Package fraud scans extracted resumes for manipulation aimed at applicant
// tracking systems and folds the signals into a single risk report.
//
// Every detector is a pure function over an immutable document and a Policy.
// Nothing in this package keeps state between calls.
package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

const (
	DetectorColor               = "color_visibility"
	DetectorContentStream       = "content_stream"
	DetectorKeywordStuffing     = "keyword_stuffing"
	DetectorInvisibleCharacters = "invisible_characters"
	DetectorFormatting          = "formatting_anomaly"
	DetectorAuthenticity        = "authenticity"
)

// Result is what a single detector hands to the aggregator.
type Result struct {
	Findings []domain.DetectionFinding
	Notes    []string
	Degraded bool
}

// Outcome pairs a detector result with the error it failed with, if any.
type Outcome struct {
	Detector string
	Result   Result
	Err      error
}

type detectFunc func(ctx context.Context, doc *domain.ExtractedDocument, policy Policy) (Result, error)

type detector struct {
	name string
	run  detectFunc
}

// detectors is listed in execution order; reports preserve it.
var detectors = []detector{
	{name: DetectorColor, run: detectColorVisibility},
	{name: DetectorContentStream, run: detectContentStream},
	{name: DetectorKeywordStuffing, run: detectKeywordStuffing},
	{name: DetectorInvisibleCharacters, run: detectInvisibleCharacters},
	{name: DetectorFormatting, run: detectFormattingAnomalies},
	{name: DetectorAuthenticity, run: detectAuthenticity},
}

// DetectorNames returns detector names in execution order.
func DetectorNames() []string {
	names := make([]string, 0, len(detectors))
	for _, d := range detectors {
		names = append(names, d.name)
	}
	return names
}

// Analyze runs every detector over doc and aggregates the outcome.
// Detector failures degrade the report instead of failing the call; the only
// error returned is the context error when the caller gave up.
func Analyze(ctx context.Context, doc *domain.ExtractedDocument, policy Policy) (*domain.FraudReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc == nil || doc.IsEmpty() {
		slog.Warn("fraud_extraction_missing")
		return ExtractionMissingReport(), nil
	}

	outcomes := runDetectors(ctx, doc, policy, detectors)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := Aggregate(outcomes, policy.Config)
	if len(doc.Warnings) > 0 {
		report.Degraded = true
		report.DegradationReasons = append(report.DegradationReasons, doc.Warnings...)
	}
	return report, nil
}

// ExtractionMissingReport is returned when there is nothing to analyze. It is
// deliberately not a clean bill of health.
func ExtractionMissingReport() *domain.FraudReport {
	return &domain.FraudReport{
		RiskScore:      0,
		RiskLevel:      domain.RiskUnknown,
		DetectedIssues: []string{},
		Degraded:       true,
		DegradationReasons: []string{
			domain.WrapError(domain.ErrExtractionMissing, "analyze",
				fmt.Errorf("document has no characters, content stream or text")).Error(),
		},
		Findings: []domain.DetectionFinding{},
	}
}

func runDetectors(ctx context.Context, doc *domain.ExtractedDocument, policy Policy, list []detector) []Outcome {
	outcomes := make([]Outcome, len(list))
	limit := policy.Config.MaxParallelDetectors
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, d := range list {
		g.Go(func() error {
			result, err := safeDetect(gctx, d, doc, policy)
			if err != nil {
				slog.Warn("fraud_detector_failed", "detector", d.name, "error", err)
			}
			outcomes[i] = Outcome{Detector: d.name, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func safeDetect(ctx context.Context, d detector, doc *domain.ExtractedDocument, policy Policy) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("fraud_detector_panic", "detector", d.name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			result = Result{}
			err = domain.WrapError(domain.ErrDetectorFailure, d.name, fmt.Errorf("panic: %v", r))
		}
	}()

	result, err = d.run(ctx, doc, policy)
	if err != nil && !domain.IsKind(err, domain.ErrDetectorFailure) {
		err = domain.WrapError(domain.ErrDetectorFailure, d.name, err)
	}
	return result, err
}
