package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
	"github.com/kirillkom/resume-fraud-screener/internal/core/fraud"
	"github.com/kirillkom/resume-fraud-screener/internal/core/ports"
)

const (
	SourcePDF  = "pdf"
	SourceText = "text"
)

type AnalyzeResumeUseCase struct {
	extractor ports.DocumentExtractor
	policy    fraud.Policy
	maxBytes  int64
	timeout   time.Duration
	observer  ports.AnalysisObserver
}

type AnalyzeOption func(*AnalyzeResumeUseCase)

// WithMaxDocumentBytes rejects uploads larger than n bytes. Zero disables the limit.
func WithMaxDocumentBytes(n int64) AnalyzeOption {
	return func(uc *AnalyzeResumeUseCase) { uc.maxBytes = n }
}

// WithAnalysisTimeout bounds a single analysis, extraction included.
func WithAnalysisTimeout(d time.Duration) AnalyzeOption {
	return func(uc *AnalyzeResumeUseCase) { uc.timeout = d }
}

func WithAnalysisObserver(observer ports.AnalysisObserver) AnalyzeOption {
	return func(uc *AnalyzeResumeUseCase) { uc.observer = observer }
}

func NewAnalyzeResumeUseCase(extractor ports.DocumentExtractor, policy fraud.Policy, opts ...AnalyzeOption) *AnalyzeResumeUseCase {
	uc := &AnalyzeResumeUseCase{
		extractor: extractor,
		policy:    policy,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *AnalyzeResumeUseCase) Policy() fraud.Policy {
	return uc.policy
}

func (uc *AnalyzeResumeUseCase) AnalyzePDF(ctx context.Context, body io.Reader) (*domain.FraudReport, error) {
	data, err := uc.readBody(body)
	if err != nil {
		return nil, err
	}

	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	doc, err := uc.extractor.Extract(ctx, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("extract document: %w", err)
	}
	return uc.analyze(ctx, SourcePDF, doc, started)
}

func (uc *AnalyzeResumeUseCase) AnalyzeText(ctx context.Context, text string) (*domain.FraudReport, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze text", errors.New("text is empty"))
	}
	if uc.maxBytes > 0 && int64(len(text)) > uc.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze text",
			fmt.Errorf("text exceeds %d bytes", uc.maxBytes))
	}

	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()
	return uc.analyze(ctx, SourceText, domain.TextOnlyDocument(text), time.Now())
}

func (uc *AnalyzeResumeUseCase) analyze(ctx context.Context, source string, doc *domain.ExtractedDocument, started time.Time) (*domain.FraudReport, error) {
	report, err := fraud.Analyze(ctx, doc, uc.policy)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.WrapError(domain.ErrTemporary, "analyze document", err)
		}
		return nil, fmt.Errorf("analyze document: %w", err)
	}
	if uc.observer != nil {
		uc.observer.ObserveAnalysis(source, report, time.Since(started))
	}
	return report, nil
}

func (uc *AnalyzeResumeUseCase) readBody(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read document", errors.New("body is required"))
	}
	reader := body
	if uc.maxBytes > 0 {
		reader = io.LimitReader(body, uc.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read document", errors.New("document is empty"))
	}
	if uc.maxBytes > 0 && int64(len(data)) > uc.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read document",
			fmt.Errorf("document exceeds %d bytes", uc.maxBytes))
	}
	return data, nil
}

func (uc *AnalyzeResumeUseCase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, uc.timeout)
}
