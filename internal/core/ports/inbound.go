package ports

import (
	"context"
	"io"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

// ResumeIngestor is the inbound contract for resume upload orchestration.
type ResumeIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Resume, error)
}

// ResumeReader is the inbound read model for resume state and its fraud report.
type ResumeReader interface {
	GetByID(ctx context.Context, id string) (*domain.Resume, error)
}

// ResumeProcessor is the inbound contract for asynchronous fraud analysis.
type ResumeProcessor interface {
	ProcessByID(ctx context.Context, resumeID string) error
}

// FraudAnalyzer runs synchronous fraud analysis without persisting anything.
type FraudAnalyzer interface {
	AnalyzePDF(ctx context.Context, body io.Reader) (*domain.FraudReport, error)
	AnalyzeText(ctx context.Context, text string) (*domain.FraudReport, error)
}
