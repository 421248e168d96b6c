package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

// ResumeRepository persists resume state and fraud reports.
type ResumeRepository interface {
	Create(ctx context.Context, resume *domain.Resume) error
	GetByID(ctx context.Context, id string) (*domain.Resume, error)
	UpdateStatus(ctx context.Context, id string, status domain.ResumeStatus, errMessage string) error
	SaveReport(ctx context.Context, id string, report *domain.FraudReport) error
}

// ObjectStorage stores uploaded resume files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes resume upload events.
type MessageQueue interface {
	PublishResumeUploaded(ctx context.Context, resumeID string) error
	SubscribeResumeUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// DocumentExtractor turns raw PDF bytes into the read-only bundle detectors consume.
// Parts it cannot recover are left absent and listed in the document warnings.
type DocumentExtractor interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64) (*domain.ExtractedDocument, error)
}

// AnalysisObserver receives one call per finished analysis.
type AnalysisObserver interface {
	ObserveAnalysis(source string, report *domain.FraudReport, elapsed time.Duration)
}
