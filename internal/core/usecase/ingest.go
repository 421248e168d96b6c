package usecase

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
	"github.com/kirillkom/resume-fraud-screener/internal/core/ports"
)

var pdfMagic = []byte("%PDF-")

type IngestResumeUseCase struct {
	repo    ports.ResumeRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	now     func() time.Time
}

func NewIngestResumeUseCase(
	repo ports.ResumeRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestResumeUseCase {
	return &IngestResumeUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores the file, records it as uploaded and queues it for the worker.
// Anything that does not start with a PDF header is refused before storage.
func (uc *IngestResumeUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Resume, error) {
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload resume", errors.New("body is required"))
	}
	br := bufio.NewReader(body)
	head, err := br.Peek(len(pdfMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if !bytes.Equal(head, pdfMagic) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload resume", errors.New("file is not a PDF"))
	}

	resume := &domain.Resume{
		ID:       uuid.NewString(),
		Filename: filename,
		MimeType: mimeType,
		Status:   domain.StatusUploaded,
	}
	resume.StoragePath = resume.ID + "_" + storageName(filename)
	resume.CreatedAt = uc.now()
	resume.UpdatedAt = resume.CreatedAt

	if err := uc.storage.Save(ctx, resume.StoragePath, br); err != nil {
		return nil, fmt.Errorf("store resume file: %w", err)
	}
	if err := uc.repo.Create(ctx, resume); err != nil {
		return nil, fmt.Errorf("create resume metadata: %w", err)
	}
	if err := uc.queue.PublishResumeUploaded(ctx, resume.ID); err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}
	return resume, nil
}

func (uc *IngestResumeUseCase) GetByID(ctx context.Context, id string) (*domain.Resume, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get resume", errors.New("id is required"))
	}
	return uc.repo.GetByID(ctx, id)
}

// storageName reduces a client filename to a safe ASCII base name ending in .pdf.
func storageName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.TrimLeft(b.String(), ".")
	if name == "" {
		name = "resume"
	}
	if !strings.EqualFold(path.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
