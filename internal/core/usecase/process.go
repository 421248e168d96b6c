package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
	"github.com/kirillkom/resume-fraud-screener/internal/core/ports"
)

type ProcessResumeUseCase struct {
	repo     ports.ResumeRepository
	storage  ports.ObjectStorage
	analyzer ports.FraudAnalyzer
}

func NewProcessResumeUseCase(
	repo ports.ResumeRepository,
	storage ports.ObjectStorage,
	analyzer ports.FraudAnalyzer,
) *ProcessResumeUseCase {
	return &ProcessResumeUseCase{
		repo:     repo,
		storage:  storage,
		analyzer: analyzer,
	}
}

func (uc *ProcessResumeUseCase) ProcessByID(ctx context.Context, resumeID string) error {
	if err := uc.markStatus(ctx, resumeID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	report, err := uc.processPipeline(ctx, resumeID)
	if err == nil {
		err = uc.persistReport(ctx, resumeID, report)
	}
	if err != nil {
		if failErr := uc.markFailed(ctx, resumeID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, resumeID, domain.StatusAnalyzed, ""); err != nil {
		return fmt.Errorf("set status=analyzed: %w", err)
	}

	slog.Info("resume_processed",
		"resume_id", resumeID,
		"risk_level", report.RiskLevel,
		"risk_score", report.RiskScore,
		"degraded", report.Degraded,
	)
	return nil
}

func (uc *ProcessResumeUseCase) processPipeline(ctx context.Context, resumeID string) (*domain.FraudReport, error) {
	resume, err := uc.loadResume(ctx, resumeID)
	if err != nil {
		return nil, err
	}

	file, err := uc.storage.Open(ctx, resume.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored resume: %w", err)
	}
	defer file.Close()

	report, err := uc.analyzer.AnalyzePDF(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("analyze resume: %w", err)
	}
	return report, nil
}

func (uc *ProcessResumeUseCase) loadResume(ctx context.Context, resumeID string) (*domain.Resume, error) {
	resume, err := uc.repo.GetByID(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("fetch resume by id: %w", err)
	}
	return resume, nil
}

func (uc *ProcessResumeUseCase) persistReport(ctx context.Context, resumeID string, report *domain.FraudReport) error {
	if err := uc.repo.SaveReport(ctx, resumeID, report); err != nil {
		return fmt.Errorf("save fraud report: %w", err)
	}
	return nil
}

func (uc *ProcessResumeUseCase) markStatus(ctx context.Context, resumeID string, status domain.ResumeStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, resumeID, status, errMessage)
}

func (uc *ProcessResumeUseCase) markFailed(ctx context.Context, resumeID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, resumeID, domain.StatusFailed, processErr.Error())
}
