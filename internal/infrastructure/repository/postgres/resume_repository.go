package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
	"github.com/kirillkom/resume-fraud-screener/internal/infrastructure/resilience"
)

type ResumeRepository struct {
	db       *sql.DB
	executor *resilience.Executor
	now      func() time.Time
}

// NewResumeRepository builds the repository. executor may be nil, in which
// case every query is attempted once.
func NewResumeRepository(db *sql.DB, executor *resilience.Executor) *ResumeRepository {
	return &ResumeRepository{
		db:       db,
		executor: executor,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *ResumeRepository) Create(ctx context.Context, resume *domain.Resume) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO resumes (
	id, filename, mime_type, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		resume.ID, resume.Filename, resume.MimeType, resume.StoragePath,
		string(resume.Status), resume.Error, resume.CreatedAt, resume.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resume: %w", err)
	}
	return nil
}

// GetByID is retried like SaveReport since the worker reads before every analysis.
func (r *ResumeRepository) GetByID(ctx context.Context, id string) (*domain.Resume, error) {
	return resilience.DoValue(ctx, r.executor, "postgres.get_resume", func(ctx context.Context) (*domain.Resume, error) {
		return r.getByID(ctx, id)
	}, classifyPostgresError)
}

func (r *ResumeRepository) getByID(ctx context.Context, id string) (*domain.Resume, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, status, error_message, fraud_report, created_at, updated_at
FROM resumes
WHERE id = $1
`, id)

	var resume domain.Resume
	var status string
	var reportRaw []byte

	err := row.Scan(
		&resume.ID, &resume.Filename, &resume.MimeType, &resume.StoragePath,
		&status, &resume.Error, &reportRaw, &resume.CreatedAt, &resume.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrResumeNotFound, "get resume", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan resume: %w", err)
	}

	if len(reportRaw) > 0 {
		var report domain.FraudReport
		if err := json.Unmarshal(reportRaw, &report); err != nil {
			return nil, fmt.Errorf("unmarshal fraud report: %w", err)
		}
		resume.Report = &report
	}
	resume.Status = domain.ResumeStatus(status)
	return &resume, nil
}

func (r *ResumeRepository) UpdateStatus(ctx context.Context, id string, status domain.ResumeStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE resumes
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, r.now())
	if err != nil {
		return fmt.Errorf("update resume status: %w", err)
	}
	return requireAffected(res, "update resume status", id)
}

// SaveReport stores the report JSON plus the columns used for filtering.
// Transient database failures are retried through the executor.
func (r *ResumeRepository) SaveReport(ctx context.Context, id string, report *domain.FraudReport) error {
	if report == nil {
		return domain.WrapError(domain.ErrInvalidInput, "save fraud report", errors.New("report is nil"))
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal fraud report: %w", err)
	}

	return r.executor.Do(ctx, "postgres.save_report", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
UPDATE resumes
SET fraud_report = $2, risk_score = $3, risk_level = $4, degraded = $5, updated_at = $6
WHERE id = $1
`, id, reportJSON, report.RiskScore, string(report.RiskLevel), report.Degraded, r.now())
		if err != nil {
			return fmt.Errorf("save fraud report: %w", err)
		}
		return requireAffected(res, "save fraud report", id)
	}, classifyPostgresError)
}

func requireAffected(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrResumeNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}

// classifyPostgresError retries connection-level failures only. SQLSTATE
// class 08 is connection exceptions, 40001/40P01 are serialization and deadlock.
func classifyPostgresError(err error) resilience.Outcome {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		domain.IsKind(err, domain.ErrResumeNotFound):
		return resilience.Benign
	case resilience.IsCircuitOpen(err), errors.Is(err, sql.ErrConnDone):
		return resilience.Transient
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return resilience.Transient
		}
		return resilience.Benign
	}
	if pgconn.SafeToRetry(err) {
		return resilience.Transient
	}
	return resilience.Fatal
}
