package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/resume-fraud-screener/internal/config"
	"github.com/kirillkom/resume-fraud-screener/internal/core/ports"
	"github.com/kirillkom/resume-fraud-screener/internal/core/usecase"
	pdfextractor "github.com/kirillkom/resume-fraud-screener/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/resume-fraud-screener/internal/infrastructure/queue/nats"
	"github.com/kirillkom/resume-fraud-screener/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/resume-fraud-screener/internal/infrastructure/resilience"
	"github.com/kirillkom/resume-fraud-screener/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Resumes   ports.ResumeReader
	IngestUC  ports.ResumeIngestor
	ProcessUC ports.ResumeProcessor
	AnalyzeUC *usecase.AnalyzeResumeUseCase

	closeFn func()
}

type Option func(*options)

type options struct {
	observer ports.AnalysisObserver
	queueLag func(time.Duration)
}

// WithAnalysisObserver reports every completed analysis, typically to metrics.
func WithAnalysisObserver(observer ports.AnalysisObserver) Option {
	return func(o *options) { o.observer = observer }
}

func WithQueueLagObserver(fn func(time.Duration)) Option {
	return func(o *options) { o.queueLag = fn }
}

// NewAnalyzer builds the synchronous analysis pipeline alone. The CLI and the
// MCP server use it without touching postgres or NATS.
func NewAnalyzer(cfg config.Config, opts ...Option) (*usecase.AnalyzeResumeUseCase, error) {
	o := collectOptions(opts)

	policy, err := config.LoadFraudPolicy(cfg)
	if err != nil {
		return nil, fmt.Errorf("load fraud policy: %w", err)
	}

	extractor := pdfextractor.NewExtractor(pdfextractor.WithMaxPages(cfg.PDFMaxPages))
	analyzeOpts := []usecase.AnalyzeOption{
		usecase.WithMaxDocumentBytes(cfg.MaxUploadBytes),
		usecase.WithAnalysisTimeout(cfg.FraudAnalysisTimeout),
	}
	if o.observer != nil {
		analyzeOpts = append(analyzeOpts, usecase.WithAnalysisObserver(o.observer))
	}
	return usecase.NewAnalyzeResumeUseCase(extractor, policy, analyzeOpts...), nil
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := collectOptions(opts)

	analyzeUC, err := NewAnalyzer(cfg, opts...)
	if err != nil {
		return nil, err
	}

	executor := resilience.NewExecutor(cfg.Resilience())

	pool := postgres.DefaultPoolConfig()
	if cfg.PostgresMaxOpenConns > 0 {
		pool.MaxOpenConns = cfg.PostgresMaxOpenConns
		pool.MaxIdleConns = cfg.PostgresMaxOpenConns
	}
	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN, pool)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	repo := postgres.NewResumeRepository(db, executor)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		LagObserver:        o.queueLag,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ingestUC := usecase.NewIngestResumeUseCase(repo, storage, queue)
	processUC := usecase.NewProcessResumeUseCase(repo, storage, analyzeUC)

	return &App{
		Config:  cfg,
		Queue:   queue,
		Resumes: ingestUC,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		AnalyzeUC: analyzeUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func collectOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
