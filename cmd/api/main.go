package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/resume-fraud-screener/internal/adapters/http"
	"github.com/kirillkom/resume-fraud-screener/internal/bootstrap"
	"github.com/kirillkom/resume-fraud-screener/internal/config"
	"github.com/kirillkom/resume-fraud-screener/internal/observability/logging"
	"github.com/kirillkom/resume-fraud-screener/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		routerOpts []httpadapter.RouterOption
		appOpts    []bootstrap.Option
	)
	if cfg.MetricsEnabled {
		httpMetrics := metrics.NewHTTPServerMetrics("api")
		routerOpts = append(routerOpts, httpadapter.WithMetrics(httpMetrics))
		appOpts = append(appOpts, bootstrap.WithAnalysisObserver(metrics.NewFraudMetrics("api", httpMetrics.Registerer())))
	}

	app, err := bootstrap.New(ctx, cfg, appOpts...)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, app.IngestUC, app.AnalyzeUC, app.Resumes, routerOpts...).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.FraudAnalysisTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
