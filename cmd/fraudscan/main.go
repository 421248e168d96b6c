package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/resume-fraud-screener/internal/cli"
	"github.com/kirillkom/resume-fraud-screener/internal/config"
	"github.com/kirillkom/resume-fraud-screener/internal/observability/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "fraudscan", cfg.LogLevel))

	if err := cli.Execute(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
