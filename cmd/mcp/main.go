package main

import (
	"log/slog"
	"os"

	mcpadapter "github.com/kirillkom/resume-fraud-screener/internal/adapters/mcp"
	"github.com/kirillkom/resume-fraud-screener/internal/bootstrap"
	"github.com/kirillkom/resume-fraud-screener/internal/config"
	"github.com/kirillkom/resume-fraud-screener/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel))

	analyzer, err := bootstrap.NewAnalyzer(cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	server := mcpadapter.NewServer(analyzer,
		mcpadapter.WithFileRoot(cfg.MCPFileRoot),
		mcpadapter.WithMaxFileBytes(cfg.MaxUploadBytes),
	)
	if err := server.ServeStdio(); err != nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
