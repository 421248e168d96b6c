package mcpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
	"github.com/kirillkom/resume-fraud-screener/internal/core/ports"
)

const (
	serverName    = "resume-fraud-screener"
	serverVersion = "1.0.0"

	toolAnalyzeText = "analyze_resume_text"
	toolAnalyzeFile = "analyze_resume_file"
)

// Server exposes fraud analysis as MCP tools so an LLM caller can fetch a
// report and explain it.
type Server struct {
	analyzer ports.FraudAnalyzer
	fileRoot string
	maxBytes int64
	mcp      *server.MCPServer
}

type Option func(*Server)

// WithFileRoot confines analyze_resume_file to files below dir.
func WithFileRoot(dir string) Option {
	return func(s *Server) { s.fileRoot = dir }
}

func WithMaxFileBytes(n int64) Option {
	return func(s *Server) { s.maxBytes = n }
}

func NewServer(analyzer ports.FraudAnalyzer, opts ...Option) *Server {
	s := &Server{analyzer: analyzer}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))
	s.mcp.AddTool(mcp.NewTool(toolAnalyzeText,
		mcp.WithDescription("Score plain resume text for fraud signals such as keyword stuffing and invisible characters. Returns the fraud report as JSON."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Resume text to analyze")),
	), s.handleAnalyzeText)
	s.mcp.AddTool(mcp.NewTool(toolAnalyzeFile,
		mcp.WithDescription("Score a local resume file (PDF or plain text) for fraud signals. Returns the fraud report as JSON."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the resume file")),
	), s.handleAnalyzeFile)
	return s
}

func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleAnalyzeText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.analyzer.AnalyzeText(ctx, text)
	return reportResult(report, err)
}

func (s *Server) handleAnalyzeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.readFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var report *domain.FraudReport
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		report, err = s.analyzer.AnalyzePDF(ctx, bytes.NewReader(data))
	} else {
		report, err = s.analyzer.AnalyzeText(ctx, string(data))
	}
	return reportResult(report, err)
}

func (s *Server) readFile(path string) ([]byte, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if s.fileRoot != "" {
		root, err := filepath.Abs(s.fileRoot)
		if err != nil {
			return nil, fmt.Errorf("resolve file root: %w", err)
		}
		rel, err := filepath.Rel(root, resolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("path %q is outside the allowed directory", path)
		}
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("open resume: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if s.maxBytes > 0 {
		reader = io.LimitReader(f, s.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("resume exceeds %d bytes", s.maxBytes)
	}
	return data, nil
}

// reportResult turns analysis failures into tool errors; only transport
// problems are returned as Go errors.
func reportResult(report *domain.FraudReport, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode fraud report: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
