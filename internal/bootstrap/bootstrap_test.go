package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirillkom/resume-fraud-screener/internal/config"
	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

type observerFake struct {
	sources []string
}

func (f *observerFake) ObserveAnalysis(source string, _ *domain.FraudReport, _ time.Duration) {
	f.sources = append(f.sources, source)
}

func TestNewAnalyzerWiresPolicyAndObserver(t *testing.T) {
	observer := &observerFake{}
	analyzer, err := NewAnalyzer(config.Config{MaxUploadBytes: 1 << 20}, WithAnalysisObserver(observer))
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	report, err := analyzer.AnalyzeText(context.Background(), "Jane Doe, jane@example.com, backend engineer.")
	if err != nil {
		t.Fatalf("AnalyzeText() error = %v", err)
	}
	if report.RiskLevel == "" {
		t.Fatalf("expected a risk level")
	}
	if len(observer.sources) != 1 || observer.sources[0] != "text" {
		t.Fatalf("observer not wired: %v", observer.sources)
	}
}

func TestNewAnalyzerFailsOnInvalidPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("risk_level_thresholds:\n  medium: 0.9\n  high: 0.5\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewAnalyzer(config.Config{FraudPolicyFile: path}); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
