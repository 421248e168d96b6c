package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
	"github.com/kirillkom/resume-fraud-screener/internal/core/fraud"
)

func TestLoadIncludesServiceDefaults(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "")
	t.Setenv("FRAUD_ANALYSIS_TIMEOUT", "")
	t.Setenv("API_RATE_LIMIT_RPS", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg := Load()
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("expected default upload limit 10MiB, got %d", cfg.MaxUploadBytes)
	}
	if cfg.FraudAnalysisTimeout != 30*time.Second {
		t.Fatalf("expected default analysis timeout 30s, got %s", cfg.FraudAnalysisTimeout)
	}
	if cfg.APIRateLimitRPS != 20 {
		t.Fatalf("expected default rps 20, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.NATSSubject != "resumes.uploaded" {
		t.Fatalf("expected default subject, got %q", cfg.NATSSubject)
	}
}

func TestLoadParsesOverridesAndFallsBackOnGarbage(t *testing.T) {
	t.Setenv("FRAUD_ANALYSIS_TIMEOUT", "5s")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("API_MAX_IN_FLIGHT", "not-a-number")

	cfg := Load()
	if cfg.FraudAnalysisTimeout != 5*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.FraudAnalysisTimeout)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIMaxInFlight != 32 {
		t.Fatalf("expected fallback in-flight limit, got %d", cfg.APIMaxInFlight)
	}
}

func TestLoadFraudPolicyDefaults(t *testing.T) {
	policy, err := LoadFraudPolicy(Config{})
	if err != nil {
		t.Fatalf("LoadFraudPolicy() error = %v", err)
	}
	if policy.Config.WhiteTextRatioThreshold != fraud.DefaultConfig().WhiteTextRatioThreshold {
		t.Fatalf("expected default threshold, got %v", policy.Config.WhiteTextRatioThreshold)
	}
	if policy.Vocabulary.Len() != domain.DefaultVocabulary().Len() {
		t.Fatalf("expected default vocabulary")
	}
}

func TestLoadFraudPolicyLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	policyFile := filepath.Join(dir, "policy.yaml")
	writeFile(t, policyFile, "white_text_ratio_threshold: 0.1\nrisk_level_thresholds:\n  medium: 0.3\n  high: 0.6\n")
	vocabFile := filepath.Join(dir, "vocabulary.yaml")
	writeFile(t, vocabFile, "languages:\n  - Go\n  - Rust\n")
	t.Setenv("RISK_LEVEL_HIGH_THRESHOLD", "0.7")

	policy, err := LoadFraudPolicy(Config{FraudPolicyFile: policyFile, FraudVocabularyFile: vocabFile})
	if err != nil {
		t.Fatalf("LoadFraudPolicy() error = %v", err)
	}
	if policy.Config.WhiteTextRatioThreshold != 0.1 || policy.Config.RiskLevelThresholds.Medium != 0.3 {
		t.Fatalf("file values not applied: %+v", policy.Config)
	}
	if policy.Config.RiskLevelThresholds.High != 0.7 {
		t.Fatalf("env should win over file, got %v", policy.Config.RiskLevelThresholds.High)
	}
	if policy.Config.KeywordStuffingThreshold != fraud.DefaultConfig().KeywordStuffingThreshold {
		t.Fatalf("unset keys must keep defaults")
	}
	if policy.Vocabulary.Len() != 2 || policy.Vocabulary.Terms[0].Term != "go" {
		t.Fatalf("unexpected vocabulary %+v", policy.Vocabulary)
	}
}

func TestLoadFraudPolicyRejectsBadValues(t *testing.T) {
	t.Setenv("WHITE_TEXT_RATIO_THRESHOLD", "abc")
	if _, err := LoadFraudPolicy(Config{}); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error for unparsable env, got %v", err)
	}

	t.Setenv("WHITE_TEXT_RATIO_THRESHOLD", "1.5")
	if _, err := LoadFraudPolicy(Config{}); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error for out-of-range threshold, got %v", err)
	}
}

func TestDecodeFraudConfigRejectsUnknownKeys(t *testing.T) {
	_, err := DecodeFraudConfig([]byte("white_txt_ratio: 0.2\n"), fraud.DefaultConfig())
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDecodeVocabularyRejectsEmpty(t *testing.T) {
	if _, err := DecodeVocabulary([]byte("{}")); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestMarshalPolicyGroupsVocabulary(t *testing.T) {
	out, err := MarshalPolicy(fraud.DefaultPolicy())
	if err != nil {
		t.Fatalf("MarshalPolicy() error = %v", err)
	}
	text := string(out)
	for _, want := range []string{"white_text_ratio_threshold: 0.05", "vocabulary:", "databases:", "- postgresql"} {
		if !strings.Contains(text, want) {
			t.Fatalf("policy yaml missing %q:\n%s", want, text)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
