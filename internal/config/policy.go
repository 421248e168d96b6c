package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
	"github.com/kirillkom/resume-fraud-screener/internal/core/fraud"
)

// LoadFraudPolicy layers the fraud configuration: built-in defaults, then the
// optional YAML policy file, then individual env overrides. Unlike the rest
// of Config, malformed fraud values are errors rather than silent fallbacks.
func LoadFraudPolicy(c Config) (fraud.Policy, error) {
	cfg := fraud.DefaultConfig()
	if c.FraudPolicyFile != "" {
		data, err := os.ReadFile(c.FraudPolicyFile)
		if err != nil {
			return fraud.Policy{}, domain.WrapError(domain.ErrConfiguration, "read fraud policy file", err)
		}
		if cfg, err = DecodeFraudConfig(data, cfg); err != nil {
			return fraud.Policy{}, err
		}
	}
	if err := applyFraudEnv(&cfg); err != nil {
		return fraud.Policy{}, err
	}

	vocabulary := domain.DefaultVocabulary()
	if c.FraudVocabularyFile != "" {
		data, err := os.ReadFile(c.FraudVocabularyFile)
		if err != nil {
			return fraud.Policy{}, domain.WrapError(domain.ErrConfiguration, "read fraud vocabulary file", err)
		}
		if vocabulary, err = DecodeVocabulary(data); err != nil {
			return fraud.Policy{}, err
		}
	}
	return fraud.NewPolicy(cfg, vocabulary)
}

// DecodeFraudConfig overlays YAML onto base. Unknown keys are rejected so a
// misspelled threshold does not silently keep its default.
func DecodeFraudConfig(data []byte, base fraud.Config) (fraud.Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	out := base
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return fraud.Config{}, domain.WrapError(domain.ErrConfiguration, "decode fraud policy", err)
	}
	return out, nil
}

// DecodeVocabulary reads a category -> terms mapping.
func DecodeVocabulary(data []byte) (domain.Vocabulary, error) {
	var byCategory map[string][]string
	if err := yaml.Unmarshal(data, &byCategory); err != nil {
		return domain.Vocabulary{}, domain.WrapError(domain.ErrConfiguration, "decode fraud vocabulary", err)
	}
	vocabulary := domain.NewVocabulary(byCategory)
	if vocabulary.Len() == 0 {
		return domain.Vocabulary{}, domain.WrapError(domain.ErrConfiguration, "decode fraud vocabulary",
			errors.New("vocabulary has no terms"))
	}
	return vocabulary, nil
}

type policyDocument struct {
	Config     fraud.Config        `yaml:"config"`
	Vocabulary map[string][]string `yaml:"vocabulary"`
}

// MarshalPolicy renders the effective policy as YAML.
func MarshalPolicy(p fraud.Policy) ([]byte, error) {
	doc := policyDocument{Config: p.Config, Vocabulary: make(map[string][]string)}
	for _, term := range p.Vocabulary.Terms {
		doc.Vocabulary[term.Category] = append(doc.Vocabulary[term.Category], term.Term)
	}
	return yaml.Marshal(doc)
}

func applyFraudEnv(cfg *fraud.Config) error {
	var problems []error
	setFloat := func(key string, dst *float64) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
	setInt := func(key string, dst *int) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}

	setFloat("WHITE_TEXT_RATIO_THRESHOLD", &cfg.WhiteTextRatioThreshold)
	setFloat("KEYWORD_STUFFING_THRESHOLD", &cfg.KeywordStuffingThreshold)
	setFloat("TINY_FONT_THRESHOLD_PT", &cfg.TinyFontThresholdPt)
	setFloat("RISK_LEVEL_MEDIUM_THRESHOLD", &cfg.RiskLevelThresholds.Medium)
	setFloat("RISK_LEVEL_HIGH_THRESHOLD", &cfg.RiskLevelThresholds.High)
	setInt("CONTENT_STREAM_SCAN_CAP_BYTES", &cfg.ContentStreamScanCapBytes)
	setInt("FRAUD_MAX_PARALLEL_DETECTORS", &cfg.MaxParallelDetectors)

	if len(problems) > 0 {
		return domain.WrapError(domain.ErrConfiguration, "read fraud env", errors.Join(problems...))
	}
	return nil
}
