package fraud

import (
	"errors"
	"fmt"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

// RiskThresholds map a score onto a risk level: score >= High is high,
// score >= Medium is medium, anything else is low.
type RiskThresholds struct {
	Medium float64 `yaml:"medium" json:"medium"`
	High   float64 `yaml:"high" json:"high"`
}

// Weights scale each detector's contribution to the overall score.
type Weights struct {
	Color               float64 `yaml:"color" json:"color"`
	ContentStream       float64 `yaml:"content_stream" json:"content_stream"`
	KeywordStuffing     float64 `yaml:"keyword_stuffing" json:"keyword_stuffing"`
	InvisibleCharacters float64 `yaml:"invisible_characters" json:"invisible_characters"`
	Formatting          float64 `yaml:"formatting" json:"formatting"`
	Authenticity        float64 `yaml:"authenticity" json:"authenticity"`
}

// SeverityScores is the base contribution of a finding before weighting.
type SeverityScores struct {
	Low    float64 `yaml:"low" json:"low"`
	Medium float64 `yaml:"medium" json:"medium"`
	High   float64 `yaml:"high" json:"high"`
}

type Config struct {
	WhiteTextRatioThreshold   float64        `yaml:"white_text_ratio_threshold" json:"white_text_ratio_threshold"`
	KeywordStuffingThreshold  float64        `yaml:"keyword_stuffing_threshold" json:"keyword_stuffing_threshold"`
	TinyFontThresholdPt       float64        `yaml:"tiny_font_threshold_pt" json:"tiny_font_threshold_pt"`
	RiskLevelThresholds       RiskThresholds `yaml:"risk_level_thresholds" json:"risk_level_thresholds"`
	ContentStreamScanCapBytes int            `yaml:"content_stream_scan_cap_bytes" json:"content_stream_scan_cap_bytes"`

	// Color / visibility.
	ColorDistanceThreshold float64 `yaml:"color_distance_threshold" json:"color_distance_threshold"`
	OverlapTolerancePt     float64 `yaml:"overlap_tolerance_pt" json:"overlap_tolerance_pt"`
	OverlapMinPairs        int     `yaml:"overlap_min_pairs" json:"overlap_min_pairs"`

	// Content stream.
	ContentStreamBaseline    float64 `yaml:"content_stream_baseline" json:"content_stream_baseline"`
	WhiteColorMinOccurrences int     `yaml:"white_color_min_occurrences" json:"white_color_min_occurrences"`
	OffPageTolerancePt       float64 `yaml:"off_page_tolerance_pt" json:"off_page_tolerance_pt"`

	// Keyword stuffing.
	KeywordMinOccurrences int `yaml:"keyword_min_occurrences" json:"keyword_min_occurrences"`
	PhraseRepeatMin       int `yaml:"phrase_repeat_min" json:"phrase_repeat_min"`
	MaxPhraseWords        int `yaml:"max_phrase_words" json:"max_phrase_words"`
	WordRunMin            int `yaml:"word_run_min" json:"word_run_min"`

	// Invisible characters.
	InvisibleCharRatioThreshold float64 `yaml:"invisible_char_ratio_threshold" json:"invisible_char_ratio_threshold"`
	WhitespaceRunMin            int     `yaml:"whitespace_run_min" json:"whitespace_run_min"`

	// Formatting.
	TinyClusterPt             float64 `yaml:"tiny_cluster_pt" json:"tiny_cluster_pt"`
	TinyClusterRatio          float64 `yaml:"tiny_cluster_ratio" json:"tiny_cluster_ratio"`
	ColorOutlierBase          int     `yaml:"color_outlier_base" json:"color_outlier_base"`
	ColorOutlierCharsPerColor int     `yaml:"color_outlier_chars_per_color" json:"color_outlier_chars_per_color"`
	FontSizeVarianceThreshold float64 `yaml:"font_size_variance_threshold" json:"font_size_variance_threshold"`

	// Authenticity.
	SkillOverloadCount      int     `yaml:"skill_overload_count" json:"skill_overload_count"`
	SkillOverloadMaxYears   int     `yaml:"skill_overload_max_years" json:"skill_overload_max_years"`
	MaxPlausibleYears       int     `yaml:"max_plausible_years" json:"max_plausible_years"`
	MinReadability          float64 `yaml:"min_readability" json:"min_readability"`
	ReadabilityMinWordCount int     `yaml:"readability_min_word_count" json:"readability_min_word_count"`

	// Aggregation.
	Weights          Weights        `yaml:"weights" json:"weights"`
	SeverityScores   SeverityScores `yaml:"severity_scores" json:"severity_scores"`
	EvidenceBonus    float64        `yaml:"evidence_bonus" json:"evidence_bonus"`
	EscalationFactor float64        `yaml:"escalation_factor" json:"escalation_factor"`
	CorroboratingCap float64        `yaml:"corroborating_cap" json:"corroborating_cap"`

	MaxParallelDetectors int `yaml:"max_parallel_detectors" json:"max_parallel_detectors"`
}

func DefaultConfig() Config {
	return Config{
		WhiteTextRatioThreshold:   0.05,
		KeywordStuffingThreshold:  0.02,
		TinyFontThresholdPt:       3,
		RiskLevelThresholds:       RiskThresholds{Medium: 0.2, High: 0.5},
		ContentStreamScanCapBytes: 2_000_000,

		ColorDistanceThreshold: 30,
		OverlapTolerancePt:     1,
		OverlapMinPairs:        5,

		ContentStreamBaseline:    50,
		WhiteColorMinOccurrences: 3,
		OffPageTolerancePt:       1,

		KeywordMinOccurrences: 3,
		PhraseRepeatMin:       4,
		MaxPhraseWords:        5,
		WordRunMin:            3,

		InvisibleCharRatioThreshold: 0.01,
		WhitespaceRunMin:            10,

		TinyClusterPt:             4,
		TinyClusterRatio:          0.03,
		ColorOutlierBase:          10,
		ColorOutlierCharsPerColor: 500,
		FontSizeVarianceThreshold: 50,

		SkillOverloadCount:      20,
		SkillOverloadMaxYears:   2,
		MaxPlausibleYears:       50,
		MinReadability:          30,
		ReadabilityMinWordCount: 100,

		Weights: Weights{
			Color:               0.8,
			ContentStream:       1.0,
			KeywordStuffing:     1.0,
			InvisibleCharacters: 0.6,
			Formatting:          0.3,
			Authenticity:        0.3,
		},
		SeverityScores:   SeverityScores{Low: 0.1, Medium: 0.25, High: 0.5},
		EvidenceBonus:    0.25,
		EscalationFactor: 1.5,
		CorroboratingCap: 0.3,

		MaxParallelDetectors: 4,
	}
}

// Validate rejects configurations that would make every analysis meaningless.
// It is meant to run once at startup.
func (c Config) Validate() error {
	var problems []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	check(inOpenUnit(c.WhiteTextRatioThreshold), "white_text_ratio_threshold must be in (0,1), got %v", c.WhiteTextRatioThreshold)
	check(inOpenUnit(c.KeywordStuffingThreshold), "keyword_stuffing_threshold must be in (0,1), got %v", c.KeywordStuffingThreshold)
	check(c.TinyFontThresholdPt > 0, "tiny_font_threshold_pt must be positive, got %v", c.TinyFontThresholdPt)
	check(c.RiskLevelThresholds.Medium > 0, "risk_level_thresholds.medium must be positive, got %v", c.RiskLevelThresholds.Medium)
	check(c.RiskLevelThresholds.Medium < c.RiskLevelThresholds.High,
		"risk_level_thresholds.medium (%v) must be below high (%v)", c.RiskLevelThresholds.Medium, c.RiskLevelThresholds.High)
	check(c.RiskLevelThresholds.High <= 1, "risk_level_thresholds.high must be at most 1, got %v", c.RiskLevelThresholds.High)
	check(c.ContentStreamScanCapBytes > 0, "content_stream_scan_cap_bytes must be positive, got %d", c.ContentStreamScanCapBytes)

	check(c.ColorDistanceThreshold >= 0, "color_distance_threshold must not be negative, got %v", c.ColorDistanceThreshold)
	check(c.OverlapTolerancePt > 0, "overlap_tolerance_pt must be positive, got %v", c.OverlapTolerancePt)
	check(c.OverlapMinPairs >= 0, "overlap_min_pairs must not be negative, got %d", c.OverlapMinPairs)
	check(c.ContentStreamBaseline > 0, "content_stream_baseline must be positive, got %v", c.ContentStreamBaseline)
	check(c.WhiteColorMinOccurrences >= 1, "white_color_min_occurrences must be at least 1, got %d", c.WhiteColorMinOccurrences)
	check(c.OffPageTolerancePt >= 0, "off_page_tolerance_pt must not be negative, got %v", c.OffPageTolerancePt)

	check(c.KeywordMinOccurrences >= 1, "keyword_min_occurrences must be at least 1, got %d", c.KeywordMinOccurrences)
	check(c.PhraseRepeatMin >= 2, "phrase_repeat_min must be at least 2, got %d", c.PhraseRepeatMin)
	check(c.MaxPhraseWords >= 2, "max_phrase_words must be at least 2, got %d", c.MaxPhraseWords)
	check(c.WordRunMin >= 2, "word_run_min must be at least 2, got %d", c.WordRunMin)

	check(inOpenUnit(c.InvisibleCharRatioThreshold), "invisible_char_ratio_threshold must be in (0,1), got %v", c.InvisibleCharRatioThreshold)
	check(c.WhitespaceRunMin >= 2, "whitespace_run_min must be at least 2, got %d", c.WhitespaceRunMin)

	check(c.TinyClusterPt > 0, "tiny_cluster_pt must be positive, got %v", c.TinyClusterPt)
	check(inOpenUnit(c.TinyClusterRatio), "tiny_cluster_ratio must be in (0,1), got %v", c.TinyClusterRatio)
	check(c.ColorOutlierBase >= 1, "color_outlier_base must be at least 1, got %d", c.ColorOutlierBase)
	check(c.ColorOutlierCharsPerColor >= 1, "color_outlier_chars_per_color must be at least 1, got %d", c.ColorOutlierCharsPerColor)
	check(c.FontSizeVarianceThreshold > 0, "font_size_variance_threshold must be positive, got %v", c.FontSizeVarianceThreshold)

	check(c.SkillOverloadCount >= 1, "skill_overload_count must be at least 1, got %d", c.SkillOverloadCount)
	check(c.SkillOverloadMaxYears >= 0, "skill_overload_max_years must not be negative, got %d", c.SkillOverloadMaxYears)
	check(c.MaxPlausibleYears >= 1, "max_plausible_years must be at least 1, got %d", c.MaxPlausibleYears)
	check(c.ReadabilityMinWordCount >= 1, "readability_min_word_count must be at least 1, got %d", c.ReadabilityMinWordCount)

	w := c.Weights
	check(w.Color >= 0 && w.ContentStream >= 0 && w.KeywordStuffing >= 0 &&
		w.InvisibleCharacters >= 0 && w.Formatting >= 0 && w.Authenticity >= 0,
		"weights must not be negative: %+v", w)
	s := c.SeverityScores
	check(s.Low >= 0 && s.Low <= s.Medium && s.Medium <= s.High, "severity_scores must satisfy 0 <= low <= medium <= high: %+v", s)
	check(c.EvidenceBonus >= 0, "evidence_bonus must not be negative, got %v", c.EvidenceBonus)
	check(c.EscalationFactor >= 1, "escalation_factor must be at least 1, got %v", c.EscalationFactor)
	check(c.CorroboratingCap >= 0 && c.CorroboratingCap < c.RiskLevelThresholds.High,
		"corroborating_cap (%v) must be in [0, high threshold %v)", c.CorroboratingCap, c.RiskLevelThresholds.High)

	check(c.MaxParallelDetectors >= 1, "max_parallel_detectors must be at least 1, got %d", c.MaxParallelDetectors)

	if len(problems) == 0 {
		return nil
	}
	return domain.WrapError(domain.ErrConfiguration, "validate fraud config", errors.Join(problems...))
}

// Level maps a score to its risk level. It is monotonic in score.
func (c Config) Level(score float64) domain.RiskLevel {
	switch {
	case score >= c.RiskLevelThresholds.High:
		return domain.RiskHigh
	case score >= c.RiskLevelThresholds.Medium:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func (c Config) severityScore(s domain.Severity) float64 {
	switch s {
	case domain.SeverityHigh:
		return c.SeverityScores.High
	case domain.SeverityMedium:
		return c.SeverityScores.Medium
	case domain.SeverityLow:
		return c.SeverityScores.Low
	default:
		return 0
	}
}

func (c Config) weight(detector string) float64 {
	switch detector {
	case DetectorColor:
		return c.Weights.Color
	case DetectorContentStream:
		return c.Weights.ContentStream
	case DetectorKeywordStuffing:
		return c.Weights.KeywordStuffing
	case DetectorInvisibleCharacters:
		return c.Weights.InvisibleCharacters
	case DetectorFormatting:
		return c.Weights.Formatting
	case DetectorAuthenticity:
		return c.Weights.Authenticity
	default:
		return 0
	}
}

func inOpenUnit(v float64) bool { return v > 0 && v < 1 }

// Policy is the per-call analysis configuration: thresholds plus vocabulary.
// Build it with NewPolicy so the vocabulary index is prepared once.
type Policy struct {
	Config     Config
	Vocabulary domain.Vocabulary

	index *vocabularyIndex
}

func NewPolicy(cfg Config, vocabulary domain.Vocabulary) (Policy, error) {
	if err := cfg.Validate(); err != nil {
		return Policy{}, err
	}
	return Policy{
		Config:     cfg,
		Vocabulary: vocabulary,
		index:      newVocabularyIndex(vocabulary),
	}, nil
}

// DefaultPolicy uses the default thresholds and the built-in skill vocabulary.
func DefaultPolicy() Policy {
	policy, err := NewPolicy(DefaultConfig(), domain.DefaultVocabulary())
	if err != nil {
		panic(fmt.Sprintf("default fraud policy is invalid: %v", err))
	}
	return policy
}

func (p Policy) vocabulary() *vocabularyIndex {
	if p.index != nil {
		return p.index
	}
	return newVocabularyIndex(p.Vocabulary)
}
