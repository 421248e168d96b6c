package fraud

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

// detectFormattingAnomalies looks at font-size and color histograms. Its
// signals only corroborate other detectors.
func detectFormattingAnomalies(_ context.Context, doc *domain.ExtractedDocument, policy Policy) (Result, error) {
	cfg := policy.Config

	histogram := make(map[float64]int)
	colors := make(map[[3]int]struct{})
	var sized, tiny int
	var sum, sumSq float64
	for _, page := range doc.Pages {
		for _, ch := range page.Characters {
			if ch.Color != nil {
				colors[[3]int{int(math.Round(ch.Color.R)), int(math.Round(ch.Color.G)), int(math.Round(ch.Color.B))}] = struct{}{}
			}
			if ch.FontSize <= 0 {
				continue
			}
			sized++
			histogram[math.Round(ch.FontSize*2)/2]++
			sum += ch.FontSize
			sumSq += ch.FontSize * ch.FontSize
			if ch.FontSize < cfg.TinyClusterPt {
				tiny++
			}
		}
	}
	if sized == 0 && len(colors) == 0 {
		return Result{}, nil
	}

	var signals []string
	var evidence float64

	if sized > 0 {
		modal := modalBucket(histogram)
		tinyRatio := float64(tiny) / float64(sized)
		if modal >= cfg.TinyClusterPt && tinyRatio > cfg.TinyClusterRatio {
			signals = append(signals, fmt.Sprintf("%.1f%% of characters form a cluster below %gpt while body text is %gpt",
				tinyRatio*100, cfg.TinyClusterPt, modal))
			evidence = math.Max(evidence, tinyRatio)
		}

		mean := sum / float64(sized)
		variance := sumSq/float64(sized) - mean*mean
		if variance > cfg.FontSizeVarianceThreshold {
			signals = append(signals, fmt.Sprintf("font size variance %.1f is unusually high", variance))
		}
	}

	chars := doc.CharacterCount()
	limit := cfg.ColorOutlierBase + chars/cfg.ColorOutlierCharsPerColor
	if len(colors) > limit {
		signals = append(signals, fmt.Sprintf("%d distinct text colors for %d characters (expected at most %d)",
			len(colors), chars, limit))
		evidence = math.Max(evidence, math.Min(1, float64(len(colors)-limit)/float64(limit)))
	}

	if len(signals) == 0 {
		return Result{}, nil
	}
	severity := domain.SeverityLow
	if len(signals) >= 2 {
		severity = domain.SeverityMedium
	}
	return Result{Findings: []domain.DetectionFinding{{
		Kind:          KindFormattingAnomaly,
		Severity:      severity,
		Description:   "formatting anomalies: " + strings.Join(signals, "; "),
		EvidenceRatio: evidence,
	}}}, nil
}

// modalBucket returns the most common bucket, preferring the larger size on ties.
func modalBucket(histogram map[float64]int) float64 {
	var best float64
	bestCount := -1
	for size, count := range histogram {
		if count > bestCount || (count == bestCount && size > best) {
			best, bestCount = size, count
		}
	}
	return best
}
