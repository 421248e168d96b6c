package fraud

import (
	"context"
	"fmt"
	"math"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

func detectColorVisibility(_ context.Context, doc *domain.ExtractedDocument, policy Policy) (Result, error) {
	cfg := policy.Config
	total := doc.CharacterCount()
	if total == 0 {
		switch {
		case doc.ContentStreamBytes() > 0:
			return metadataUnavailable("pages draw content but no per-character metadata was extracted"), nil
		case doc.Text != "":
			return metadataUnavailable("document text has no per-character metadata"), nil
		}
		// Nothing was extracted at all; the aggregator reports that as unknown.
		return Result{}, nil
	}

	var withColor, background, tiny, offPage, suspicious, overlapPairs int
	overlapping := make(map[*domain.Character]struct{})
	for _, page := range doc.Pages {
		overlapPairs += countOverlaps(page.Characters, cfg.OverlapTolerancePt, overlapping)
		bg := domain.White
		if page.Background != nil {
			bg = *page.Background
		}
		checkBounds := !page.Bounds.IsZero()

		for _, ch := range page.Characters {
			hidden := false
			if ch.Color != nil {
				withColor++
				if ch.Color.Distance(bg) < cfg.ColorDistanceThreshold {
					background++
					hidden = true
				}
			}
			if ch.FontSize < cfg.TinyFontThresholdPt {
				tiny++
				hidden = true
			}
			if checkBounds && !ch.Rect.Intersects(page.Bounds) {
				offPage++
				hidden = true
			}
			if hidden {
				suspicious++
			}
		}
	}

	var result Result
	if withColor == 0 {
		result = metadataUnavailable(fmt.Sprintf("none of %d characters carry fill color", total))
	}

	ratio := float64(suspicious) / float64(total)
	if ratio > cfg.WhiteTextRatioThreshold {
		result.Findings = append(result.Findings, domain.DetectionFinding{
			Kind:     KindHiddenText,
			Severity: hiddenTextSeverity(ratio),
			Description: fmt.Sprintf(
				"%.1f%% of characters are visually hidden (%d of %d): %d match the background color, %d are smaller than %gpt, %d lie outside the page",
				ratio*100, suspicious, total, background, tiny, cfg.TinyFontThresholdPt, offPage,
			),
			EvidenceRatio: ratio,
		})
	}
	if overlapPairs > cfg.OverlapMinPairs {
		ratio := float64(len(overlapping)) / float64(total)
		result.Findings = append(result.Findings, domain.DetectionFinding{
			Kind:     KindOverlappingText,
			Severity: overlapSeverity(overlapPairs, cfg.OverlapMinPairs),
			Description: fmt.Sprintf("%d pairs of different characters are drawn within %gpt of each other (%d characters layered)",
				overlapPairs, cfg.OverlapTolerancePt, len(overlapping)),
			EvidenceRatio: ratio,
		})
	}
	return result, nil
}

type overlapCell struct{ x, y int }

// countOverlaps counts pairs of characters with different glyphs whose origins
// lie closer than tol on both axes. Origins are bucketed into tol-sized cells
// so only the 3x3 neighbourhood of each character is compared.
func countOverlaps(chars []domain.Character, tol float64, overlapping map[*domain.Character]struct{}) int {
	if tol <= 0 || len(chars) < 2 {
		return 0
	}
	cells := make(map[overlapCell][]*domain.Character, len(chars))
	pairs := 0
	for i := range chars {
		ch := &chars[i]
		cell := overlapCell{int(math.Floor(ch.Rect.X0 / tol)), int(math.Floor(ch.Rect.Y0 / tol))}
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for _, other := range cells[overlapCell{cell.x + dx, cell.y + dy}] {
					if other.Glyph == ch.Glyph ||
						math.Abs(other.Rect.X0-ch.Rect.X0) >= tol || math.Abs(other.Rect.Y0-ch.Rect.Y0) >= tol {
						continue
					}
					pairs++
					overlapping[ch] = struct{}{}
					overlapping[other] = struct{}{}
				}
			}
		}
		cells[cell] = append(cells[cell], ch)
	}
	return pairs
}

func overlapSeverity(pairs, minPairs int) domain.Severity {
	switch {
	case pairs > minPairs*10:
		return domain.SeverityHigh
	case pairs > minPairs*3:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func hiddenTextSeverity(ratio float64) domain.Severity {
	switch {
	case ratio > 0.20:
		return domain.SeverityHigh
	case ratio > 0.10:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func metadataUnavailable(reason string) Result {
	return Result{
		Findings: []domain.DetectionFinding{{
			Kind:          KindMetadataUnavailable,
			Severity:      domain.SeverityLow,
			Description:   "character color metadata unavailable; visibility could not be verified (" + reason + ")",
			EvidenceRatio: 0,
		}},
		Notes:    []string{"color metadata unavailable: " + reason},
		Degraded: true,
	}
}
