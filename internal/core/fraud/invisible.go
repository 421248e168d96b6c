package fraud

import (
	"context"
	"fmt"
	"unicode"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff', '\u180e':
		return true
	}
	return false
}

// isNonPrinting covers format and control runes other than ordinary line
// and tab characters.
func isNonPrinting(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return false
	}
	return unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Cc, r)
}

func isHorizontalSpace(r rune) bool {
	return r != '\n' && r != '\r' && unicode.IsSpace(r)
}

func detectInvisibleCharacters(_ context.Context, doc *domain.ExtractedDocument, policy Policy) (Result, error) {
	cfg := policy.Config
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return Result{}, nil
	}

	var zeroWidth, nonPrinting, runChars, runs int
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case isZeroWidth(r):
			zeroWidth++
		case isNonPrinting(r):
			nonPrinting++
		case isHorizontalSpace(r):
			j := i + 1
			for j < len(runes) && isHorizontalSpace(runes[j]) {
				j++
			}
			if j-i >= cfg.WhitespaceRunMin {
				runChars += j - i
				runs++
			}
			i = j
			continue
		}
		i++
	}

	hidden := zeroWidth + nonPrinting + runChars
	ratio := float64(hidden) / float64(len(runes))
	if ratio <= cfg.InvisibleCharRatioThreshold {
		return Result{}, nil
	}

	severity := domain.SeverityLow
	switch {
	case ratio > 0.05:
		severity = domain.SeverityHigh
	case ratio > 0.02:
		severity = domain.SeverityMedium
	}
	return Result{Findings: []domain.DetectionFinding{{
		Kind:     KindInvisibleCharacters,
		Severity: severity,
		Description: fmt.Sprintf(
			"%.1f%% of text is invisible characters: %d zero-width, %d other non-printing, %d in %d whitespace runs",
			ratio*100, zeroWidth, nonPrinting, runChars, runs,
		),
		EvidenceRatio: ratio,
	}}}, nil
}
