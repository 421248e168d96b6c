package fraud

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

func coloredChars(n int, color *domain.Color, size float64) []domain.Character {
	chars := make([]domain.Character, n)
	for i := range chars {
		chars[i] = domain.Character{
			Glyph:    "x",
			FontSize: size,
			Color:    color,
			Rect:     domain.Rect{X0: 72, Y0: 700, X1: 78, Y1: 711},
		}
	}
	return chars
}

func TestColorVisibilitySeverityByRatio(t *testing.T) {
	black := &domain.Color{}
	white := &domain.Color{R: 250, G: 250, B: 250}
	tests := []struct {
		hidden int
		want   domain.Severity
	}{
		{hidden: 8, want: domain.SeverityLow},
		{hidden: 15, want: domain.SeverityMedium},
		{hidden: 30, want: domain.SeverityHigh},
	}
	for _, tc := range tests {
		chars := append(coloredChars(100-tc.hidden, black, 11), coloredChars(tc.hidden, white, 11)...)
		doc := &domain.ExtractedDocument{Pages: []domain.Page{{Number: 1, Bounds: letterBounds, Characters: chars}}}
		result, err := detectColorVisibility(context.Background(), doc, DefaultPolicy())
		if err != nil {
			t.Fatalf("detect: %v", err)
		}
		if len(result.Findings) != 1 || result.Findings[0].Kind != KindHiddenText {
			t.Fatalf("hidden=%d: expected hidden text finding, got %+v", tc.hidden, result.Findings)
		}
		if result.Findings[0].Severity != tc.want {
			t.Fatalf("hidden=%d: expected %s, got %s", tc.hidden, tc.want, result.Findings[0].Severity)
		}
	}
}

func TestColorVisibilityUsesPageBackground(t *testing.T) {
	black := &domain.Color{}
	doc := &domain.ExtractedDocument{Pages: []domain.Page{{
		Number:     1,
		Bounds:     letterBounds,
		Background: &domain.Color{R: 5, G: 5, B: 5},
		Characters: coloredChars(10, black, 11),
	}}}
	result, _ := detectColorVisibility(context.Background(), doc, DefaultPolicy())
	if len(result.Findings) != 1 || result.Findings[0].EvidenceRatio != 1 {
		t.Fatalf("black text on black background must be hidden, got %+v", result.Findings)
	}
}

func TestColorVisibilityCountsTinyAndOffPageText(t *testing.T) {
	black := &domain.Color{}
	chars := coloredChars(80, black, 11)
	chars = append(chars, coloredChars(10, black, 1)...)
	off := coloredChars(10, black, 11)
	for i := range off {
		off[i].Rect = domain.Rect{X0: -500, Y0: 700, X1: -490, Y1: 711}
	}
	chars = append(chars, off...)
	doc := &domain.ExtractedDocument{Pages: []domain.Page{{Number: 1, Bounds: letterBounds, Characters: chars}}}

	result, _ := detectColorVisibility(context.Background(), doc, DefaultPolicy())
	if len(result.Findings) != 1 || result.Findings[0].EvidenceRatio != 0.2 {
		t.Fatalf("expected 20%% hidden, got %+v", result.Findings)
	}
	if !strings.Contains(result.Findings[0].Description, "10 are smaller than 3pt, 10 lie outside the page") {
		t.Fatalf("unexpected description %q", result.Findings[0].Description)
	}
}

func TestColorVisibilityReportsMissingMetadata(t *testing.T) {
	result, _ := detectColorVisibility(context.Background(), domain.TextOnlyDocument("plain text"), DefaultPolicy())
	if !result.Degraded || len(result.Findings) != 1 || result.Findings[0].Kind != KindMetadataUnavailable {
		t.Fatalf("expected metadata unavailable, got %+v", result)
	}

	doc := &domain.ExtractedDocument{Pages: []domain.Page{{Number: 1, Bounds: letterBounds, Characters: coloredChars(10, nil, 11)}}}
	result, _ = detectColorVisibility(context.Background(), doc, DefaultPolicy())
	if !result.Degraded || result.Findings[0].Kind != KindMetadataUnavailable || len(result.Findings) != 1 {
		t.Fatalf("characters without color must not be assumed visible, got %+v", result)
	}
}

func TestColorVisibilityStreamOnlyPagesReportMissingMetadata(t *testing.T) {
	doc := &domain.ExtractedDocument{Pages: []domain.Page{{Number: 1, Bounds: letterBounds, ContentStream: []byte("BT (a) Tj ET")}}}
	result, _ := detectColorVisibility(context.Background(), doc, DefaultPolicy())
	if !result.Degraded || len(result.Notes) != 1 || len(result.Findings) != 1 || result.Findings[0].Kind != KindMetadataUnavailable {
		t.Fatalf("expected metadata unavailable for stream-only page, got %+v", result)
	}

	result, _ = detectColorVisibility(context.Background(), &domain.ExtractedDocument{Pages: []domain.Page{{Number: 1}}}, DefaultPolicy())
	if len(result.Findings) != 0 || result.Degraded {
		t.Fatalf("a document with nothing extracted is left to the aggregator, got %+v", result)
	}
}

// layeredChars draws n pairs of different glyphs at nearly the same origin on
// the line y=600, spaced 10pt apart so pairs never touch each other.
func layeredChars(n int) []domain.Character {
	var chars []domain.Character
	for i := 0; i < n; i++ {
		x := 72 + float64(i)*10
		for j, glyph := range []string{"a", "b"} {
			chars = append(chars, domain.Character{
				Glyph:    glyph,
				FontSize: 11,
				Color:    &domain.Color{},
				Rect:     domain.Rect{X0: x + float64(j)*0.4, Y0: 600, X1: x + 6, Y1: 611},
			})
		}
	}
	return chars
}

func TestColorVisibilityFlagsOverlappingText(t *testing.T) {
	tests := []struct {
		pairs int
		want  domain.Severity
	}{
		{pairs: 6, want: domain.SeverityLow},
		{pairs: 16, want: domain.SeverityMedium},
		{pairs: 51, want: domain.SeverityHigh},
	}
	for _, tc := range tests {
		chars := append(coloredChars(2000, &domain.Color{}, 11), layeredChars(tc.pairs)...)
		doc := &domain.ExtractedDocument{Pages: []domain.Page{{Number: 1, Bounds: letterBounds, Characters: chars}}}
		result, _ := detectColorVisibility(context.Background(), doc, DefaultPolicy())
		if len(result.Findings) != 1 || result.Findings[0].Kind != KindOverlappingText {
			t.Fatalf("pairs=%d: expected overlapping text finding, got %+v", tc.pairs, result.Findings)
		}
		if f := result.Findings[0]; f.Severity != tc.want || !strings.Contains(f.Description, fmt.Sprintf("%d pairs", tc.pairs)) {
			t.Fatalf("pairs=%d: unexpected finding %+v", tc.pairs, f)
		}
	}
}

func TestColorVisibilityOverlapThresholdAndSameGlyph(t *testing.T) {
	doc := &domain.ExtractedDocument{Pages: []domain.Page{{Number: 1, Bounds: letterBounds, Characters: layeredChars(5)}}}
	result, _ := detectColorVisibility(context.Background(), doc, DefaultPolicy())
	if len(result.Findings) != 0 {
		t.Fatalf("five pairs is within tolerance, got %+v", result.Findings)
	}

	// Overprinting the same glyph is a common bold effect, not layering.
	doc.Pages[0].Characters = coloredChars(100, &domain.Color{}, 11)
	result, _ = detectColorVisibility(context.Background(), doc, DefaultPolicy())
	if len(result.Findings) != 0 {
		t.Fatalf("same glyph overprint must not count, got %+v", result.Findings)
	}
}

func TestCountOverlapsComparesNeighbourCells(t *testing.T) {
	chars := []domain.Character{
		{Glyph: "a", Rect: domain.Rect{X0: 9.9, Y0: 5}},
		{Glyph: "b", Rect: domain.Rect{X0: 10.1, Y0: 5.2}},
		{Glyph: "c", Rect: domain.Rect{X0: 11.5, Y0: 5}},
	}
	seen := make(map[*domain.Character]struct{})
	if got := countOverlaps(chars, 1, seen); got != 1 || len(seen) != 2 {
		t.Fatalf("countOverlaps() = %d (%d chars), want 1 pair across the cell edge", got, len(seen))
	}
}

func TestInvisibleCharactersSeverity(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Severity
	}{
		{name: "zero width", text: strings.Repeat("a", 100) + strings.Repeat("\u200b", 5), want: domain.SeverityMedium},
		{name: "many zero width", text: strings.Repeat("a", 90) + strings.Repeat("\u200d\ufeff", 5), want: domain.SeverityHigh},
		{name: "whitespace run", text: strings.Repeat("a", 988) + strings.Repeat(" ", 12), want: domain.SeverityLow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := detectInvisibleCharacters(context.Background(), domain.TextOnlyDocument(tc.text), DefaultPolicy())
			if err != nil {
				t.Fatalf("detect: %v", err)
			}
			if len(result.Findings) != 1 || result.Findings[0].Severity != tc.want {
				t.Fatalf("expected %s finding, got %+v", tc.want, result.Findings)
			}
		})
	}
}

func TestInvisibleCharactersIgnoresLayoutWhitespace(t *testing.T) {
	text := strings.Repeat("line of text\n", 50) + "\t\t\t" + strings.Repeat("\r\n", 20)
	result, _ := detectInvisibleCharacters(context.Background(), domain.TextOnlyDocument(text), DefaultPolicy())
	if len(result.Findings) != 0 {
		t.Fatalf("expected no finding, got %+v", result.Findings)
	}
}

func TestFormattingTinyCluster(t *testing.T) {
	black := &domain.Color{}
	chars := append(coloredChars(100, black, 11), coloredChars(10, black, 1)...)
	doc := &domain.ExtractedDocument{Pages: []domain.Page{{Number: 1, Characters: chars}}}

	result, _ := detectFormattingAnomalies(context.Background(), doc, DefaultPolicy())
	if len(result.Findings) != 1 {
		t.Fatalf("expected one finding, got %+v", result.Findings)
	}
	f := result.Findings[0]
	if f.Severity != domain.SeverityLow || !strings.Contains(f.Description, "cluster below 4pt") {
		t.Fatalf("unexpected finding %+v", f)
	}
}

func TestFormattingColorOutliersAndCombinedSignals(t *testing.T) {
	var chars []domain.Character
	for i := 0; i < 20; i++ {
		chars = append(chars, coloredChars(1, &domain.Color{R: float64(i * 10)}, 11)...)
	}
	doc := &domain.ExtractedDocument{Pages: []domain.Page{{Number: 1, Characters: chars}}}
	result, _ := detectFormattingAnomalies(context.Background(), doc, DefaultPolicy())
	if len(result.Findings) != 1 || result.Findings[0].Severity != domain.SeverityLow {
		t.Fatalf("expected low color outlier finding, got %+v", result.Findings)
	}

	chars = append(chars, coloredChars(3, &domain.Color{}, 1)...)
	doc.Pages[0].Characters = chars
	result, _ = detectFormattingAnomalies(context.Background(), doc, DefaultPolicy())
	if len(result.Findings) != 1 || result.Findings[0].Severity != domain.SeverityMedium {
		t.Fatalf("expected medium with two signals, got %+v", result.Findings)
	}
}

func TestFormattingIgnoresUniformDocument(t *testing.T) {
	doc := &domain.ExtractedDocument{Pages: []domain.Page{{Number: 1, Characters: coloredChars(500, &domain.Color{}, 11)}}}
	result, _ := detectFormattingAnomalies(context.Background(), doc, DefaultPolicy())
	if len(result.Findings) != 0 {
		t.Fatalf("expected nothing, got %+v", result.Findings)
	}
}

func TestAuthenticityFlags(t *testing.T) {
	result, _ := detectAuthenticity(context.Background(),
		domain.TextOnlyDocument("Engineer with 60 years of experience in everything."), DefaultPolicy())
	if len(result.Findings) != 1 {
		t.Fatalf("expected finding, got %+v", result.Findings)
	}
	f := result.Findings[0]
	if f.Severity != domain.SeverityMedium || f.EvidenceRatio != 0.5 {
		t.Fatalf("expected medium with two flags, got %+v", f)
	}
	if !strings.Contains(f.Description, "claims 60 years") || !strings.Contains(f.Description, "no email address or phone number") {
		t.Fatalf("unexpected description %q", f.Description)
	}
}

func TestAuthenticitySkillOverload(t *testing.T) {
	var skills []string
	for _, term := range domain.DefaultVocabulary().Terms[:21] {
		skills = append(skills, term.Term)
	}
	text := "jane@example.com. 1 year of experience. Skills: " + strings.Join(skills, ", ") + "."
	result, _ := detectAuthenticity(context.Background(), domain.TextOnlyDocument(text), DefaultPolicy())
	if len(result.Findings) != 1 {
		t.Fatalf("expected skill overload finding, got %+v", result.Findings)
	}
	if f := result.Findings[0]; f.Severity != domain.SeverityLow || !strings.Contains(f.Description, "listed skills with only 1 years") {
		t.Fatalf("unexpected finding %+v", f)
	}
}

func TestAuthenticityLowReadability(t *testing.T) {
	text := "contact: jane@example.com " + strings.Repeat("internationalization ", 120)
	result, _ := detectAuthenticity(context.Background(), domain.TextOnlyDocument(text), DefaultPolicy())
	if len(result.Findings) != 1 || !strings.Contains(result.Findings[0].Description, "reading ease") {
		t.Fatalf("expected readability flag, got %+v", result.Findings)
	}
}

func TestAuthenticityPlausibleResume(t *testing.T) {
	text := "Jane Doe, jane@example.com. Backend engineer with 6 years of experience building payment systems."
	result, _ := detectAuthenticity(context.Background(), domain.TextOnlyDocument(text), DefaultPolicy())
	if len(result.Findings) != 0 {
		t.Fatalf("expected no flags, got %+v", result.Findings)
	}
}

func TestCountSyllables(t *testing.T) {
	for word, want := range map[string]int{"developer": 4, "the": 1, "go": 1, "rhythm": 1, "code": 1} {
		if got := countSyllables(word); got != want {
			t.Fatalf("countSyllables(%q) = %d, want %d", word, got, want)
		}
	}
}
