package fraud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

var (
	black      = &domain.Color{R: 0, G: 0, B: 0}
	pageBounds = domain.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}
)

func bodyChars(n int, color *domain.Color, size float64) []domain.Character {
	chars := make([]domain.Character, 0, n)
	for i := 0; i < n; i++ {
		x := 72 + float64(i%80)*5
		y := 720 - float64(i/80%120)*5
		chars = append(chars, domain.Character{
			Glyph:    "a",
			FontSize: size,
			Color:    color,
			Rect:     domain.Rect{X0: x, Y0: y, X1: x + 5, Y1: y + size},
		})
	}
	return chars
}

func page(number int, chars []domain.Character, stream string) domain.Page {
	return domain.Page{
		Number:        number,
		Bounds:        pageBounds,
		Characters:    chars,
		ContentStream: []byte(stream),
	}
}

const cleanStream = "q 1 0 0 1 0 0 cm BT /F1 11 Tf 0 0 0 rg 72 720 Td (Experienced engineer) Tj 0 -14 Td (Payments) Tj ET Q"

const cleanText = "Jane Doe\njane.doe@example.com\n+1 555 123 4567\n" +
	"Software engineer with 6 years of experience building payment systems. " +
	"Led a team that migrated billing to PostgreSQL."

func findingsFor(report *domain.FraudReport, detector string) []domain.DetectionFinding {
	var out []domain.DetectionFinding
	for _, f := range report.Findings {
		if f.Detector == detector {
			out = append(out, f)
		}
	}
	return out
}

func containsIssue(report *domain.FraudReport, fragment string) bool {
	for _, issue := range report.DetectedIssues {
		if strings.Contains(issue, fragment) {
			return true
		}
	}
	return false
}

func TestAnalyzeCleanResumeIsLowRisk(t *testing.T) {
	doc := &domain.ExtractedDocument{Text: cleanText}
	for i := 1; i <= 4; i++ {
		doc.Pages = append(doc.Pages, page(i, bodyChars(1000, black, 11), cleanStream))
	}

	report, err := Analyze(context.Background(), doc, DefaultPolicy())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if report.RiskLevel != domain.RiskLow {
		t.Fatalf("expected low risk, got %s (score %v, findings %+v)", report.RiskLevel, report.RiskScore, report.Findings)
	}
	if report.DetectedIssues == nil || len(report.DetectedIssues) != 0 {
		t.Fatalf("expected empty detected issues, got %#v", report.DetectedIssues)
	}
	if report.Degraded {
		t.Fatalf("expected complete analysis, got reasons %v", report.DegradationReasons)
	}
}

func TestAnalyzeWhiteInvisibleTextInStreamIsHighRisk(t *testing.T) {
	var stream strings.Builder
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&stream, "BT /F1 10 Tf 1 1 1 rg 3 Tr 72 %d Td (python aws kubernetes) Tj ET\n", 700-i*12)
	}
	doc := &domain.ExtractedDocument{
		Text:  cleanText,
		Pages: []domain.Page{page(1, bodyChars(800, black, 11), stream.String())},
	}

	report, err := Analyze(context.Background(), doc, DefaultPolicy())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	var invisible *domain.DetectionFinding
	for _, f := range findingsFor(report, DetectorContentStream) {
		if f.Kind == KindInvisibleRenderMode {
			invisible = &f
		}
	}
	if invisible == nil || invisible.Severity != domain.SeverityHigh {
		t.Fatalf("expected high invisible render mode finding, got %+v", report.Findings)
	}
	if report.RiskLevel != domain.RiskHigh {
		t.Fatalf("expected high risk, got %s (score %v)", report.RiskLevel, report.RiskScore)
	}
}

func TestAnalyzeRepeatedPhraseIsMediumKeywordStuffing(t *testing.T) {
	var words []string
	filler, phrases := 0, 0
	for len(words) < 500 {
		if phrases < 6 && len(words)%80 == 10 {
			words = append(words, "Python", "developer")
			phrases++
			continue
		}
		filler++
		word := fmt.Sprintf("w%d", filler)
		if filler%10 == 0 {
			word += "."
		}
		words = append(words, word)
	}
	text := "Contact: dev@example.com. " + strings.Join(words, " ")
	if got := strings.Count(text, "Python developer"); got != 6 {
		t.Fatalf("fixture must repeat the phrase 6 times, got %d", got)
	}

	report, err := Analyze(context.Background(), domain.TextOnlyDocument(text), DefaultPolicy())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	stuffing := findingsFor(report, DetectorKeywordStuffing)
	if len(stuffing) != 1 || stuffing[0].Severity != domain.SeverityMedium {
		t.Fatalf("expected one medium keyword stuffing finding, got %+v", stuffing)
	}
	if !containsIssue(report, "python developer") {
		t.Fatalf("expected keyword stuffing issue, got %v", report.DetectedIssues)
	}
	if report.RiskLevel != domain.RiskMedium {
		t.Fatalf("expected medium risk, got %s (score %v)", report.RiskLevel, report.RiskScore)
	}
}

func TestAnalyzeEscalatesWhenColorMetadataMissing(t *testing.T) {
	stream := "BT /F1 10 Tf 3 Tr 72 700 Td (hidden skills) Tj ET BT 3 Tr 72 680 Td (more skills) Tj ET"
	doc := &domain.ExtractedDocument{
		Text:  cleanText,
		Pages: []domain.Page{page(1, bodyChars(200, nil, 11), stream)},
	}

	report, err := Analyze(context.Background(), doc, DefaultPolicy())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if report.RiskLevel == domain.RiskLow {
		t.Fatalf("expected escalation above low, got score %v", report.RiskScore)
	}
	if report.RiskScore < DefaultConfig().RiskLevelThresholds.Medium {
		t.Fatalf("expected score at least medium threshold, got %v", report.RiskScore)
	}
	if !containsIssue(report, "risk escalated") {
		t.Fatalf("expected escalation issue, got %v", report.DetectedIssues)
	}
	if !report.Degraded {
		t.Fatalf("expected degraded report when color metadata is missing")
	}
}

func TestAnalyzeStreamOnlyDocumentIsDegradedAndEscalated(t *testing.T) {
	doc := &domain.ExtractedDocument{Pages: []domain.Page{
		page(1, nil, "BT 3 Tr 72 700 Td (a) Tj ET BT 3 Tr 72 680 Td (b) Tj ET"),
	}}

	report, err := Analyze(context.Background(), doc, DefaultPolicy())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	color := findingsFor(report, DetectorColor)
	if len(color) != 1 || color[0].Kind != KindMetadataUnavailable {
		t.Fatalf("expected metadata unavailable color finding, got %+v", color)
	}
	if !report.Degraded || len(report.DegradationReasons) == 0 {
		t.Fatalf("expected degraded report with reasons, got %+v", report)
	}
	if !containsIssue(report, "risk escalated") {
		t.Fatalf("expected escalation issue, got %v", report.DetectedIssues)
	}
	if report.RiskLevel == domain.RiskLow || report.RiskLevel == domain.RiskUnknown {
		t.Fatalf("expected at least medium risk, got %s (score %v)", report.RiskLevel, report.RiskScore)
	}
}

func TestAnalyzeSingleOffPageMoveStaysLowButDegraded(t *testing.T) {
	doc := &domain.ExtractedDocument{
		Text:  cleanText,
		Pages: []domain.Page{page(1, bodyChars(200, nil, 11), cleanStream+" BT 700 10 Td (x) Tj ET")},
	}

	report, err := Analyze(context.Background(), doc, DefaultPolicy())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if report.RiskLevel != domain.RiskLow {
		t.Fatalf("expected low risk for one stray move, got %s (score %v)", report.RiskLevel, report.RiskScore)
	}
	if !report.Degraded {
		t.Fatalf("missing color metadata must still mark the report degraded")
	}
}

func TestAnalyzeSkipsCorruptPageAndScoresTheRest(t *testing.T) {
	valid := "BT /F1 10 Tf 3 Tr 72 700 Td (hidden) Tj ET"
	corrupt := "BT /F1 10 Tf 3 Tr 3 Tr 3 Tr 72 700 Td (never closed"

	withCorrupt := &domain.ExtractedDocument{Text: cleanText}
	validOnly := &domain.ExtractedDocument{Text: cleanText}
	for i := 1; i <= 5; i++ {
		if i == 3 {
			withCorrupt.Pages = append(withCorrupt.Pages, page(i, bodyChars(100, black, 11), corrupt))
			continue
		}
		withCorrupt.Pages = append(withCorrupt.Pages, page(i, bodyChars(100, black, 11), valid))
		validOnly.Pages = append(validOnly.Pages, page(i, bodyChars(100, black, 11), valid))
	}

	policy := DefaultPolicy()
	got, err := Analyze(context.Background(), withCorrupt, policy)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	want, err := Analyze(context.Background(), validOnly, policy)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if !got.Degraded {
		t.Fatalf("expected degraded report")
	}
	if got.RiskScore != want.RiskScore {
		t.Fatalf("expected score from valid pages %v, got %v", want.RiskScore, got.RiskScore)
	}
	found := false
	for _, reason := range got.DegradationReasons {
		if strings.Contains(reason, "page 3") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected page 3 degradation note, got %v", got.DegradationReasons)
	}
}

func TestAnalyzeEmptyExtractionIsUnknownNotClean(t *testing.T) {
	docs := []*domain.ExtractedDocument{
		{},
		{Pages: []domain.Page{{Number: 1, Bounds: pageBounds}}},
		{Pages: []domain.Page{{Number: 1, ContentStream: []byte{}}, {Number: 2}}},
	}
	for i, doc := range docs {
		report, err := Analyze(context.Background(), doc, DefaultPolicy())
		if err != nil {
			t.Fatalf("doc %d: Analyze() error = %v", i, err)
		}
		if report.RiskScore != 0 {
			t.Fatalf("doc %d: expected zero score, got %v", i, report.RiskScore)
		}
		if !report.Degraded || report.RiskLevel != domain.RiskUnknown {
			t.Fatalf("doc %d: expected degraded unknown report, got %+v", i, report)
		}
	}
}

func TestAnalyzeIsByteIdenticalAcrossRuns(t *testing.T) {
	stream := "BT 1 1 1 rg 3 Tr 72 700 Td (x) Tj ET BT 1 g 72 900 Td (y) Tj ET 1 1 1 RG 1 G"
	text := cleanText + " java java java python python python python aws aws aws \u200b\u200b\u200b"
	doc := &domain.ExtractedDocument{
		Text: text,
		Pages: []domain.Page{
			page(1, append(bodyChars(300, black, 11), bodyChars(40, &domain.Color{R: 250, G: 250, B: 250}, 2)...), stream),
			page(2, bodyChars(100, nil, 9), ""),
		},
	}

	policy := DefaultPolicy()
	var first []byte
	for i := 0; i < 5; i++ {
		report, err := Analyze(context.Background(), doc, policy)
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		raw, err := json.Marshal(report)
		if err != nil {
			t.Fatalf("marshal report: %v", err)
		}
		if first == nil {
			first = raw
			continue
		}
		if !bytes.Equal(first, raw) {
			t.Fatalf("report differs between runs:\n%s\n%s", first, raw)
		}
	}
}

func TestAnalyzeReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Analyze(ctx, domain.TextOnlyDocument(cleanText), DefaultPolicy())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunDetectorsIsolatesPanics(t *testing.T) {
	list := []detector{
		{name: "exploding", run: func(context.Context, *domain.ExtractedDocument, Policy) (Result, error) {
			panic("unparseable color value")
		}},
		{name: DetectorInvisibleCharacters, run: detectInvisibleCharacters},
	}
	doc := domain.TextOnlyDocument("hidden\u200b\u200b\u200b\u200b text")

	outcomes := runDetectors(context.Background(), doc, DefaultPolicy(), list)
	if !domain.IsKind(outcomes[0].Err, domain.ErrDetectorFailure) {
		t.Fatalf("expected detector failure for panicking detector, got %v", outcomes[0].Err)
	}
	if outcomes[1].Err != nil || len(outcomes[1].Result.Findings) != 1 {
		t.Fatalf("expected healthy detector to report, got %+v", outcomes[1])
	}

	report := Aggregate(outcomes, DefaultConfig())
	if !report.Degraded {
		t.Fatalf("expected degraded report")
	}
	if !strings.Contains(strings.Join(report.DegradationReasons, "\n"), "exploding") {
		t.Fatalf("expected failure note, got %v", report.DegradationReasons)
	}
}

func TestDetectorNamesFollowExecutionOrder(t *testing.T) {
	want := []string{
		DetectorColor, DetectorContentStream, DetectorKeywordStuffing,
		DetectorInvisibleCharacters, DetectorFormatting, DetectorAuthenticity,
	}
	got := DetectorNames()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected detector order: %v", got)
	}
}
