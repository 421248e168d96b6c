package domain

import (
	"errors"
	"testing"
)

func TestNewVocabularyNormalizesAndDeduplicates(t *testing.T) {
	v := NewVocabulary(map[string][]string{
		"languages": {"Go", "  Machine   Learning ", "go", ""},
		"cloud":     {"AWS", "go"},
	})

	want := []VocabularyTerm{
		{Term: "aws", Category: "cloud"},
		{Term: "go", Category: "cloud"},
		{Term: "machine learning", Category: "languages"},
	}
	if len(v.Terms) != len(want) {
		t.Fatalf("unexpected terms %+v", v.Terms)
	}
	for i := range want {
		if v.Terms[i] != want[i] {
			t.Fatalf("term %d = %+v, want %+v", i, v.Terms[i], want[i])
		}
	}
}

func TestExtractedDocumentIsEmpty(t *testing.T) {
	if !(&ExtractedDocument{Pages: []Page{{Number: 1}}}).IsEmpty() {
		t.Fatalf("a page with no glyphs, stream or text is empty")
	}
	if (&ExtractedDocument{Pages: []Page{{Number: 1, ContentStream: []byte("q Q")}}}).IsEmpty() {
		t.Fatalf("stream bytes are analyzable")
	}
	if TextOnlyDocument("x").IsEmpty() {
		t.Fatalf("text is analyzable")
	}
}

func TestRectContainsTolerance(t *testing.T) {
	page := Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}
	if !page.Contains(-0.5, 10, 1) {
		t.Fatalf("point within tolerance must be inside")
	}
	if page.Contains(-2, 10, 1) {
		t.Fatalf("point beyond tolerance must be outside")
	}
}

func TestWrapErrorKeepsKind(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(ErrTemporary, "publish", cause)
	if !IsKind(err, ErrTemporary) || !errors.Is(err, cause) {
		t.Fatalf("expected kind and cause to be preserved: %v", err)
	}
	if WrapError(ErrTemporary, "noop", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}
