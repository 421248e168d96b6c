package domain

import "math"

// Color is an RGB fill color with components in 0..255.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

var White = Color{R: 255, G: 255, B: 255}

// Distance is the Euclidean distance between two colors in RGB space.
func (c Color) Distance(other Color) float64 {
	dr := c.R - other.R
	dg := c.G - other.G
	db := c.B - other.B
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// Rect is an axis-aligned box in PDF user space (origin bottom-left).
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

func (r Rect) IsZero() bool {
	return r.X0 == 0 && r.Y0 == 0 && r.X1 == 0 && r.Y1 == 0
}

// Intersects reports whether the two boxes overlap or touch.
func (r Rect) Intersects(other Rect) bool {
	return r.X0 <= other.X1 && other.X0 <= r.X1 && r.Y0 <= other.Y1 && other.Y0 <= r.Y1
}

// Contains reports whether the point lies inside r, widened by tolerance on every side.
func (r Rect) Contains(x, y, tolerance float64) bool {
	return x >= r.X0-tolerance && x <= r.X1+tolerance && y >= r.Y0-tolerance && y <= r.Y1+tolerance
}

// Character is one extracted glyph. A nil Color means the extractor could not
// determine the fill color; it is never replaced by a default.
type Character struct {
	Glyph    string  `json:"glyph"`
	FontSize float64 `json:"font_size"`
	Color    *Color  `json:"color"`
	Rect     Rect    `json:"rect"`
}

// Page holds per-page extraction output. A nil ContentStream means the
// stream was unavailable, an empty non-nil slice means the page draws nothing.
type Page struct {
	Number        int         `json:"number"`
	Bounds        Rect        `json:"bounds"`
	Background    *Color      `json:"background,omitempty"`
	Characters    []Character `json:"characters"`
	ContentStream []byte      `json:"-"`
}

// ExtractedDocument is the read-only bundle every detector consumes.
type ExtractedDocument struct {
	Pages    []Page   `json:"pages"`
	Text     string   `json:"text"`
	Warnings []string `json:"warnings,omitempty"`
}

func (d *ExtractedDocument) CharacterCount() int {
	total := 0
	for _, p := range d.Pages {
		total += len(p.Characters)
	}
	return total
}

func (d *ExtractedDocument) ContentStreamBytes() int {
	total := 0
	for _, p := range d.Pages {
		total += len(p.ContentStream)
	}
	return total
}

// IsEmpty reports that extraction produced nothing any detector can inspect.
func (d *ExtractedDocument) IsEmpty() bool {
	return d.CharacterCount() == 0 && d.ContentStreamBytes() == 0 && d.Text == ""
}

// TextOnlyDocument wraps plain text that never had page structure.
func TextOnlyDocument(text string) *ExtractedDocument {
	return &ExtractedDocument{Text: text}
}
