package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

const defaultMaxStreamBytes = 8 << 20

// Extractor turns PDF bytes into the page, glyph and stream bundle the
// fraud detectors read. The library exposes no fill colors, so every
// Character carries a nil Color.
type Extractor struct {
	maxPages       int
	maxStreamBytes int64
}

type Option func(*Extractor)

// WithMaxPages stops extraction after n pages. Zero reads every page.
func WithMaxPages(n int) Option {
	return func(e *Extractor) { e.maxPages = n }
}

func WithMaxStreamBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxStreamBytes = n
		}
	}
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{maxStreamBytes: defaultMaxStreamBytes}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (*domain.ExtractedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := openReader(r, size)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open pdf", err)
	}

	total := reader.NumPage()
	if e.maxPages > 0 && total > e.maxPages {
		total = e.maxPages
	}

	doc := &domain.ExtractedDocument{Pages: make([]domain.Page, 0, total)}
	var fallback strings.Builder
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, warnings := e.extractPage(reader, i)
		doc.Warnings = append(doc.Warnings, warnings...)
		doc.Pages = append(doc.Pages, page)
		for _, ch := range page.Characters {
			fallback.WriteString(ch.Glyph)
		}
		fallback.WriteByte('\n')
	}

	text, err := plainText(reader)
	if err != nil {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("plain text extraction failed: %v", err))
		text = fallback.String()
	}
	doc.Text = strings.TrimSpace(text)

	if len(doc.Warnings) > 0 {
		slog.Warn("pdf_extraction_warnings", "pages", total, "warnings", len(doc.Warnings))
	}
	return doc, nil
}

func (e *Extractor) extractPage(reader *pdf.Reader, number int) (domain.Page, []string) {
	page := domain.Page{Number: number}
	var warnings []string

	p, err := pageAt(reader, number)
	if err != nil {
		return page, append(warnings, fmt.Sprintf("page %d: %v", number, err))
	}

	page.Bounds = mediaBox(p.V)

	chars, err := pageCharacters(p)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("page %d glyphs: %v", number, err))
	}
	page.Characters = chars

	stream, truncated, err := e.contentStream(p.V)
	switch {
	case err != nil:
		warnings = append(warnings, fmt.Sprintf("page %d content stream: %v", number, err))
	case truncated:
		page.ContentStream = stream
		warnings = append(warnings, fmt.Sprintf("page %d content stream truncated at %d bytes", number, e.maxStreamBytes))
	default:
		page.ContentStream = stream
	}
	return page, warnings
}

// contentStream returns the decoded page content. Contents may be a single
// stream or an array whose parts are concatenated in order.
func (e *Extractor) contentStream(page pdf.Value) (data []byte, truncated bool, err error) {
	defer recoverInto(&err)

	contents := page.Key("Contents")
	var parts []pdf.Value
	switch contents.Kind() {
	case pdf.Null:
		return []byte{}, false, nil
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			parts = append(parts, contents.Index(i))
		}
	case pdf.Stream:
		parts = append(parts, contents)
	default:
		return nil, false, fmt.Errorf("unexpected /Contents kind %v", contents.Kind())
	}

	var buf bytes.Buffer
	remaining := e.maxStreamBytes
	for _, part := range parts {
		if part.Kind() != pdf.Stream {
			continue
		}
		rc := part.Reader()
		n, copyErr := io.Copy(&buf, io.LimitReader(rc, remaining+1))
		_ = rc.Close()
		if copyErr != nil {
			return nil, false, copyErr
		}
		remaining -= n
		if remaining < 0 {
			buf.Truncate(int(e.maxStreamBytes))
			return buf.Bytes(), true, nil
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), false, nil
}

func pageCharacters(p pdf.Page) (chars []domain.Character, err error) {
	defer recoverInto(&err)

	content := p.Content()
	chars = make([]domain.Character, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		chars = append(chars, domain.Character{
			Glyph:    t.S,
			FontSize: t.FontSize,
			Rect: domain.Rect{
				X0: t.X,
				Y0: t.Y,
				X1: t.X + t.W,
				Y1: t.Y + t.FontSize,
			},
		})
	}
	return chars, nil
}

// mediaBox walks up the page tree because MediaBox is inheritable.
func mediaBox(page pdf.Value) domain.Rect {
	node := page
	for depth := 0; depth < 32 && !node.IsNull(); depth++ {
		box := node.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			r := domain.Rect{
				X0: box.Index(0).Float64(),
				Y0: box.Index(1).Float64(),
				X1: box.Index(2).Float64(),
				Y1: box.Index(3).Float64(),
			}
			if r.X0 > r.X1 {
				r.X0, r.X1 = r.X1, r.X0
			}
			if r.Y0 > r.Y1 {
				r.Y0, r.Y1 = r.Y1, r.Y0
			}
			return r
		}
		node = node.Key("Parent")
	}
	return domain.Rect{}
}

func openReader(r io.ReaderAt, size int64) (reader *pdf.Reader, err error) {
	defer recoverInto(&err)
	if r == nil || size <= 0 {
		return nil, errors.New("document is empty")
	}
	return pdf.NewReader(r, size)
}

func pageAt(reader *pdf.Reader, number int) (page pdf.Page, err error) {
	defer recoverInto(&err)
	page = reader.Page(number)
	if page.V.IsNull() {
		return page, errors.New("page object missing")
	}
	return page, nil
}

func plainText(reader *pdf.Reader) (text string, err error) {
	defer recoverInto(&err)
	rd, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rd); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// recoverInto converts a parser panic into an error; the library panics on
// several classes of malformed input.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("pdf parser panic: %v", r)
	}
}
