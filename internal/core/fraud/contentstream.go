package fraud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

// letterBounds is used when a page does not declare a usable MediaBox.
var letterBounds = domain.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}

const (
	maxOperands         = 64
	cancelCheckEvery    = 4096
	whiteComponent      = 0.999
	renderModeInvisible = 3
)

type streamCounts struct {
	whiteColor     int
	whiteTextShows int
	invisibleMode  int
	invisibleShows int
	offPage        int
	truncated      bool
}

func (c *streamCounts) add(o streamCounts) {
	c.whiteColor += o.whiteColor
	c.whiteTextShows += o.whiteTextShows
	c.invisibleMode += o.invisibleMode
	c.invisibleShows += o.invisibleShows
	c.offPage += o.offPage
}

// matrix is a PDF affine transform [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// multiply returns m x n, applying m first.
func (m matrix) multiply(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func translation(tx, ty float64) matrix {
	return matrix{1, 0, 0, 1, tx, ty}
}

type graphicsState struct {
	ctm        matrix
	fillWhite  bool
	renderMode int
	leading    float64
}

// streamScanner interprets just enough of the PDF imaging model to know
// where text lands and whether it can be seen.
type streamScanner struct {
	ctx    context.Context
	lex    *lexer
	bounds domain.Rect
	tol    float64

	gs       graphicsState
	stack    []graphicsState
	tm, tlm  matrix
	operands []token
	depth    int // nesting inside arrays and dictionaries

	counts streamCounts
}

// scanContentStream counts hidden-text operator patterns on one page. Data
// past capBytes is ignored and reported through counts.truncated.
func scanContentStream(ctx context.Context, data []byte, bounds domain.Rect, cfg Config) (streamCounts, error) {
	truncated := false
	if cfg.ContentStreamScanCapBytes > 0 && len(data) > cfg.ContentStreamScanCapBytes {
		data = data[:cfg.ContentStreamScanCapBytes]
		truncated = true
	}
	if bounds.IsZero() || bounds.Width() <= 0 || bounds.Height() <= 0 {
		bounds = letterBounds
	}

	s := &streamScanner{
		ctx:    ctx,
		lex:    newLexer(data),
		bounds: bounds,
		tol:    cfg.OffPageTolerancePt,
		gs:     graphicsState{ctm: identity},
		tm:     identity,
		tlm:    identity,
	}
	err := s.run()
	if err != nil && truncated && errors.Is(err, errUnterminated) {
		err = nil
	}
	s.counts.truncated = truncated
	return s.counts, err
}

func (s *streamScanner) run() error {
	for n := 0; ; n++ {
		if n%cancelCheckEvery == 0 {
			if err := s.ctx.Err(); err != nil {
				return err
			}
		}

		tok, err := s.lex.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch tok.kind {
		case tokArrayOpen, tokDictOpen:
			s.depth++
			continue
		case tokArrayClose, tokDictClose:
			if s.depth == 0 {
				return s.lex.malformed("unbalanced %q", tok.text)
			}
			s.depth--
			if s.depth == 0 {
				s.push(token{kind: tokArrayOpen, text: "composite"})
			}
			continue
		}
		if s.depth > 0 {
			continue
		}
		if tok.kind != tokKeyword {
			s.push(tok)
			continue
		}

		if err := s.apply(tok.text); err != nil {
			return err
		}
		s.operands = s.operands[:0]
	}
}

func (s *streamScanner) push(tok token) {
	if len(s.operands) >= maxOperands {
		copy(s.operands, s.operands[1:])
		s.operands = s.operands[:len(s.operands)-1]
	}
	s.operands = append(s.operands, tok)
}

// nums returns the trailing n numeric operands, or false if they are missing.
func (s *streamScanner) nums(n int) ([]float64, bool) {
	if len(s.operands) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i, tok := range s.operands[len(s.operands)-n:] {
		if tok.kind != tokNumber {
			return nil, false
		}
		out[i] = tok.num
	}
	return out, true
}

func (s *streamScanner) apply(op string) error {
	switch op {
	case "q":
		s.stack = append(s.stack, s.gs)
	case "Q":
		if len(s.stack) > 0 {
			s.gs = s.stack[len(s.stack)-1]
			s.stack = s.stack[:len(s.stack)-1]
		}
	case "cm":
		if v, ok := s.nums(6); ok {
			s.gs.ctm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}.multiply(s.gs.ctm)
		}

	case "rg", "RG":
		if v, ok := s.nums(3); ok {
			white := allWhite(v...)
			if white {
				s.counts.whiteColor++
			}
			if op == "rg" {
				s.gs.fillWhite = white
			}
		}
	case "g", "G":
		if v, ok := s.nums(1); ok {
			white := allWhite(v...)
			if white {
				s.counts.whiteColor++
			}
			if op == "g" {
				s.gs.fillWhite = white
			}
		}
	case "k", "K":
		if v, ok := s.nums(4); ok {
			white := v[0] <= 1-whiteComponent && v[1] <= 1-whiteComponent &&
				v[2] <= 1-whiteComponent && v[3] <= 1-whiteComponent
			if white {
				s.counts.whiteColor++
			}
			if op == "k" {
				s.gs.fillWhite = white
			}
		}
	case "sc", "scn", "cs":
		// Color space unknown to us; assume the fill is no longer white.
		s.gs.fillWhite = false

	case "Tr":
		if v, ok := s.nums(1); ok {
			s.gs.renderMode = int(v[0])
			if s.gs.renderMode == renderModeInvisible {
				s.counts.invisibleMode++
			}
		}
	case "TL":
		if v, ok := s.nums(1); ok {
			s.gs.leading = v[0]
		}

	case "BT":
		s.tm, s.tlm = identity, identity
	case "Tm":
		if v, ok := s.nums(6); ok {
			s.tlm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}
			s.tm = s.tlm
			s.checkPosition()
		}
	case "Td", "TD":
		if v, ok := s.nums(2); ok {
			if op == "TD" {
				s.gs.leading = -v[1]
			}
			s.moveText(v[0], v[1])
			s.checkPosition()
		}
	case "T*":
		s.moveText(0, -s.gs.leading)

	case "Tj", "TJ":
		s.showText()
	case "'", "\"":
		s.moveText(0, -s.gs.leading)
		s.showText()

	case "ID":
		if err := s.lex.skipInlineImage(); err != nil {
			return err
		}
	}
	return nil
}

func (s *streamScanner) moveText(tx, ty float64) {
	s.tlm = translation(tx, ty).multiply(s.tlm)
	s.tm = s.tlm
}

func (s *streamScanner) checkPosition() {
	trm := s.tm.multiply(s.gs.ctm)
	x, y := trm[4], trm[5]
	if math.IsNaN(x) || math.IsNaN(y) || !s.bounds.Contains(x, y, s.tol) {
		s.counts.offPage++
	}
}

func (s *streamScanner) showText() {
	switch s.gs.renderMode {
	case renderModeInvisible, 7:
		s.counts.invisibleShows++
	case 0, 2, 4, 6:
		if s.gs.fillWhite {
			s.counts.whiteTextShows++
		}
	}
}

func allWhite(components ...float64) bool {
	for _, c := range components {
		if c < whiteComponent {
			return false
		}
	}
	return true
}

func detectContentStream(ctx context.Context, doc *domain.ExtractedDocument, policy Policy) (Result, error) {
	cfg := policy.Config
	var (
		result             Result
		total              streamCounts
		scanned, malformed int
		missing            int
		lastErr            error
	)

	for _, page := range doc.Pages {
		if page.ContentStream == nil {
			missing++
			continue
		}
		counts, err := scanContentStream(ctx, page.ContentStream, page.Bounds, cfg)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			malformed++
			lastErr = err
			result.Degraded = true
			result.Notes = append(result.Notes, fmt.Sprintf("page %d content stream skipped: %v", page.Number, err))
			continue
		}
		scanned++
		if counts.truncated {
			result.Degraded = true
			result.Notes = append(result.Notes, fmt.Sprintf(
				"page %d content stream truncated after %d bytes", page.Number, cfg.ContentStreamScanCapBytes))
		}
		total.add(counts)
	}

	if malformed > 0 && scanned == 0 {
		return Result{}, domain.WrapError(domain.ErrMalformedContentStream, "scan content streams",
			fmt.Errorf("all %d streams unreadable: %w", malformed, lastErr))
	}
	if missing > 0 && len(doc.Pages) > 0 {
		result.Degraded = true
		result.Notes = append(result.Notes, fmt.Sprintf("content stream unavailable for %d of %d pages", missing, len(doc.Pages)))
	}

	result.Findings = streamFindings(total, cfg)
	return result, nil
}

func streamFindings(c streamCounts, cfg Config) []domain.DetectionFinding {
	risk := math.Min(1, (float64(c.whiteColor)*0.4+float64(c.invisibleMode)*0.4+float64(c.offPage)*0.2)/cfg.ContentStreamBaseline)

	var findings []domain.DetectionFinding
	if c.invisibleMode >= 1 {
		severity := domain.SeverityMedium
		if c.invisibleMode >= 3 {
			severity = domain.SeverityHigh
		}
		findings = append(findings, domain.DetectionFinding{
			Kind:     KindInvisibleRenderMode,
			Severity: severity,
			Description: fmt.Sprintf("content stream switches to invisible text rendering (3 Tr) %d times, %d text runs drawn invisibly",
				c.invisibleMode, c.invisibleShows),
			EvidenceRatio: risk,
		})
	}
	if c.offPage >= 1 {
		severity := domain.SeverityLow
		switch {
		case c.offPage >= 10:
			severity = domain.SeverityHigh
		case c.offPage >= 3:
			severity = domain.SeverityMedium
		}
		findings = append(findings, domain.DetectionFinding{
			Kind:          KindOffPageText,
			Severity:      severity,
			Description:   fmt.Sprintf("content stream positions text outside the page %d times", c.offPage),
			EvidenceRatio: risk,
		})
	}
	if c.whiteColor >= cfg.WhiteColorMinOccurrences {
		severity := domain.SeverityLow
		switch {
		case c.whiteTextShows >= 10:
			severity = domain.SeverityHigh
		case c.whiteTextShows >= 1 || c.whiteColor >= 10:
			severity = domain.SeverityMedium
		}
		findings = append(findings, domain.DetectionFinding{
			Kind:     KindWhiteColor,
			Severity: severity,
			Description: fmt.Sprintf("content stream sets pure white color %d times, %d text runs drawn in white",
				c.whiteColor, c.whiteTextShows),
			EvidenceRatio: risk,
		})
	}
	return findings
}
