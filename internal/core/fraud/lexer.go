package fraud

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokName
	tokString
	tokKeyword
	tokArrayOpen
	tokArrayClose
	tokDictOpen
	tokDictClose
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

// errUnterminated marks a token cut off by the end of input. Callers that
// truncated the stream on purpose treat it as a clean end.
var errUnterminated = errors.New("unterminated token")

// lexer splits a decoded page content stream into PDF tokens. It never
// allocates for string bodies since only operators and numbers matter here.
type lexer struct {
	data []byte
	pos  int
}

func newLexer(data []byte) *lexer {
	return &lexer{data: data}
}

func (l *lexer) malformed(format string, args ...any) error {
	return domain.WrapError(domain.ErrMalformedContentStream,
		fmt.Sprintf("offset %d", l.pos), fmt.Errorf(format, args...))
}

func (l *lexer) unterminated(what string) error {
	return domain.WrapError(domain.ErrMalformedContentStream,
		fmt.Sprintf("offset %d", l.pos), fmt.Errorf("%w: %s", errUnterminated, what))
}

// next returns io.EOF once the input is exhausted.
func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	if l.pos >= len(l.data) {
		return token{}, io.EOF
	}

	ch := l.data[l.pos]
	switch {
	case ch == '(':
		return l.readLiteralString()
	case ch == '<':
		if l.peek(1) == '<' {
			l.pos += 2
			return token{kind: tokDictOpen, text: "<<"}, nil
		}
		return l.readHexString()
	case ch == '>':
		if l.peek(1) == '>' {
			l.pos += 2
			return token{kind: tokDictClose, text: ">>"}, nil
		}
		return token{}, l.malformed("stray '>'")
	case ch == '[':
		l.pos++
		return token{kind: tokArrayOpen, text: "["}, nil
	case ch == ']':
		l.pos++
		return token{kind: tokArrayClose, text: "]"}, nil
	case ch == '{' || ch == '}':
		l.pos++
		return token{kind: tokKeyword, text: string(ch)}, nil
	case ch == ')':
		return token{}, l.malformed("stray ')'")
	case ch == '/':
		l.pos++
		return token{kind: tokName, text: string(l.readRegular())}, nil
	case isControlByte(ch):
		return token{}, l.malformed("binary byte 0x%02x outside string", ch)
	}

	raw := l.readRegular()
	if isNumberStart(raw[0]) {
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return token{}, l.malformed("invalid number %q", raw)
		}
		return token{kind: tokNumber, text: string(raw), num: n}, nil
	}
	return token{kind: tokKeyword, text: string(raw)}, nil
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset < len(l.data) {
		return l.data[l.pos+offset]
	}
	return 0
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		switch {
		case isPDFWhitespace(ch):
			l.pos++
		case ch == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) readRegular() []byte {
	start := l.pos
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		if isPDFWhitespace(ch) || isPDFDelimiter(ch) || isControlByte(ch) {
			break
		}
		l.pos++
	}
	return l.data[start:l.pos]
}

func (l *lexer) readLiteralString() (token, error) {
	l.pos++ // '('
	depth := 1
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		l.pos++
		switch ch {
		case '\\':
			l.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return token{kind: tokString}, nil
			}
		}
	}
	l.pos = len(l.data)
	return token{}, l.unterminated("literal string")
}

func (l *lexer) readHexString() (token, error) {
	l.pos++ // '<'
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		l.pos++
		switch {
		case ch == '>':
			return token{kind: tokString}, nil
		case isHexDigit(ch) || isPDFWhitespace(ch):
		default:
			return token{}, l.malformed("invalid byte 0x%02x in hex string", ch)
		}
	}
	return token{}, l.unterminated("hex string")
}

// skipInlineImage moves past binary inline image data that follows an ID
// operator, up to and including the EI keyword.
func (l *lexer) skipInlineImage() error {
	if l.pos < len(l.data) && isPDFWhitespace(l.data[l.pos]) {
		l.pos++
	}
	for {
		idx := bytes.Index(l.data[l.pos:], []byte("EI"))
		if idx < 0 {
			l.pos = len(l.data)
			return l.unterminated("inline image")
		}
		at := l.pos + idx
		before := at == 0 || isPDFWhitespace(l.data[at-1])
		after := at+2 >= len(l.data) || isPDFWhitespace(l.data[at+2]) || isPDFDelimiter(l.data[at+2])
		l.pos = at + 2
		if before && after {
			return nil
		}
	}
}

func isPDFWhitespace(ch byte) bool {
	switch ch {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFDelimiter(ch byte) bool {
	switch ch {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// isControlByte reports bytes that never appear outside strings in a
// well-formed decoded content stream.
func isControlByte(ch byte) bool {
	return (ch < 0x20 && !isPDFWhitespace(ch)) || ch == 0x7f
}

func isNumberStart(ch byte) bool {
	return (ch >= '0' && ch <= '9') || ch == '+' || ch == '-' || ch == '.'
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
