package fraud

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "for": {},
	"from": {}, "has": {}, "have": {}, "i": {}, "in": {}, "is": {}, "it": {}, "my": {}, "of": {},
	"on": {}, "or": {}, "our": {}, "that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "we": {},
	"with": {}, "will": {}, "you": {}, "your": {},
}

func isStopword(tok string) bool {
	_, ok := stopwords[tok]
	return ok
}

// tokenize lower-cases NFKC-normalized text and splits it into word tokens.
// Tokens keep the inner punctuation found in skill names such as c++, c#,
// node.js and scikit-learn.
func tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))

	var tokens []string
	var current strings.Builder
	flush := func() {
		tok := strings.Trim(current.String(), ".-_")
		if tok != "" {
			tokens = append(tokens, tok)
		}
		current.Reset()
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		case r == '+' || r == '#':
			if current.Len() > 0 {
				current.WriteRune(r)
			}
		case r == '.' || r == '-' || r == '_':
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

type indexedTerm struct {
	term     string
	category string
	tokens   []string
}

// vocabularyIndex groups vocabulary terms by their first token so matching
// stays linear in the document length.
type vocabularyIndex struct {
	terms   []indexedTerm
	byFirst map[string][]int
}

func newVocabularyIndex(v domain.Vocabulary) *vocabularyIndex {
	idx := &vocabularyIndex{byFirst: make(map[string][]int)}
	for _, t := range v.Terms {
		tokens := tokenize(t.Term)
		if len(tokens) == 0 {
			continue
		}
		idx.byFirst[tokens[0]] = append(idx.byFirst[tokens[0]], len(idx.terms))
		idx.terms = append(idx.terms, indexedTerm{term: t.Term, category: t.Category, tokens: tokens})
	}
	return idx
}

// count returns occurrences per term index.
func (idx *vocabularyIndex) count(tokens []string) map[int]int {
	counts := make(map[int]int)
	for i, tok := range tokens {
		for _, ti := range idx.byFirst[tok] {
			if hasPrefixAt(tokens, i, idx.terms[ti].tokens) {
				counts[ti]++
			}
		}
	}
	return counts
}

func hasPrefixAt(tokens []string, at int, want []string) bool {
	if at+len(want) > len(tokens) {
		return false
	}
	for j, w := range want {
		if tokens[at+j] != w {
			return false
		}
	}
	return true
}

type stuffedItem struct {
	label   string
	reason  string
	count   int
	covered int // tokens attributed to this item
}

func detectKeywordStuffing(ctx context.Context, doc *domain.ExtractedDocument, policy Policy) (Result, error) {
	cfg := policy.Config
	tokens := tokenize(doc.Text)
	total := len(tokens)
	if total == 0 {
		return Result{}, nil
	}

	var items []stuffedItem
	idx := policy.vocabulary()
	for ti, n := range idx.count(tokens) {
		freq := float64(n) / float64(total)
		if n >= cfg.KeywordMinOccurrences && freq > cfg.KeywordStuffingThreshold {
			term := idx.terms[ti]
			items = append(items, stuffedItem{
				label:   term.term,
				reason:  fmt.Sprintf("%.1f%% of words", freq*100),
				count:   n,
				covered: n * len(term.tokens),
			})
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	items = append(items, repeatedPhrases(tokens, cfg)...)
	items = append(items, repeatedWordRuns(tokens, cfg)...)
	if len(items) == 0 {
		return Result{}, nil
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].count != items[j].count {
			return items[i].count > items[j].count
		}
		if items[i].label != items[j].label {
			return items[i].label < items[j].label
		}
		return items[i].reason < items[j].reason
	})

	stuffed := 0
	for _, it := range items {
		stuffed += it.covered
	}
	density := clamp01(float64(stuffed) / float64(total))

	severity := domain.SeverityMedium
	if len(items) >= 3 || density > 0.10 {
		severity = domain.SeverityHigh
	}

	shown := items
	if len(shown) > 5 {
		shown = shown[:5]
	}
	parts := make([]string, 0, len(shown))
	for _, it := range shown {
		parts = append(parts, fmt.Sprintf("%q x%d (%s)", it.label, it.count, it.reason))
	}
	return Result{Findings: []domain.DetectionFinding{{
		Kind:     KindKeywordStuffing,
		Severity: severity,
		Description: fmt.Sprintf("keyword stuffing: %d unnaturally repeated terms covering %.1f%% of words: %s",
			len(items), density*100, strings.Join(parts, ", ")),
		EvidenceRatio: density,
	}}}, nil
}

// repeatedPhrases finds verbatim multi-word phrases repeated at least
// PhraseRepeatMin times. Longer phrases win: a shorter phrase is only reported
// for occurrences not already inside a reported longer one.
func repeatedPhrases(tokens []string, cfg Config) []stuffedItem {
	covered := make([]bool, len(tokens))
	var items []stuffedItem

	for n := cfg.MaxPhraseWords; n >= 2; n-- {
		if n > len(tokens) {
			continue
		}
		positions := make(map[string][]int)
		var order []string
		for i := 0; i+n <= len(tokens); i++ {
			window := tokens[i : i+n]
			if contentWords(window) < 2 {
				continue
			}
			key := strings.Join(window, " ")
			if _, seen := positions[key]; !seen {
				order = append(order, key)
			}
			positions[key] = append(positions[key], i)
		}

		var found []struct {
			key  string
			occs []int
		}
		for _, key := range order {
			occs := nonOverlapping(positions[key], n, covered)
			if len(occs) >= cfg.PhraseRepeatMin {
				found = append(found, struct {
					key  string
					occs []int
				}{key, occs})
			}
		}
		// Mark after the whole pass so equal-length phrases do not shadow each other.
		for _, f := range found {
			for _, at := range f.occs {
				for k := at; k < at+n; k++ {
					covered[k] = true
				}
			}
			items = append(items, stuffedItem{
				label:   f.key,
				reason:  "verbatim phrase",
				count:   len(f.occs),
				covered: len(f.occs) * n,
			})
		}
	}
	return items
}

// nonOverlapping keeps occurrences that neither overlap each other nor sit
// fully inside an already reported phrase.
func nonOverlapping(positions []int, n int, covered []bool) []int {
	var out []int
	next := 0
	for _, at := range positions {
		if at < next {
			continue
		}
		inside := true
		for k := at; k < at+n; k++ {
			if !covered[k] {
				inside = false
				break
			}
		}
		if inside {
			continue
		}
		out = append(out, at)
		next = at + n
	}
	return out
}

// contentWords counts distinct tokens in window that carry meaning.
func contentWords(window []string) int {
	seen := make(map[string]struct{}, len(window))
	for _, tok := range window {
		if !isStopword(tok) && len([]rune(tok)) > 1 {
			seen[tok] = struct{}{}
		}
	}
	return len(seen)
}

// repeatedWordRuns flags the same word typed back to back, as in "java java java".
func repeatedWordRuns(tokens []string, cfg Config) []stuffedItem {
	runs := make(map[string]*stuffedItem)
	var order []string
	for i := 0; i < len(tokens); {
		j := i + 1
		for j < len(tokens) && tokens[j] == tokens[i] {
			j++
		}
		if length := j - i; length >= cfg.WordRunMin && !isStopword(tokens[i]) && len([]rune(tokens[i])) > 1 {
			it, ok := runs[tokens[i]]
			if !ok {
				it = &stuffedItem{label: tokens[i], reason: "back-to-back repetition"}
				runs[tokens[i]] = it
				order = append(order, tokens[i])
			}
			it.count += length
			it.covered += length
		}
		i = j
	}

	items := make([]stuffedItem, 0, len(order))
	for _, word := range order {
		items = append(items, *runs[word])
	}
	return items
}
