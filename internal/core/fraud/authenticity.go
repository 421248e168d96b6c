package fraud

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
	yearsPattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*\+?\s*(?:years?|yrs?)\b`)
)

// detectAuthenticity applies text-only plausibility heuristics. Like
// formatting it only corroborates.
func detectAuthenticity(_ context.Context, doc *domain.ExtractedDocument, policy Policy) (Result, error) {
	cfg := policy.Config
	if strings.TrimSpace(doc.Text) == "" {
		return Result{}, nil
	}

	var flags []string
	unrealistic := false

	years, yearsFound := claimedYears(doc.Text)
	tokens := tokenize(doc.Text)
	skills := len(policy.vocabulary().count(tokens))
	if yearsFound && years < cfg.SkillOverloadMaxYears && skills > cfg.SkillOverloadCount {
		flags = append(flags, fmt.Sprintf("%d listed skills with only %d years of experience", skills, years))
	}
	if yearsFound && years > cfg.MaxPlausibleYears {
		flags = append(flags, fmt.Sprintf("claims %d years of experience", years))
		unrealistic = true
	}
	if !emailPattern.MatchString(doc.Text) && !phonePattern.MatchString(doc.Text) {
		flags = append(flags, "no email address or phone number")
	}
	if words := wordCount(doc.Text); words >= cfg.ReadabilityMinWordCount {
		if score := fleschReadingEase(doc.Text); score < cfg.MinReadability {
			flags = append(flags, fmt.Sprintf("reading ease %.0f suggests machine-generated text", score))
		}
	}

	if len(flags) == 0 {
		return Result{}, nil
	}
	severity := domain.SeverityLow
	if len(flags) >= 2 || unrealistic {
		severity = domain.SeverityMedium
	}
	return Result{Findings: []domain.DetectionFinding{{
		Kind:          KindAuthenticity,
		Severity:      severity,
		Description:   "authenticity red flags: " + strings.Join(flags, "; "),
		EvidenceRatio: float64(len(flags)) / 4,
	}}}, nil
}

// claimedYears returns the largest "N years" claim in the text.
func claimedYears(text string) (int, bool) {
	best, found := 0, false
	for _, m := range yearsPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if !found || n > best {
			best, found = n, true
		}
	}
	return best, found
}

func wordCount(text string) int {
	return len(strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) }))
}

func fleschReadingEase(text string) float64 {
	words := strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) })
	if len(words) == 0 {
		return 100
	}
	sentences := 0
	inTerminator := false
	for _, r := range text {
		terminator := r == '.' || r == '!' || r == '?'
		if terminator && !inTerminator {
			sentences++
		}
		inTerminator = terminator
	}
	if sentences == 0 {
		sentences = 1
	}
	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}
	return 206.835 - 1.015*float64(len(words))/float64(sentences) - 84.6*float64(syllables)/float64(len(words))
}

func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}
