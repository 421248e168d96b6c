package domain

import (
	"sort"
	"strings"
)

type VocabularyTerm struct {
	Term     string `json:"term" yaml:"term"`
	Category string `json:"category" yaml:"category"`
}

// Vocabulary is the typed keyword reference used by stuffing and authenticity checks.
type Vocabulary struct {
	Terms []VocabularyTerm `json:"terms" yaml:"terms"`
}

// NewVocabulary builds a vocabulary from category -> terms, lower-cased and de-duplicated.
// Categories and terms come out sorted so iteration order is stable.
func NewVocabulary(byCategory map[string][]string) Vocabulary {
	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	seen := make(map[string]struct{})
	var terms []VocabularyTerm
	for _, category := range categories {
		list := append([]string(nil), byCategory[category]...)
		sort.Strings(list)
		for _, raw := range list {
			term := strings.ToLower(strings.Join(strings.Fields(raw), " "))
			if term == "" {
				continue
			}
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			terms = append(terms, VocabularyTerm{Term: term, Category: category})
		}
	}
	return Vocabulary{Terms: terms}
}

func (v Vocabulary) Len() int { return len(v.Terms) }

// DefaultVocabulary is a compact ATS-oriented skill list grouped by category.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(map[string][]string{
		"programming_languages": {
			"python", "java", "javascript", "typescript", "c++", "c#", "golang", "rust", "ruby",
			"php", "swift", "kotlin", "scala", "matlab", "sql",
		},
		"web_technologies": {
			"react", "angular", "vue", "node.js", "django", "flask", "spring", "express", "html", "css",
			"rest api", "graphql",
		},
		"databases": {
			"mysql", "postgresql", "mongodb", "redis", "elasticsearch", "oracle", "sqlite", "cassandra",
		},
		"cloud_platforms": {
			"aws", "azure", "gcp", "google cloud", "docker", "kubernetes", "terraform", "jenkins",
		},
		"data_science": {
			"machine learning", "deep learning", "tensorflow", "pytorch", "pandas", "numpy",
			"scikit-learn", "data analysis", "artificial intelligence", "nlp",
		},
		"soft_skills": {
			"leadership", "communication", "teamwork", "problem solving", "project management",
			"agile", "scrum",
		},
	})
}
