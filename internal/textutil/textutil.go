// Package textutil provides the text helpers shared by discovery and
// search: episode title cleanup and term-frequency fingerprints for
// ranking search hits against a spoken query.
package textutil

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// CleanTitle normalizes a title scraped from a feed or an audio tag:
// collapses separator runs to single spaces, strips stray punctuation,
// and title-cases the result. Returns fallback when nothing survives.
func CleanTitle(raw, fallback string) string {
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range raw {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '\'' || r == ',' || r == '?' || r == '!':
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == ':':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return fallback
	}
	if title == strings.ToLower(title) {
		title = cases.Title(language.Und).String(title)
	}
	return title
}

// Fingerprint is a term-frequency vector used to score how well a piece
// of text matches a query.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint builds a fingerprint from text. Returns nil when the
// text produces no usable tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{
		tokens: counts,
		norm:   math.Sqrt(norm),
	}
}

// Tokenize lowercases text, splits on non-alphanumeric runs, and drops
// tokens shorter than 3 characters.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if len(token) < 3 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// Similarity returns the cosine similarity of two fingerprints in [0, 1].
func Similarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	small, large := a, b
	if len(large.tokens) < len(small.tokens) {
		small, large = large, small
	}
	var dot float64
	for token, count := range small.tokens {
		if other, ok := large.tokens[token]; ok {
			dot += count * other
		}
	}
	return dot / (a.norm * b.norm)
}
