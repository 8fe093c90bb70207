// Package textutil provides text processing helpers for the retrieval
// pipeline: vector similarity, content fingerprinting, tokenization, and
// truncation.
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// CosineSimilarity computes the cosine similarity of two vectors.
// The result is in [-1, 1]; mismatched lengths, empty vectors, and
// zero-norm vectors all yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Fingerprint returns the SHA-256 digest of text as 64 lowercase hex
// characters. Case- and whitespace-sensitive; used for exact-duplicate
// detection at ingestion.
func Fingerprint(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

var wordRegex = regexp.MustCompile(`\w+`)

// Tokenize lowercases s and returns its word tokens.
func Tokenize(s string) []string {
	return wordRegex.FindAllString(strings.ToLower(s), -1)
}

// StopWords is the fixed set of common English words stripped before
// lexical scoring.
var StopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "can": {}, "what": {},
	"where": {}, "when": {}, "why": {}, "how": {}, "there": {},
	"here": {}, "this": {}, "that": {}, "these": {}, "those": {},
}

// MeaningfulTokens returns the set of tokens in s after stop-word removal.
func MeaningfulTokens(s string) map[string]struct{} {
	tokens := Tokenize(s)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, stop := StopWords[tok]; !stop {
			set[tok] = struct{}{}
		}
	}
	return set
}

// TruncateString truncates s to at most maxLen Unicode characters.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// TruncateWithEllipsis truncates s to maxLen Unicode characters and appends
// "..." when it was cut.
func TruncateWithEllipsis(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
