package fuzzy

import (
	"strings"
)

// LevenshteinDistance calculates the edit distance between two strings
// This measures how many single-character edits (insertions, deletions, or substitutions)
// are required to change one string into another
func LevenshteinDistance(s1, s2 string) int {
	s1 = normalizeString(s1)
	s2 = normalizeString(s2)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
	}

	for i := 0; i <= m; i++ {
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			d[i][j] = min3(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
		}
	}

	return d[m][n]
}

// Match checks if query fuzzy-matches text within a given threshold
// threshold is the maximum allowed edit distance
func Match(query, text string, threshold int) bool {
	query = normalizeString(query)
	text = normalizeString(text)

	// If query is contained in text, it's a match
	if strings.Contains(text, query) {
		return true
	}

	// Check if any word in text fuzzy-matches the query
	words := strings.Fields(text)
	for _, word := range words {
		if LevenshteinDistance(query, word) <= threshold {
			return true
		}
		// Check if word starts with query (partial match)
		if strings.HasPrefix(word, query) {
			return true
		}
	}

	// Check overall distance for short texts
	if len(text) < 50 {
		distance := LevenshteinDistance(query, text)
		maxDistance := threshold + len(query)/5
		if distance <= maxDistance {
			return true
		}
	}

	return false
}

// MatchPost checks if a post matches the query, with typo tolerance scaled
// to the query length. Hashtags match with or without the leading '#'.
func MatchPost(query, text string) bool {
	threshold := 2
	if len(query) <= 3 {
		threshold = 1
	} else if len(query) >= 8 {
		threshold = 3
	}

	if Match(query, text, threshold) {
		return true
	}
	if tag := strings.TrimPrefix(query, "#"); tag != query {
		return Match(tag, text, threshold)
	}
	return false
}

// RelevanceScore scores how relevant a post is to a query
// Higher score = more relevant
func RelevanceScore(query, text string) float64 {
	query = normalizeString(query)
	textNorm := normalizeString(text)
	score := 0.0

	if strings.Contains(textNorm, query) {
		score += 100.0
		// Bonus for exact word match
		if containsWord(textNorm, query) {
			score += 50.0
		}
		return score
	}

	for _, word := range strings.Fields(textNorm) {
		dist := LevenshteinDistance(query, word)
		if dist <= 2 {
			score += 50.0 - float64(dist)*15
		}
		if strings.HasPrefix(word, query) {
			score += 40.0
		}
	}
	return score
}

// Helper functions

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

// normalizeString converts to lowercase and collapses whitespace
func normalizeString(s string) string {
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	return s
}

// containsWord checks if text contains query as a whole word
func containsWord(text, query string) bool {
	words := strings.Fields(text)
	for _, word := range words {
		if word == query {
			return true
		}
	}
	return false
}
