package parser

import (
	"strings"

	"companion-server/internal/domain"
)

// maxSnapDistance is the largest edit distance still considered "the model
// meant this category". Anything farther maps to the safe default.
const maxSnapDistance = 5

// snapCategory maps a free-form category token onto the fixed enum: exact
// match after normalization, then substring containment, then nearest
// lexical match by edit distance, then the safe default.
func snapCategory(raw string) domain.Category {
	norm := normalizeCategoryToken(raw)
	if norm == "" {
		return domain.CategorySmallTalk
	}

	for _, c := range domain.AllCategories {
		if norm == string(c) {
			return c
		}
	}

	for _, c := range domain.AllCategories {
		if strings.Contains(norm, string(c)) || strings.Contains(string(c), norm) {
			return c
		}
	}

	best := domain.CategorySmallTalk
	bestDist := maxSnapDistance + 1
	for _, c := range domain.AllCategories {
		if d := editDistance(norm, string(c)); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

func normalizeCategoryToken(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, `"'.,!`)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// editDistance is plain Levenshtein over bytes; category tokens are ASCII.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
