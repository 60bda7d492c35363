package tokenizer

import (
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultMaxTypoDistance is the edit distance tolerated by MatchesWithTypo.
const DefaultMaxTypoDistance = 2

// Levenshtein returns the rune-level edit distance between a and b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// CalculateSimilarity returns 1 - distance/longer length, in [0, 1].
// Two empty strings are identical; one empty string matches nothing.
func CalculateSimilarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 && lb == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}
	return 1 - float64(Levenshtein(a, b))/float64(max(la, lb))
}

// EditDistance recovers the rounded edit distance from a similarity score.
func EditDistance(a, b string) int {
	longer := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return int(math.Round((1 - CalculateSimilarity(a, b)) * float64(longer)))
}

// MatchesWithTypo reports whether candidate matches query exactly, by
// containment in either direction, or within maxDistance edits on any jamo
// token pair. Latin-only pairs with no jamo tokens fall back to comparing
// word tokens.
func MatchesWithTypo(query, candidate string, maxDistance int) bool {
	q, c := Normalize(query), Normalize(candidate)
	if q == "" || c == "" {
		return false
	}
	if q == c || strings.Contains(c, q) || strings.Contains(q, c) {
		return true
	}

	qTokens := Tokenize(q, DefaultOptions())
	cTokens := Tokenize(c, DefaultOptions())

	qJamo := tokensOfType(qTokens, TypeJamo)
	cJamo := tokensOfType(cTokens, TypeJamo)
	if len(qJamo) == 0 && len(cJamo) == 0 {
		qJamo = tokensOfType(qTokens, TypeWord)
		cJamo = tokensOfType(cTokens, TypeWord)
	}

	for _, qt := range qJamo {
		for _, ct := range cJamo {
			if EditDistance(qt.Normalized, ct.Normalized) <= maxDistance {
				return true
			}
		}
	}
	return false
}

func tokensOfType(tokens []Token, t TokenType) []Token {
	var out []Token
	for _, tok := range tokens {
		if tok.Type == t {
			out = append(out, tok)
		}
	}
	return out
}
