package scorer

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/placesearch/internal/domain"
	"github.com/cloo-solutions/placesearch/internal/tokenizer"
)

// BM25 parameters. avgFieldLen is an assumed corpus average in tokens.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	avgFieldLen = 5.0

	prefixBonus = 0.3
	exactBonus  = 0.5
)

// Field names reported in MatchedFields.
const (
	FieldName        = "name"
	FieldNameEn      = "nameEn"
	FieldTags        = "tags"
	FieldDescription = "description"
)

// Queries may be longer than the tokenizer's default bound.
func defaultTokenizerOptions() tokenizer.Options {
	return tokenizer.Options{MinLength: tokenizer.DefaultMinLength, MaxLength: domain.MaxQueryLength}
}

type weightedField struct {
	name   string
	weight float64
	value  func(p domain.PlaceCandidate) string
}

var textFields = []weightedField{
	{FieldName, 3.0, func(p domain.PlaceCandidate) string { return p.Name }},
	{FieldNameEn, 2.0, func(p domain.PlaceCandidate) string { return p.NameEn }},
	{FieldTags, 1.5, func(p domain.PlaceCandidate) string { return strings.Join(p.Tags, " ") }},
	{FieldDescription, 1.0, func(p domain.PlaceCandidate) string { return p.Description }},
}

var totalFieldWeight = func() float64 {
	var total float64
	for _, f := range textFields {
		total += f.weight
	}
	return total
}()

// TextMatchResult is the text relevance of one candidate.
type TextMatchResult struct {
	Score         float64
	MatchedFields []string
}

// TextMatch scores query against the weighted text fields of a place.
func TextMatch(query string, p domain.PlaceCandidate) TextMatchResult {
	opts := defaultTokenizerOptions()
	return prepareQuery(query, opts).match(p, opts, tokenizer.DefaultMaxTypoDistance)
}

// preparedQuery is a query tokenized once and matched against many places.
type preparedQuery struct {
	normalized string
	tokens     []tokenizer.Token
}

func prepareQuery(query string, opts tokenizer.Options) preparedQuery {
	normalized := tokenizer.Normalize(query)
	return preparedQuery{
		normalized: normalized,
		tokens:     tokenizer.Tokenize(normalized, opts),
	}
}

func (q preparedQuery) match(p domain.PlaceCandidate, opts tokenizer.Options, maxTypo int) TextMatchResult {
	result := TextMatchResult{MatchedFields: []string{}}
	if len(q.tokens) == 0 {
		return result
	}

	var weighted float64
	for _, field := range textFields {
		value := tokenizer.Normalize(field.value(p))
		if value == "" {
			continue
		}

		score := fieldScore(q.tokens, fieldTokens(value, opts), maxTypo)
		if strings.HasPrefix(value, q.normalized) {
			score += prefixBonus
		}
		if value == q.normalized {
			score += exactBonus
		}
		if score <= 0 {
			continue
		}

		weighted += field.weight * score
		result.MatchedFields = append(result.MatchedFields, field.name)
	}

	result.Score = clamp01(weighted / totalFieldWeight)
	return result
}

// fieldTokens tokenizes each whitespace-separated word of a field so typo
// matching compares words rather than whole descriptions.
func fieldTokens(value string, opts tokenizer.Options) []tokenizer.Token {
	var tokens []tokenizer.Token
	for _, word := range strings.Fields(value) {
		tokens = append(tokens, tokenizer.Tokenize(word, opts)...)
	}
	return tokens
}

// fieldScore sums the BM25 term score of every query token over the field
// tokens it overlaps. The sum is unbounded; match clamps the weighted total.
func fieldScore(queryTokens, fields []tokenizer.Token, maxTypo int) float64 {
	if len(fields) == 0 {
		return 0
	}
	fieldLen := float64(len(fields))
	norm := 1 - bm25B + bm25B*fieldLen/avgFieldLen

	var total float64
	for _, qt := range queryTokens {
		var tf float64
		for _, ft := range fields {
			tf += overlap(qt, ft, maxTypo)
		}
		if tf == 0 {
			continue
		}
		total += tf * (bm25K1 + 1) / (tf + bm25K1*norm)
	}

	return total
}

// overlap is 1 when the tokens contain one another and the jamo similarity
// when they are within maxTypo edits; 0 otherwise.
func overlap(qt, ft tokenizer.Token, maxTypo int) float64 {
	if qt.Type != ft.Type {
		return 0
	}
	if strings.Contains(ft.Normalized, qt.Normalized) {
		return 1
	}
	if utf8.RuneCountInString(ft.Normalized) >= 2 && strings.Contains(qt.Normalized, ft.Normalized) {
		return 1
	}
	if qt.Type == tokenizer.TypeJamo && tokenizer.EditDistance(qt.Normalized, ft.Normalized) <= maxTypo {
		return tokenizer.CalculateSimilarity(qt.Normalized, ft.Normalized)
	}
	return 0
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
