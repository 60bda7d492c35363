package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		input string
		want  Lang
	}{
		{"강남", LangKorean},
		{"ㅋㅋ", LangKorean},
		{"cafe", LangEnglish},
		{"Cafe 2", LangEnglish},
		{"강남cafe", LangMixed},
		{"123", LangNumber},
		{"!!", LangEnglish},
		{"", LangEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.input))
		})
	}
}

func TestDecomposeKorean(t *testing.T) {
	assert.Equal(t, []string{"ㅋ", "ㅏ"}, DecomposeKorean('카'))
	assert.Equal(t, []string{"ㄱ", "ㅏ", "ㄱ"}, DecomposeKorean('각'))
	assert.Equal(t, []string{"ㄷ", "ㅏ", "ㄺ"}, DecomposeKorean('닭'))
	assert.Equal(t, []string{"a"}, DecomposeKorean('a'))
	assert.Equal(t, []string{"ㅋ"}, DecomposeKorean('ㅋ'))
}

func TestJamoString(t *testing.T) {
	assert.Equal(t, "ㅋㅏㅍㅔ", JamoString("카페"))
	assert.Equal(t, "ㄲㅏㅍㅔ", JamoString("까페"))
	assert.Equal(t, "ㄱㅏㅇㄴㅏㅁ1", JamoString("강남1"))
}

func TestGenerateBigrams(t *testing.T) {
	assert.Equal(t, []string{"ca", "af", "fe"}, GenerateBigrams("cafe"))
	assert.Equal(t, []string{"카페"}, GenerateBigrams("카페"))
	assert.Equal(t, []string{"a"}, GenerateBigrams("a"))
	assert.Equal(t, []string{""}, GenerateBigrams(""))
}

func typesOf(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestTokenize(t *testing.T) {
	t.Run("english", func(t *testing.T) {
		tokens := Tokenize("  Cafe ", DefaultOptions())
		require.Len(t, tokens, 4)
		assert.Equal(t, "Cafe", tokens[0].Text)
		assert.Equal(t, "cafe", tokens[0].Normalized)
		assert.Equal(t, LangEnglish, tokens[0].Lang)
		assert.Equal(t, []TokenType{TypeWord, TypeBigram, TypeBigram, TypeBigram}, typesOf(tokens))
		assert.Equal(t, "af", tokens[2].Normalized)
		assert.Equal(t, 1, tokens[2].Position)
	})

	t.Run("korean", func(t *testing.T) {
		tokens := Tokenize("카페", DefaultOptions())
		require.Len(t, tokens, 2)
		assert.Equal(t, TypeWord, tokens[0].Type)
		assert.Equal(t, LangKorean, tokens[0].Lang)
		assert.Equal(t, TypeJamo, tokens[1].Type)
		assert.Equal(t, "ㅋㅏㅍㅔ", tokens[1].Normalized)
	})

	t.Run("mixed", func(t *testing.T) {
		tokens := Tokenize("강남 Cafe", DefaultOptions())
		assert.Equal(t, LangMixed, tokens[0].Lang)
		assert.Equal(t, []TokenType{TypeWord, TypeJamo, TypeBigram, TypeBigram, TypeBigram}, typesOf(tokens))
	})

	t.Run("number", func(t *testing.T) {
		tokens := Tokenize("123", DefaultOptions())
		assert.Equal(t, []TokenType{TypeWord, TypeBigram, TypeBigram, TypeNumber}, typesOf(tokens))
		assert.Equal(t, "123", tokens[3].Normalized)
	})

	t.Run("nfc normalization", func(t *testing.T) {
		decomposed := "\u110F\u1161\u1111\u1166"
		tokens := Tokenize(decomposed, DefaultOptions())
		require.NotEmpty(t, tokens)
		assert.Equal(t, "카페", tokens[0].Normalized)
	})

	t.Run("length bounds", func(t *testing.T) {
		assert.Empty(t, Tokenize("", DefaultOptions()))
		assert.Empty(t, Tokenize("   ", DefaultOptions()))
		assert.Empty(t, Tokenize(strings.Repeat("a", 51), DefaultOptions()))
		assert.NotEmpty(t, Tokenize(strings.Repeat("가", 50), DefaultOptions()))
		assert.Empty(t, Tokenize("abcd", Options{MaxLength: 3}))
		assert.Empty(t, Tokenize("a", Options{MinLength: 2}))
	})
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
	assert.Equal(t, 3, Levenshtein("", "abc"))
	assert.Equal(t, 3, Levenshtein("abc", ""))
	assert.Equal(t, 0, Levenshtein("카페", "카페"))
	assert.Equal(t, 1, Levenshtein("까페", "카페"))
	assert.Equal(t, 1, Levenshtein("ㄲㅏㅍㅔ", "ㅋㅏㅍㅔ"))
}

func TestCalculateSimilarity(t *testing.T) {
	for _, s := range []string{"a", "카페", "starbucks", "강남역 2번 출구"} {
		assert.Equal(t, 1.0, CalculateSimilarity(s, s), s)
	}
	assert.Equal(t, 1.0, CalculateSimilarity("", ""))
	assert.Equal(t, 0.0, CalculateSimilarity("", "x"))
	assert.Equal(t, 0.0, CalculateSimilarity("x", ""))
	assert.InDelta(t, 2.0/3.0, CalculateSimilarity("abc", "abd"), 1e-9)
	assert.InDelta(t, 0.0, CalculateSimilarity("ab", "cd"), 1e-9)
}

func TestMatchesWithTypo(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		candidate string
		want      bool
	}{
		{"jamo typo", "까페", "카페", true},
		{"unrelated", "까페", "완전다른이름", false},
		{"exact", "스타벅스", "스타벅스", true},
		{"containment", "스타벅스", "스타벅스 강남점", true},
		{"query contains candidate", "스타벅스 강남점", "스타벅스", true},
		{"case insensitive", "CAFE", "cafe", true},
		{"latin typo", "cofee", "coffee", true},
		{"latin far", "cofee", "bakery", false},
		{"empty query", "", "카페", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesWithTypo(tt.query, tt.candidate, DefaultMaxTypoDistance))
		})
	}

	assert.False(t, MatchesWithTypo("까페", "카페", 0))
}
