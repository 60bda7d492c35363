// Package tokenizer splits Korean and English text into tokens for fuzzy place
// matching.
package tokenizer

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Lang is the script mix detected in a piece of text.
type Lang string

const (
	LangKorean  Lang = "ko"
	LangEnglish Lang = "en"
	LangMixed   Lang = "mixed"
	LangNumber  Lang = "number"
)

// TokenType tells how a token was derived from its source text.
type TokenType int

const (
	TypeWord TokenType = iota
	TypeBigram
	TypeJamo
	TypeNumber
)

func (t TokenType) String() string {
	switch t {
	case TypeWord:
		return "word"
	case TypeBigram:
		return "bigram"
	case TypeJamo:
		return "jamo"
	case TypeNumber:
		return "number"
	default:
		return "unknown"
	}
}

// Token is one matchable unit of text.
type Token struct {
	Text       string
	Normalized string
	Type       TokenType
	Lang       Lang
	Position   int
}

// Options bounds the accepted input length in runes.
type Options struct {
	MinLength int
	MaxLength int
}

const (
	DefaultMinLength = 1
	DefaultMaxLength = 50
)

// DefaultOptions returns the 1 to 50 rune bounds.
func DefaultOptions() Options {
	return Options{MinLength: DefaultMinLength, MaxLength: DefaultMaxLength}
}

func (o Options) withDefaults() Options {
	if o.MinLength <= 0 {
		o.MinLength = DefaultMinLength
	}
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultMaxLength
	}
	return o
}

// Normalize applies NFC, trims surrounding whitespace and lowercases.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(text)))
}

// DetectLanguage classifies text by the scripts it contains.
func DetectLanguage(text string) Lang {
	var korean, latin, digit bool
	for _, r := range text {
		switch {
		case isHangul(r):
			korean = true
		case isASCIILetter(r):
			latin = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}

	switch {
	case korean && latin:
		return LangMixed
	case korean:
		return LangKorean
	case latin:
		return LangEnglish
	case digit:
		return LangNumber
	default:
		return LangEnglish
	}
}

// GenerateBigrams returns every two-rune window of text. Text shorter than two
// runes is returned as its own single bigram.
func GenerateBigrams(text string) []string {
	runes := []rune(text)
	if len(runes) < 2 {
		return []string{text}
	}

	bigrams := make([]string, 0, len(runes)-1)
	for i := 0; i+1 < len(runes); i++ {
		bigrams = append(bigrams, string(runes[i:i+2]))
	}
	return bigrams
}

// Tokenize returns the word token of text plus its jamo, bigram and number
// derivations. Text outside the configured length bounds yields no tokens.
func Tokenize(text string, opts Options) []Token {
	opts = opts.withDefaults()

	raw := strings.TrimSpace(norm.NFC.String(text))
	n := utf8.RuneCountInString(raw)
	if n < opts.MinLength || n > opts.MaxLength {
		return []Token{}
	}

	normalized := strings.ToLower(raw)
	lang := DetectLanguage(normalized)

	tokens := []Token{{
		Text:       raw,
		Normalized: normalized,
		Type:       TypeWord,
		Lang:       lang,
		Position:   0,
	}}

	if lang == LangKorean || lang == LangMixed {
		jamo := JamoString(normalized)
		tokens = append(tokens, Token{
			Text:       jamo,
			Normalized: jamo,
			Type:       TypeJamo,
			Lang:       LangKorean,
			Position:   0,
		})
	}

	if residue := alphanumeric(normalized); residue != "" {
		for i, bg := range GenerateBigrams(residue) {
			tokens = append(tokens, Token{
				Text:       bg,
				Normalized: bg,
				Type:       TypeBigram,
				Lang:       DetectLanguage(bg),
				Position:   i,
			})
		}
	}

	if lang == LangNumber {
		if digits := alphanumeric(normalized); digits != "" {
			tokens = append(tokens, Token{
				Text:       digits,
				Normalized: digits,
				Type:       TypeNumber,
				Lang:       LangNumber,
				Position:   0,
			})
		}
	}

	return tokens
}

// alphanumeric keeps ASCII letters and digits.
func alphanumeric(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if isASCIILetter(r) || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
