package tokenizer

import "strings"

const (
	hangulBase  = 0xAC00
	hangulLast  = 0xD7A3
	jungCount   = 21
	jongCount   = 28
	choseongLen = jungCount * jongCount
)

var (
	choseong  = []string{"ㄱ", "ㄲ", "ㄴ", "ㄷ", "ㄸ", "ㄹ", "ㅁ", "ㅂ", "ㅃ", "ㅅ", "ㅆ", "ㅇ", "ㅈ", "ㅉ", "ㅊ", "ㅋ", "ㅌ", "ㅍ", "ㅎ"}
	jungseong = []string{"ㅏ", "ㅐ", "ㅑ", "ㅒ", "ㅓ", "ㅔ", "ㅕ", "ㅖ", "ㅗ", "ㅘ", "ㅙ", "ㅚ", "ㅛ", "ㅜ", "ㅝ", "ㅞ", "ㅟ", "ㅠ", "ㅡ", "ㅢ", "ㅣ"}
	// index 0 is "no final consonant"
	jongseong = []string{"", "ㄱ", "ㄲ", "ㄳ", "ㄴ", "ㄵ", "ㄶ", "ㄷ", "ㄹ", "ㄺ", "ㄻ", "ㄼ", "ㄽ", "ㄾ", "ㄿ", "ㅀ", "ㅁ", "ㅂ", "ㅄ", "ㅅ", "ㅆ", "ㅇ", "ㅈ", "ㅊ", "ㅋ", "ㅌ", "ㅍ", "ㅎ"}
)

func isHangulSyllable(r rune) bool {
	return r >= hangulBase && r <= hangulLast
}

func isHangul(r rune) bool {
	return isHangulSyllable(r) ||
		(r >= 0x1100 && r <= 0x11FF) ||
		(r >= 0x3130 && r <= 0x318F)
}

// DecomposeKorean splits a Hangul syllable into its jamo. Any other rune is
// returned unchanged as a single element.
func DecomposeKorean(r rune) []string {
	if !isHangulSyllable(r) {
		return []string{string(r)}
	}

	idx := int(r - hangulBase)
	cho := idx / choseongLen
	jung := (idx % choseongLen) / jongCount
	jong := idx % jongCount

	out := []string{choseong[cho], jungseong[jung]}
	if jong != 0 {
		out = append(out, jongseong[jong])
	}
	return out
}

// JamoString concatenates the jamo decomposition of every rune in text.
func JamoString(text string) string {
	var sb strings.Builder
	sb.Grow(len(text) * 2)
	for _, r := range text {
		for _, j := range DecomposeKorean(r) {
			sb.WriteString(j)
		}
	}
	return sb.String()
}
