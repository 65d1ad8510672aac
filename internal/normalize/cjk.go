package normalize

import "unicode"

// cjkRanges lists the Unicode scalar ranges treated as CJK ideographs for
// translate-skip detection.
var cjkRanges = unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3400, Hi: 0x4DBF, Stride: 1},
		{Lo: 0x4E00, Hi: 0x9FFF, Stride: 1},
		{Lo: 0xF900, Hi: 0xFAFF, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x20000, Hi: 0x2A6DF, Stride: 1},
		{Lo: 0x2A700, Hi: 0x2B73F, Stride: 1},
		{Lo: 0x2B740, Hi: 0x2B81F, Stride: 1},
		{Lo: 0x2B820, Hi: 0x2CEAF, Stride: 1},
		{Lo: 0x2F800, Hi: 0x2FA1F, Stride: 1},
	},
}

// ContainsCJK reports whether s contains any CJK ideograph code point.
func ContainsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(&cjkRanges, r) {
			return true
		}
	}
	return false
}

// ShouldTranslate reports whether title is a candidate for translation: it
// must be non-empty, contain no CJK code point, and have an ASCII-letter
// ratio (over total letters) of at least 0.6 with at least one ASCII letter.
func ShouldTranslate(title string) bool {
	if title == "" {
		return false
	}
	if ContainsCJK(title) {
		return false
	}

	var asciiLetters, totalLetters int
	for _, r := range title {
		if !unicode.IsLetter(r) {
			continue
		}
		totalLetters++
		if r <= unicode.MaxASCII {
			asciiLetters++
		}
	}

	if asciiLetters < 1 || totalLetters == 0 {
		return false
	}
	return float64(asciiLetters)/float64(totalLetters) >= 0.6
}
