package normalize

import "testing"

func TestShouldTranslate_SkipsOnCJK(t *testing.T) {
	if ShouldTranslate("央行加息") {
		t.Error("expected should_translate = false for CJK title")
	}
}

func TestShouldTranslate_EnglishTitle(t *testing.T) {
	if !ShouldTranslate("Fed Hikes Interest Rates Again") {
		t.Error("expected should_translate = true for ASCII title")
	}
}

func TestShouldTranslate_EmptyTitle(t *testing.T) {
	if ShouldTranslate("") {
		t.Error("expected should_translate = false for empty title")
	}
}

func TestShouldTranslate_MostlyNonASCIILetters(t *testing.T) {
	// Cyrillic letters count as letters but not ASCII, pushing the ratio below 0.6.
	if ShouldTranslate("Центробанк повысил ставку (ECB)") {
		t.Error("expected should_translate = false when ASCII-letter ratio < 0.6")
	}
}

func TestShouldTranslate_AccentedLatinStaysTranslatable(t *testing.T) {
	// A handful of accented letters does not push the ratio below 0.6.
	if !ShouldTranslate("Émigré writers shape the economy debate") {
		t.Error("expected should_translate = true for a mostly-ASCII title")
	}
}

func TestContainsCJK(t *testing.T) {
	if !ContainsCJK("breaking: 北京") {
		t.Error("expected ContainsCJK = true")
	}
	if ContainsCJK("breaking news") {
		t.Error("expected ContainsCJK = false")
	}
}
