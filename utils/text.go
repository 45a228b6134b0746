package utils

import (
	"strings"
	"unicode"
)

var greetingWords = []string{"hi", "hello", "hey", "namaste", "namaskar", "hii", "hiii"}

// IsGreeting reports whether text is a bare greeting.
func IsGreeting(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.Trim(t, "!.,")
	for _, w := range greetingWords {
		if t == w {
			return true
		}
	}
	return false
}

// DevanagariRatio returns the fraction of letters in text that fall in the
// Devanagari block (U+0900..U+097F). Digits, spaces, and punctuation are
// excluded from the denominator.
func DevanagariRatio(text string) float64 {
	var letters, devanagari int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if r >= 0x0900 && r <= 0x097F {
			devanagari++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(devanagari) / float64(letters)
}

// IsHindiText reports whether more than 30% of the letters in text are
// Devanagari script.
func IsHindiText(text string) bool {
	return DevanagariRatio(text) > 0.30
}

// PersonalizeMessage substitutes {{var}} placeholders in a message body.
// Unknown placeholders are left untouched; missing name/company values fall
// back to neutral defaults.
func PersonalizeMessage(body string, vars map[string]string) string {
	merged := map[string]string{
		"name":    "there",
		"company": "your company",
	}
	for k, v := range vars {
		if strings.TrimSpace(v) != "" {
			merged[k] = v
		}
	}
	out := body
	for k, v := range merged {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}
