// Package normalize turns raw free-text cells into comparable keys.
package normalize

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

// Phone strips every non-digit character. Arabic-Indic and Eastern
// Arabic-Indic digits map to their ASCII values. The result is absent when
// nothing is left.
func Phone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

// PhoneValue is the integer form of a raw phone used in customer keys.
// Leading zeros drop out, so "0100" and "100" share a value. Absent or
// overflowing phones yield 0.
func PhoneValue(raw string) int64 {
	digits, ok := Phone(raw)
	if !ok {
		return 0
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return 0
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func folder() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r == tatweel })),
		norm.NFKC,
	)
}

// Fold removes diacritics, Arabic harakat and tatweel, and width variants
// while keeping punctuation and case.
func Fold(raw string) string {
	out, _, err := transform.String(folder(), raw)
	if err != nil {
		return raw
	}
	return out
}

var lower = cases.Lower(language.Und)

// Text builds a fuzzy-comparison form: folded, lowercased, restricted to
// word characters and the Arabic block, with whitespace runs collapsed.
// It is never used for key equality.
func Text(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	folded := lower.String(Fold(raw))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case isWord(r), isArabic(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isArabic(r rune) bool {
	return r >= '؀' && r <= 'ۿ'
}
