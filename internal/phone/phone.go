// Package phone normalizes Ghanaian phone numbers to the international
// +233XXXXXXXXX form.
package phone

import "strings"

const countryCode = "233"

// Normalize maps a raw phone string to its canonical dialable form.
// Rules are applied in order, first match wins:
//
//  1. Empty input (after stripping whitespace) is rejected.
//  2. "+233..." with exactly 12 digits after the "+" is already canonical.
//  3. A leading "0" is replaced with "+233" when 9 digits remain.
//  4. "233..." of length 12 gains a leading "+".
//  5. Any input whose digits form exactly 9 characters gains "+233".
//  6. Anything else passes through cleaned but unchanged; normalization is
//     best-effort, not a validity guarantee.
//
// The second return value is false only for the empty-input case.
func Normalize(raw string) (string, bool) {
	cleaned := stripSpace(raw)
	if cleaned == "" {
		return "", false
	}

	if strings.HasPrefix(cleaned, "+"+countryCode) {
		rest := digitsOf(cleaned[1:])
		if len(rest) == 12 && strings.HasPrefix(rest, countryCode) {
			return cleaned, true
		}
	}

	if strings.HasPrefix(cleaned, "0") {
		local := digitsOf(cleaned[1:])
		if len(local) == 9 {
			return "+" + countryCode + local, true
		}
	}

	if strings.HasPrefix(cleaned, countryCode) && len(cleaned) == 12 {
		return "+" + cleaned, true
	}

	if local := digitsOf(cleaned); len(local) == 9 {
		return "+" + countryCode + local, true
	}

	return cleaned, true
}

// stripSpace removes all whitespace characters, not just leading/trailing.
func stripSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// digitsOf returns only the decimal digit characters of s.
func digitsOf(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
