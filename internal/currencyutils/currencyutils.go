// Package currencyutils parses the locale-ambiguous numeric tokens found in
// broker exports. European documents write 1.234,56 while Anglo exports write
// 1,234.56; the normalizer decides which separator is the decimal point
// without ever routing values through binary floating point.
package currencyutils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonNumeric = regexp.MustCompile(`[^\d.,\-+]`)

// NormalizeAmount rewrites a locale-ambiguous numeric token into canonical
// dot-decimal form. When both separators appear, the rightmost one is the
// decimal point and the other is a thousands separator; a lone comma is a
// decimal comma.
func NormalizeAmount(token string) string {
	s := nonNumeric.ReplaceAllString(strings.TrimSpace(token), "")

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}
	return s
}

// ParseAmount parses a locale-ambiguous numeric token into a decimal value.
func ParseAmount(token string) (decimal.Decimal, error) {
	return decimal.NewFromString(NormalizeAmount(token))
}

// ParseAmountOrZero parses a token, degrading to zero on any failure. Used
// where an unparseable figure is a data-quality signal rather than an error.
func ParseAmountOrZero(token string) decimal.Decimal {
	d, err := ParseAmount(token)
	if err != nil {
		return decimal.Zero
	}
	return d
}
