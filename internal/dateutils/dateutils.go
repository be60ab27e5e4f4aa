// Package dateutils parses the date formats that appear across broker
// exports: ISO, European slash/dot notation, and Italian month names.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// italianMonths maps Italian month prefixes (three letters match both the
// abbreviated and the full form) to month numbers.
var italianMonths = map[string]time.Month{
	"gen": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"mag": time.May,
	"giu": time.June,
	"lug": time.July,
	"ago": time.August,
	"set": time.September,
	"ott": time.October,
	"nov": time.November,
	"dic": time.December,
}

var layouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02/01/2006 15:04",
	"02-01-2006",
	"02.01.2006",
	"2/1/2006",
	"01/02/2006", // US fallback, tried after European
	"20060102",
}

var italianDate = regexp.MustCompile(`(?i)^(\d{1,2})\.?\s+([a-zà]+)\.?\s+(\d{4})$`)

// ParseDate parses a date string in any of the supported formats.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	if m := italianDate.FindStringSubmatch(s); m != nil {
		if t, err := parseItalian(m[1], m[2], m[3]); err == nil {
			return t, nil
		}
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// ParseDateOr parses a date string, returning the fallback when parsing
// fails.
func ParseDateOr(s string, fallback time.Time) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		return fallback
	}
	return t
}

func parseItalian(day, month, year string) (time.Time, error) {
	key := strings.ToLower(month)
	if len(key) > 3 {
		key = key[:3]
	}
	m, ok := italianMonths[key]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month: %q", month)
	}
	return time.Parse("2-1-2006", fmt.Sprintf("%s-%d-%s", day, m, year))
}
