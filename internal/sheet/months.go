package sheet

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Month columns are keyed "YYYY-MM" so lexical order is chronological order.

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

var spanishMonths = map[string]time.Month{
	"ene": time.January, "feb": time.February, "mar": time.March,
	"abr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "ago": time.August, "sep": time.September,
	"sept": time.September, "oct": time.October, "nov": time.November,
	"dic": time.December,
}

// Matches abbreviated Spanish month headers like "jun.22" or "Sept.24".
var spanishMonthRE = regexp.MustCompile(`(?i)^(ene|feb|mar|abr|may|jun|jul|ago|sep|sept|oct|nov|dic)\.(\d{2})$`)

// parseSpanishMonth converts a free-text month header such as "sept.24" to
// its "YYYY-MM" key. Two-digit years are anchored to 2000.
func parseSpanishMonth(s string) (string, bool) {
	m := spanishMonthRE.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	month, ok := spanishMonths[toLowerASCII(m[1])]
	if !ok {
		return "", false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d", 2000+year, int(month)), true
}

// MonthEnd returns the last day of the month identified by a "YYYY-MM" key.
func MonthEnd(ym string) (time.Time, error) {
	t, err := time.Parse("2006-01", ym)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month key %q: %w", ym, err)
	}
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1), nil
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
