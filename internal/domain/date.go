package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire and in CSV.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO YYYY-MM-DD string into a civil date at UTC midnight.
// The error wraps ErrValidation.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", ErrValidation, s)
	}
	return d, nil
}

// CivilDate truncates t to its calendar date in t's own location and returns
// that date at UTC midnight, so dates compare equal regardless of zone.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FirstOfMonth returns the first calendar day of d's month.
func FirstOfMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// YearMonth returns the "YYYY-MM" prefix of d's ISO representation.
func YearMonth(d time.Time) string {
	return d.Format(DateLayout)[:7]
}

// FormatDate renders d as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}
