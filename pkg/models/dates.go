package models

import (
	"fmt"
	"time"
)

// DateLayout is the civil date format used everywhere on disk and in the API.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as a YYYY-MM-DD civil date in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DateBefore reports whether date a sorts strictly before date b.
// Invalid dates sort first so that malformed records surface early.
func DateBefore(a, b string) bool {
	ta, errA := ParseDate(a)
	tb, errB := ParseDate(b)
	if errA != nil || errB != nil {
		return errA != nil && errB == nil
	}
	return ta.Before(tb)
}

// PrevDay returns the civil date one day before the given date.
func PrevDay(date string) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, -1)), nil
}
