package catalog

import (
	"fmt"
	"time"
)

// DateLayout is the wire and form format for calendar dates.
const DateLayout = "2006-01-02"

// Clock returns the current time. Handlers take one so tests can pin "today".
type Clock func() time.Time

// SystemClock is the wall clock.
var SystemClock Clock = time.Now

// Today returns the calendar day of now as UTC midnight.
func Today(now time.Time) time.Time {
	return DateOf(now)
}

// DateOf drops the time-of-day component, keeping the calendar day t falls on
// in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays moves a calendar date by n days.
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar date; nil renders as an empty string.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
