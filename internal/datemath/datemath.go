// Package datemath implements the calendar-day arithmetic the schedule
// tables are built on. Dates travel through the system as YYYY-MM-DD
// strings; an empty string means the event has not occurred yet.
package datemath

import (
	"regexp"
	"strconv"
	"time"
)

const dayMillis = 86400000

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseDate parses a YYYY-MM-DD string into a calendar date. The date is
// constructed from its year/month/day components in UTC so a round-trip
// never shifts across a day boundary the way a timezone-aware ISO parse can.
// Returns ok=false for empty or malformed input.
func ParseDate(s string) (time.Time, bool) {
	if !datePattern.MatchString(s) {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[5:7])
	day, _ := strconv.Atoi(s[8:10])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (2024-02-31 becomes March); reject it.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// Valid reports whether s is a well-formed YYYY-MM-DD date. Empty strings
// are not valid dates but are also not an input error; callers that need to
// distinguish should check for "" first.
func Valid(s string) bool {
	_, ok := ParseDate(s)
	return ok
}

// DurationDays returns the inclusive day count between two dates:
// floor((end-start)/day)+1, so a single-day range counts as 1. Returns
// ok=false when either date is absent or malformed. A range with end before
// start yields a zero or negative count on purpose; the value surfaces so
// bad data is visible instead of silently clamped.
func DurationDays(start, end string) (int, bool) {
	s, okS := ParseDate(start)
	e, okE := ParseDate(end)
	if !okS || !okE {
		return 0, false
	}
	return int(e.Sub(s).Milliseconds()/dayMillis) + 1, true
}

// VarianceDays returns scheduled minus actual in whole days. Positive means
// the actual date landed early, negative means late, zero means on time.
// Both dates must be present and valid; otherwise ok=false. The function is
// deliberately asymmetric: swapping the arguments changes the meaning, not
// just the sign.
func VarianceDays(scheduled, actual string) (int, bool) {
	s, okS := ParseDate(scheduled)
	a, okA := ParseDate(actual)
	if !okS || !okA {
		return 0, false
	}
	return int(s.Sub(a).Milliseconds() / dayMillis), true
}
