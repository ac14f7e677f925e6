package util

import (
	"strconv"
	"time"
)

// DateLayout is the calendar-date form used across the vendor API and the
// on-disk cache.
const DateLayout = "2006-01-02"

// Today returns the current calendar date.
func Today() string {
	return time.Now().Format(DateLayout)
}

// DaysAgo returns the calendar date n days before today.
func DaysAgo(n int) string {
	return time.Now().AddDate(0, 0, -n).Format(DateLayout)
}

// ParseDate parses a calendar date. Returns (t, true) if it parsed.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseTime tries the calendar layout, RFC3339, and unix seconds. Returns
// (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := ParseDate(s); ok {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}
