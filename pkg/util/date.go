package util

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the calendar-day form accepted by query and body fields.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseDate accepts a calendar day or anything ParseTime understands and
// truncates it to midnight UTC. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, ok := ParseTime(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date %q, want %s or RFC3339", s, DateLayout)
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
