package award

import (
	"strings"
	"time"
)

// TimestampLayout is the wire format of nomination window timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseDate parses the date formats seen in award feeds and pages. Values
// without a zone are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateKey returns the UTC calendar date of s as YYYY-MM-DD.
func DateKey(s string) (string, bool) {
	t, ok := ParseDate(s)
	if !ok {
		return "", false
	}
	return t.UTC().Format(time.DateOnly), true
}

// FormatTimestamp normalises s to a UTC timestamp with milliseconds.
// It returns nil when s is empty or unparseable.
func FormatTimestamp(s string) *string {
	t, ok := ParseDate(s)
	if !ok {
		return nil
	}
	out := t.UTC().Format(TimestampLayout)
	return &out
}
