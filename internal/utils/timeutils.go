package utils

import (
	"fmt"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC3339 and the space-separated layouts written by
// tabular exporters. Values without a zone are read as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q: unsupported layout", value)
}

// WindowEndingAt returns the [end-d, end] interval, using now when end is zero.
func WindowEndingAt(end time.Time, d time.Duration) (time.Time, time.Time) {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if d < 0 {
		d = -d
	}
	return end.Add(-d), end
}
