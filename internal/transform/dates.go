package transform

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order for date-only fields.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
}

// timestampLayouts are tried in order for datetime fields.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDate parses a date-only field. The empty string is not an error; it
// reports ok=false so callers can distinguish absent from malformed.
func parseDate(s string) (t time.Time, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Truncate(24 * time.Hour), true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unparsable date %q", s)
}

// parseTimestamp parses a datetime field.
func parseTimestamp(s string) (t time.Time, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unparsable timestamp %q", s)
}
