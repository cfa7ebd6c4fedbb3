package domain

import (
	"strings"
	"time"
)

// dateFormats is the ordered list of accepted transaction-date layouts.
// First parse wins, so the day-first form takes precedence over the
// US month-first form for ambiguous slash dates.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006 15:04:05",
}

// ParseDate parses a transaction date against the accepted formats.
// The second return is false when no format matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
