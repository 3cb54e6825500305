// pkg/normalize/coerce.go
package normalize

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when coercing a date cell. excelize
// returns formatted cell text, so both ISO and the US short formats Excel
// renders by default appear in the source files. No timezone handling.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01-02-06",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"1/2/2006 15:04",
	"2-Jan-06",
	"Jan 2, 2006",
	"2006/01/02",
}

// CoerceNumber parses a cell as a float. Thousands separators are removed
// first; "1,280" appears in count columns. Returns false when the value
// is not numeric.
func CoerceNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// CoerceDate parses a cell as a calendar date using the known layouts.
// Returns false when no layout matches.
func CoerceDate(s string) (time.Time, bool) {
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

// CoerceIdentifier trims and uppercases an identifier or category value.
// Idempotent: applying it to an already-coerced value changes nothing.
func CoerceIdentifier(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// CoerceText trims a free-text value, preserving case.
func CoerceText(s string) string {
	return strings.TrimSpace(s)
}
