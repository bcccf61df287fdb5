// Package parse provides typed coercion for the numeric-ish and date tokens
// found in the set log. Every function reports success explicitly so callers
// decide whether a failed parse means "skip the row" or "use a default" —
// silent zero-defaults never leak out of here.
package parse

import (
	"strconv"
	"strings"
	"time"
)

// serialEpoch is day zero of spreadsheet date serials.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are tried in order after the serial-number attempt.
// First successful match wins.
var dateLayouts = []string{
	"2006.01.02",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
}

// Decimal converts a decimal token to a float64. Comma decimals are accepted
// ("102,5" -> 102.5), surrounding whitespace is ignored. Empty or malformed
// tokens report ok=false.
func Decimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int converts an integer-ish token ("8", "8.0", "8,0") to an int.
func Int(s string) (int, bool) {
	f, ok := Decimal(s)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Day parses a calendar-day token. It accepts, in order of attempt, a numeric
// day serial (epoch 1899-12-30) and the textual layouts above. A trailing
// time-of-day after a comma ("2025.03.14, 18:02") is discarded — grouping is
// by calendar day only.
func Day(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if i := strings.IndexByte(token, ','); i >= 0 {
		token = strings.TrimSpace(token[:i])
	}
	if token == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", "."), 64); err == nil {
		// Plausible spreadsheet serials only; small integers like "7" are
		// more likely a stray numeric token than a date in 1900.
		if serial >= 365 && serial < 200000 {
			return serialEpoch.AddDate(0, 0, int(serial)), true
		}
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
