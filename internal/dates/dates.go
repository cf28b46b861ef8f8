// Package dates resolves natural-language due-date expressions into
// concrete timestamps. Due dates are a soft hint from the extraction
// model, so resolution is total: malformed input falls back to a
// default rather than returning an error.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// isoLayouts are tried in order for strict parsing before any
// relative-expression matching.
var isoLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

var inDaysPattern = regexp.MustCompile(`in (\d+) days?`)

// Resolve converts a due-date expression into an absolute timestamp
// relative to now. It returns false only when the expression is empty,
// meaning no due date was given. Unrecognized expressions default to
// now + 1 day.
func Resolve(expr string, now time.Time) (time.Time, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, false
	}

	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, expr, now.Location()); err == nil {
			return t, true
		}
	}

	return resolveRelative(expr, now), true
}

// resolveRelative matches relative expressions by case-insensitive
// substring, in fixed precedence order.
func resolveRelative(expr string, now time.Time) time.Time {
	lower := strings.ToLower(expr)

	switch {
	case strings.Contains(lower, "tomorrow"):
		return now.AddDate(0, 0, 1)
	case strings.Contains(lower, "next week"):
		return now.AddDate(0, 0, 7)
	case strings.Contains(lower, "eod"), strings.Contains(lower, "end of day"):
		return time.Date(now.Year(), now.Month(), now.Day(), 17, 0, 0, 0, now.Location())
	case strings.Contains(lower, "next month"):
		return now.AddDate(0, 0, 30)
	}

	if m := inDaysPattern.FindStringSubmatch(lower); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil {
			return now.AddDate(0, 0, days)
		}
	}

	// Default: tomorrow.
	return now.AddDate(0, 0, 1)
}
