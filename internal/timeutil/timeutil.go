package timeutil

import (
	"fmt"
	"strings"
	"time"
)

var defaultLocation = time.UTC

// LocalLayout is the layout used in user-facing confirmation messages.
const LocalLayout = "02.01.2006 15:04"

// ResolveLocation returns the location for an IANA timezone name with UTC
// fallback. The second return value reports whether the fallback was used.
func ResolveLocation(timezone string) (*time.Location, bool) {
	if timezone == "" {
		return defaultLocation, true
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return defaultLocation, true
	}
	return loc, false
}

// ParseDateTime parses a datetime in either RFC3339 (with explicit offset) or
// local layouts interpreted in the provided location. Bare timestamps are never
// interpreted as UTC or machine-local time.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("time value is required")
	}

	// If an offset exists, preserve it.
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	layouts := []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time: %s", value)
}

// FormatLocal renders a timestamp in the user's timezone for confirmation
// messages, e.g. "02.01.2025 15:04".
func FormatLocal(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(LocalLayout)
}

// JoinLocal renders a list of timestamps in the user's timezone, comma-joined.
func JoinLocal(times []time.Time, loc *time.Location) string {
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = FormatLocal(t, loc)
	}
	return strings.Join(parts, ",")
}
