package provider

import (
	"strconv"
	"strings"
)

// ParseMinutes normalizes a minutes value from the roster API.
//
// Season averages report minutes either as "34:12" (mm:ss) or as a decimal
// string like "34.2". Returns decimal minutes, and ok=false if not parseable.
func ParseMinutes(val string) (float64, bool) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, false
	}

	if mins, secs, found := strings.Cut(val, ":"); found {
		m, err := strconv.Atoi(mins)
		if err != nil {
			return 0, false
		}
		s, err := strconv.Atoi(secs)
		if err != nil || s < 0 || s >= 60 {
			return 0, false
		}
		return float64(m) + float64(s)/60.0, true
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NilEmpty returns nil for empty strings (maps to SQL NULL).
func NilEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
