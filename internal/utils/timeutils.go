package utils

import (
	"fmt"
	"time"
)

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// ParseRange parses optional RFC3339 bounds. Empty strings leave the bound
// open; an inverted range is rejected.
func ParseRange(start, end string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if start != "" {
		if from, err = ParseRFC3339(start); err != nil {
			return time.Time{}, time.Time{}, InvalidArgument("time.range", "start: %v", err)
		}
	}
	if end != "" {
		if to, err = ParseRFC3339(end); err != nil {
			return time.Time{}, time.Time{}, InvalidArgument("time.range", "end: %v", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, InvalidArgument("time.range", "end %s precedes start %s", end, start)
	}
	return from, to, nil
}
