package timerange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// localLayout renders a wall-clock hour in the YYYY-MM-DD-HH input format.
const localLayout = "2006-01-02-15"

// durationRegex matches durations like "6h", "2d", "1w"
var durationRegex = regexp.MustCompile(`^(\d+)(h|d|w)$`)

// ParseDuration parses a whole-hour duration. Besides Go durations it accepts
// days and weeks ("2d", "1w").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	d, err := time.ParseDuration(s)
	if err != nil {
		matches := durationRegex.FindStringSubmatch(s)
		if matches == nil {
			return 0, fmt.Errorf("invalid duration format: %s (examples: 6h, 2d, 1w)", s)
		}
		value, _ := strconv.Atoi(matches[1])
		switch matches[2] {
		case "h":
			d = time.Duration(value) * time.Hour
		case "d":
			d = time.Duration(value) * 24 * time.Hour
		case "w":
			d = time.Duration(value) * 7 * 24 * time.Hour
		}
	}

	if d <= 0 || d%time.Hour != 0 {
		return 0, fmt.Errorf("duration %s must be a positive number of whole hours", s)
	}
	return d, nil
}

// Last returns the local bounds covering the given duration up to the end of
// the current hour, as seen from a zone offset hours ahead of UTC.
func Last(since string, now time.Time, offset string) (start, end string, err error) {
	d, err := ParseDuration(since)
	if err != nil {
		return "", "", err
	}
	hours, err := ParseOffset(offset)
	if err != nil {
		return "", "", err
	}

	wall := now.UTC().Add(time.Duration(hours) * time.Hour).Truncate(time.Hour).Add(time.Hour)
	return wall.Add(-d).Format(localLayout), wall.Format(localLayout), nil
}

// FormatSpan formats the width of a validated range ("6h", "2d", "1w").
func FormatSpan(start, end string) string {
	s, err := ParseLocal(start)
	if err != nil {
		return ""
	}
	e, err := ParseLocal(end)
	if err != nil {
		return ""
	}
	d := e.Time().Sub(s.Time())
	switch {
	case d%(7*24*time.Hour) == 0:
		return fmt.Sprintf("%dw", int(d/(7*24*time.Hour)))
	case d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
	return fmt.Sprintf("%dh", int(d/time.Hour))
}
