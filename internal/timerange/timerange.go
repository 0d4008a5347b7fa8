// Package timerange converts the local wall-clock bounds typed into the query form
// into the UTC hour partitions the log tables are physically split by.
package timerange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InputFormat is the human-readable format accepted for time bounds.
const InputFormat = "YYYY-MM-DD or YYYY-MM-DD-HH"

// suffixLayout is the partition suffix layout (YYYYMMDDHH).
const suffixLayout = "2006010215"

// ErrInvalidFormat is returned when a bound does not match InputFormat.
var ErrInvalidFormat = errors.New("invalid time format")

// Local is a parsed wall-clock hour, not yet tied to any zone.
type Local struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// Time returns the wall-clock value as if it were UTC. Out-of-range
// components roll over (month 13 becomes January of the next year).
func (l Local) Time() time.Time {
	return time.Date(l.Year, time.Month(l.Month), l.Day, l.Hour, 0, 0, 0, time.UTC)
}

// ParseLocal parses "YYYY-MM-DD" or "YYYY-MM-DD-HH". The hour defaults to 0.
func ParseLocal(s string) (Local, error) {
	if s == "" {
		return Local{}, fmt.Errorf("%w: empty value", ErrInvalidFormat)
	}

	parts := strings.Split(s, "-")
	if len(parts) < 3 || len(parts) > 4 {
		return Local{}, fmt.Errorf("%w: %q (expected %s)", ErrInvalidFormat, s, InputFormat)
	}

	nums := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Local{}, fmt.Errorf("%w: %q (expected %s)", ErrInvalidFormat, s, InputFormat)
		}
		nums[i] = n
	}

	return Local{Year: nums[0], Month: nums[1], Day: nums[2], Hour: nums[3]}, nil
}

// ParseOffset parses a UTC offset given in whole hours ("8", "-5", "+9").
// An empty offset means UTC.
func ParseOffset(offset string) (int, error) {
	offset = strings.TrimSpace(offset)
	if offset == "" {
		return 0, nil
	}
	hours, err := strconv.Atoi(offset)
	if err != nil {
		return 0, fmt.Errorf("invalid utc offset %q: %w", offset, err)
	}
	return hours, nil
}

// EncodeSuffix converts a local bound that is offset hours ahead of UTC into
// the YYYYMMDDHH partition suffix.
//
// If either argument fails to parse, the input is returned unchanged so FROM
// clause construction never fails. This can produce a plausible but wrong
// table reference; callers are expected to run Validate first.
func EncodeSuffix(local, offset string) string {
	l, err := ParseLocal(local)
	if err != nil {
		return local
	}
	hours, err := ParseOffset(offset)
	if err != nil {
		return local
	}
	return l.Time().Add(-time.Duration(hours) * time.Hour).Format(suffixLayout)
}

// DecodeSuffix parses a YYYYMMDDHH partition suffix back into its UTC hour.
func DecodeSuffix(suffix string) (time.Time, error) {
	if len(suffix) != len(suffixLayout) {
		return time.Time{}, fmt.Errorf("%w: partition suffix %q", ErrInvalidFormat, suffix)
	}
	t, err := time.ParseInLocation(suffixLayout, suffix, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: partition suffix %q", ErrInvalidFormat, suffix)
	}
	return t, nil
}

// FromClause returns the partitioned table reference for a time range, or the
// bare table when either bound is missing.
func FromClause(table, start, end, offset string) string {
	if start == "" || end == "" {
		return table
	}
	return fmt.Sprintf("%s_%s_%s", table, EncodeSuffix(start, offset), EncodeSuffix(end, offset))
}

// Result is the outcome of Validate.
type Result struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Validate checks that both bounds parse and that end is after start. The
// comparison uses wall-clock values; the offset applies equally to both.
func Validate(start, end string) Result {
	if start == "" && end == "" {
		return Result{Error: "missing start/end"}
	}

	s, err := ParseLocal(start)
	if err != nil {
		return Result{Error: fmt.Sprintf("invalid start time %q: expected %s", start, InputFormat)}
	}
	e, err := ParseLocal(end)
	if err != nil {
		return Result{Error: fmt.Sprintf("invalid end time %q: expected %s", end, InputFormat)}
	}

	if !e.Time().After(s.Time()) {
		return Result{Error: "end must exceed start"}
	}

	return Result{Valid: true}
}
