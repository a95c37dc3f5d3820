package events

import (
	"fmt"
	"strings"
	"time"
)

// TimeUnit is the epoch unit a log's raw timestamps are written in.
type TimeUnit string

const (
	UnitMillisecond TimeUnit = "ms"
	UnitMicrosecond TimeUnit = "us"
)

// ParseTimeUnit normalizes a unit name from config or flags.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ms", "milli", "millisecond", "milliseconds", "milisecond":
		return UnitMillisecond, nil
	case "us", "µs", "micro", "microsecond", "microseconds", "mikrosecond":
		return UnitMicrosecond, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTimeUnit, s)
	}
}

// Calendar bounds accepted for a converted timestamp.
var (
	minTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxTime = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
)

// ConvertTimestamp turns a raw epoch value into a UTC time.
func ConvertTimestamp(raw int64, unit TimeUnit) (time.Time, error) {
	var t time.Time
	switch unit {
	case UnitMillisecond:
		t = time.UnixMilli(raw).UTC()
	case UnitMicrosecond:
		t = time.UnixMicro(raw).UTC()
	default:
		return time.Time{}, &TimestampConversionError{Raw: raw, Unit: unit, Err: ErrUnknownTimeUnit}
	}
	if t.Before(minTime) || t.After(maxTime) {
		return time.Time{}, &TimestampConversionError{Raw: raw, Unit: unit, Err: ErrTimestampOutOfRange}
	}
	return t, nil
}
