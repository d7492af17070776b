package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date layouts used in price caches.
const (
	DayLayout      = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// IsIntraday reports whether bars of this interval carry a time of day
// (e.g. "1m", "15m", "1h") rather than a calendar date.
func IsIntraday(interval string) bool {
	return strings.HasSuffix(interval, "m") || strings.HasSuffix(interval, "h")
}

// BarLayout returns the date layout used to persist bars of an interval.
func BarLayout(interval string) string {
	if IsIntraday(interval) {
		return DateTimeLayout
	}
	return DayLayout
}

// PeriodStart returns the first instant covered by a trailing period such as
// "5d", "3mo", "1y", "10y", "ytd" or "max". For "max" the zero time is
// returned.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "max":
		return time.Time{}, nil
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	}

	var unit string
	for _, u := range []string{"mo", "wk", "d", "y"} {
		if strings.HasSuffix(period, u) {
			unit = u
			break
		}
	}
	if unit == "" {
		return time.Time{}, fmt.Errorf("invalid period %q", period)
	}

	n, err := strconv.Atoi(strings.TrimSuffix(period, unit))
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid period %q", period)
	}

	switch unit {
	case "d":
		return now.AddDate(0, 0, -n), nil
	case "wk":
		return now.AddDate(0, 0, -7*n), nil
	case "mo":
		return now.AddDate(0, -n, 0), nil
	default:
		return now.AddDate(-n, 0, 0), nil
	}
}

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
