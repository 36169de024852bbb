package utils

import (
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// TruncateToDay drops the time-of-day component, keeping the location.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// PrevTradingDay returns the most recent weekday strictly before t.
// It does not account for exchange holidays.
func PrevTradingDay(t time.Time) time.Time {
	d := TruncateToDay(t).AddDate(0, 0, -1)
	for IsWeekend(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
