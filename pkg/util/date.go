package util

import "time"

// HourOfDay returns t's hour in its location, 0..23.
func HourOfDay(t time.Time) int { return t.Hour() }

// MinuteOfHour returns t's minute, 0..59.
func MinuteOfHour(t time.Time) int { return t.Minute() }

// NextBoundary returns the first multiple of d strictly after t.
func NextBoundary(t time.Time, d time.Duration) time.Time {
	if d <= 0 {
		return t
	}
	next := t.Truncate(d)
	if !next.After(t) {
		next = next.Add(d)
	}
	return next
}
