package service

import (
	"time"
)

// UTCDay truncates t to midnight UTC of its calendar day
func UTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextUTCMidnight returns the first instant of the UTC day after t
func NextUTCMidnight(t time.Time) time.Time {
	return UTCDay(t).AddDate(0, 0, 1)
}

// SameUTCDay reports whether a and b fall on the same UTC calendar day
func SameUTCDay(a, b time.Time) bool {
	return UTCDay(a).Equal(UTCDay(b))
}
