package models

import "time"

const day = 24 * time.Hour

// DateOf truncates t to midnight UTC of its calendar day
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a calendar date by n days
func AddDays(t time.Time, n int) time.Time {
	return DateOf(t).AddDate(0, 0, n)
}

// DaysBetween returns the whole number of days from start to end (negative
// when end is before start).
func DaysBetween(start, end time.Time) int {
	return int(DateOf(end).Sub(DateOf(start)) / day)
}
