package calendar

import (
	"errors"
	"time"
)

// SundaysInMonth returns every Sunday of the named month in ascending order.
// Dates are midnight UTC. A month has four or five Sundays; none from the
// following month are included.
func SundaysInMonth(monthName string, year int) ([]time.Time, error) {
	table, err := NewMonthTable(monthName, year)
	if err != nil {
		return nil, err
	}
	return Sundays(table), nil
}

// Sundays returns every Sunday of the table's month in ascending order.
func Sundays(t MonthTable) []time.Time {
	// Advance to the first Sunday on or after the 1st
	current := t.Start()
	for current.Weekday() != time.Sunday {
		current = current.AddDate(0, 0, 1)
	}

	sundays := make([]time.Time, 0, 5)
	for current.Month() == t.Month {
		sundays = append(sundays, current)
		current = current.AddDate(0, 0, 7)
	}

	return sundays
}

// IsSunday reports whether date falls on a Sunday.
func IsSunday(date time.Time) bool {
	return date.Weekday() == time.Sunday
}

// DefaultSunday picks the attendance date the dashboard opens on: the second
// Sunday when there are at least two, otherwise the only one.
func DefaultSunday(sundays []time.Time) (time.Time, error) {
	switch len(sundays) {
	case 0:
		return time.Time{}, errors.New("no Sundays available")
	case 1:
		return sundays[0], nil
	default:
		return sundays[1], nil
	}
}

// SameDay reports whether a and b share a calendar date, ignoring time of day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
