package calendar

import (
	"time"
)

// CalculateEaster calculates the date of Easter Sunday for a given year
// using the computus algorithm for the Gregorian calendar.
func CalculateEaster(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// CalculateAdvent calculates the first Sunday of Advent for a given year.
//
// Advent Sunday is the Sunday closest to November 30, which means
// it falls between November 27 and December 3.
func CalculateAdvent(year int) time.Time {
	nov27 := time.Date(year, time.November, 27, 0, 0, 0, 0, time.UTC)
	offset := (7 - int(nov27.Weekday())) % 7
	return nov27.AddDate(0, 0, offset)
}

// FeastName labels the Sundays the ministry plans around. Ordinary Sundays
// return "".
func FeastName(date time.Time) string {
	if !IsSunday(date) {
		return ""
	}
	date = DateOnly(date)
	easter := CalculateEaster(date.Year())

	switch {
	case date.Equal(easter):
		return "Easter Sunday"
	case date.Equal(easter.AddDate(0, 0, -7)):
		return "Palm Sunday"
	case date.Equal(easter.AddDate(0, 0, 49)):
		return "Pentecost"
	case date.Equal(easter.AddDate(0, 0, 56)):
		return "Trinity Sunday"
	}

	advent := CalculateAdvent(date.Year())
	for week := 0; week < 4; week++ {
		if date.Equal(advent.AddDate(0, 0, 7*week)) {
			return Ordinal(week+1) + " Sunday of Advent"
		}
	}

	return ""
}
