package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// ErrNoMatchingColumn is returned when a table has no attendance column for
// a requested date. It is recoverable: report it and skip the write.
var ErrNoMatchingColumn = errors.New("no attendance column for date")

// ColumnPrefix starts every attendance column name.
const ColumnPrefix = "Attendance "

var columnPattern = regexp.MustCompile(`^Attendance (\d{1,2})(st|nd|rd|th)$`)

// OrdinalSuffix returns the English ordinal suffix for n (st, nd, rd, th).
// 11, 12 and 13 take "th".
func OrdinalSuffix(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// Ordinal returns the ordinal form of a number (1st, 2nd, 3rd, 4th, 11th, 21st, etc.)
func Ordinal(n int) string {
	return strconv.Itoa(n) + OrdinalSuffix(n)
}

// ColumnName returns the attendance column for date, e.g. "Attendance 7th".
// The format is load-bearing: stored data is keyed by it.
func ColumnName(date time.Time) string {
	return ColumnForDay(date.Day())
}

// ColumnForDay returns the attendance column for a day of the month.
func ColumnForDay(day int) string {
	return ColumnPrefix + Ordinal(day)
}

// ParseColumnDay extracts the day of the month from an attendance column
// name. Names with the wrong suffix for their day ("Attendance 21th") or a
// day outside 1..31 are rejected.
func ParseColumnDay(name string) (int, error) {
	matches := columnPattern.FindStringSubmatch(name)
	if len(matches) != 3 {
		return 0, fmt.Errorf("%w: %q is not an attendance column", ErrInvalidArgument, name)
	}

	day, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("%w: invalid day in %q", ErrInvalidArgument, name)
	}
	if day < 1 || day > 31 {
		return 0, fmt.Errorf("%w: day %d out of range in %q", ErrInvalidArgument, day, name)
	}
	if OrdinalSuffix(day) != matches[2] {
		return 0, fmt.Errorf("%w: %q has the wrong ordinal suffix", ErrInvalidArgument, name)
	}

	return day, nil
}

// IsColumn reports whether name is a well-formed attendance column.
func IsColumn(name string) bool {
	_, err := ParseColumnDay(name)
	return err == nil
}

// FindColumn looks up the column for date among the columns present in a
// table. Columns are matched by day number so legacy names written with a
// wrong suffix still resolve. Returns ErrNoMatchingColumn when none matches.
func FindColumn(columns []string, date time.Time) (string, error) {
	want := date.Day()
	for _, col := range columns {
		if columnDayLenient(col) == want {
			return col, nil
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrNoMatchingColumn, FormatDate(date), ColumnName(date))
}

// columnDayLenient reads the day out of a column name without enforcing the
// suffix. Returns 0 for anything that is not an attendance column.
func columnDayLenient(name string) int {
	matches := columnPattern.FindStringSubmatch(name)
	if len(matches) != 3 {
		return 0
	}
	day, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return day
}

// ColumnDays returns the sorted, de-duplicated day numbers of the attendance
// columns in names. Other names are ignored.
func ColumnDays(names []string) []int {
	seen := make(map[int]bool)
	var days []int
	for _, name := range names {
		day := columnDayLenient(name)
		if day == 0 || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	sort.Ints(days)
	return days
}

// AvailableSundays returns the Sundays of t that have a column in columns.
func AvailableSundays(t MonthTable, columns []string) []time.Time {
	days := make(map[int]bool)
	for _, day := range ColumnDays(columns) {
		days[day] = true
	}

	var available []time.Time
	for _, sunday := range Sundays(t) {
		if days[sunday.Day()] {
			available = append(available, sunday)
		}
	}
	return available
}
