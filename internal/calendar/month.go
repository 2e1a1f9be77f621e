// Package calendar provides the date arithmetic behind monthly attendance
// tables: month-table keys, Sunday enumeration and attendance column names.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Error Types
// =============================================================================

// ErrInvalidArgument is returned for malformed month names, years or
// month-table keys. Callers must not proceed with the value.
var ErrInvalidArgument = errors.New("invalid argument")

// Four-digit years only; the table key format depends on it.
const (
	MinYear = 1000
	MaxYear = 9999
)

// monthNames maps English month names (and their common abbreviations) to
// months. Lookups are case-insensitive.
var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// ParseMonth converts an English month name to a time.Month.
func ParseMonth(name string) (time.Month, error) {
	month, ok := monthNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown month %q", ErrInvalidArgument, name)
	}
	return month, nil
}

// ValidateYear checks that year fits the four-digit table key format.
func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("%w: year must be between %d and %d, got %d", ErrInvalidArgument, MinYear, MaxYear, year)
	}
	return nil
}

// MonthTable identifies the partition holding one calendar month of member
// records, e.g. "October_2025".
type MonthTable struct {
	Month time.Month
	Year  int
}

// NewMonthTable builds a MonthTable from a month name and year.
func NewMonthTable(monthName string, year int) (MonthTable, error) {
	month, err := ParseMonth(monthName)
	if err != nil {
		return MonthTable{}, err
	}
	if err := ValidateYear(year); err != nil {
		return MonthTable{}, err
	}
	return MonthTable{Month: month, Year: year}, nil
}

// MonthTableFor returns the table containing the given date.
func MonthTableFor(date time.Time) MonthTable {
	return MonthTable{Month: date.Month(), Year: date.Year()}
}

// ParseMonthTable parses a "{EnglishMonthName}_{FourDigitYear}" key.
// The month name must be spelled in full with a leading capital, exactly as
// String produces it, so stored keys stay canonical.
func ParseMonthTable(key string) (MonthTable, error) {
	name, yearStr, ok := strings.Cut(key, "_")
	if !ok {
		return MonthTable{}, fmt.Errorf("%w: month table %q must look like October_2025", ErrInvalidArgument, key)
	}

	month, err := ParseMonth(name)
	if err != nil || month.String() != name {
		return MonthTable{}, fmt.Errorf("%w: month table %q has an unknown month name", ErrInvalidArgument, key)
	}

	if len(yearStr) != 4 {
		return MonthTable{}, fmt.Errorf("%w: month table %q needs a four-digit year", ErrInvalidArgument, key)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return MonthTable{}, fmt.Errorf("%w: month table %q has a non-numeric year", ErrInvalidArgument, key)
	}
	if err := ValidateYear(year); err != nil {
		return MonthTable{}, err
	}

	return MonthTable{Month: month, Year: year}, nil
}

// String returns the table key, e.g. "September_2025".
func (t MonthTable) String() string {
	return fmt.Sprintf("%s_%04d", t.Month.String(), t.Year)
}

// IsZero reports whether t is the zero MonthTable.
func (t MonthTable) IsZero() bool {
	return t.Month == 0 && t.Year == 0
}

// Start returns midnight UTC on the first day of the month.
func (t MonthTable) Start() time.Time {
	return time.Date(t.Year, t.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether date falls inside the month.
func (t MonthTable) Contains(date time.Time) bool {
	return date.Year() == t.Year && date.Month() == t.Month
}

// Next returns the following month's table.
func (t MonthTable) Next() MonthTable {
	return MonthTableFor(t.Start().AddDate(0, 1, 0))
}

// Before reports whether t sorts before other (by year, then month).
func (t MonthTable) Before(other MonthTable) bool {
	if t.Year != other.Year {
		return t.Year < other.Year
	}
	return t.Month < other.Month
}

// SortMonthTables orders tables chronologically in place.
func SortMonthTables(tables []MonthTable) {
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Before(tables[j])
	})
}

// ParseDateString parses a YYYY-MM-DD date.
func ParseDateString(dateStr string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidArgument, dateStr)
	}
	return date, nil
}

// FormatDate formats a date as YYYY-MM-DD.
func FormatDate(date time.Time) string {
	return date.Format("2006-01-02")
}
