package calendar

import (
	"context"
	"fmt"
	"time"
)

// ColumnLister reports the attendance columns provisioned for a table.
// This allows us to use either the database or an in-memory fake.
type ColumnLister interface {
	ListAttendanceColumns(ctx context.Context, table MonthTable) ([]string, error)
}

// ColumnResolver resolves calendar dates to attendance columns of a table.
type ColumnResolver struct {
	db ColumnLister
}

// NewColumnResolver creates a new column resolver.
func NewColumnResolver(db ColumnLister) *ColumnResolver {
	return &ColumnResolver{db: db}
}

// ResolveDate returns the column that records attendance for date in table.
// Dates outside the table's month never match, even when the day number
// does; the result is ErrNoMatchingColumn.
func (cr *ColumnResolver) ResolveDate(ctx context.Context, table MonthTable, date time.Time) (string, error) {
	if !table.Contains(date) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrNoMatchingColumn, FormatDate(date), table)
	}

	columns, err := cr.db.ListAttendanceColumns(ctx, table)
	if err != nil {
		return "", fmt.Errorf("list attendance columns: %w", err)
	}

	return FindColumn(columns, date)
}

// AvailableSundays returns the Sundays of table that have been provisioned
// with an attendance column, ascending.
func (cr *ColumnResolver) AvailableSundays(ctx context.Context, table MonthTable) ([]time.Time, error) {
	columns, err := cr.db.ListAttendanceColumns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("list attendance columns: %w", err)
	}
	return AvailableSundays(table, columns), nil
}
