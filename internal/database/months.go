package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tmht/attendance-api/internal/calendar"
)

// =============================================================================
// Month Table Queries
// =============================================================================

// CreateMonthTable provisions a month table with one attendance column per
// Sunday in sundays. An empty sundays provisions every Sunday of the month.
// Members are never copied from another month.
//
// Returns ErrDuplicate if the table already exists, and an
// ErrInvalidArgument-wrapped error for dates that are not Sundays of the month.
func (db *DB) CreateMonthTable(ctx context.Context, table calendar.MonthTable, sundays []time.Time) (*MonthTableInfo, error) {
	if table.IsZero() {
		return nil, fmt.Errorf("%w: month table is required", calendar.ErrInvalidArgument)
	}

	provisioned, err := provisionedSundays(table, sundays)
	if err != nil {
		return nil, err
	}

	now := nowText()
	err = db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO month_tables (name, month, year, created_at) VALUES (?, ?, ?, ?)",
			table.String(), int(table.Month), table.Year, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: month table %s", ErrDuplicate, table)
			}
			return fmt.Errorf("insert month table: %w", err)
		}

		for _, sunday := range provisioned {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO attendance_columns (month_table, sunday, name) VALUES (?, ?, ?)",
				table.String(), calendar.FormatDate(sunday), calendar.ColumnName(sunday),
			)
			if err != nil {
				return fmt.Errorf("insert attendance column %s: %w", calendar.ColumnName(sunday), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	db.logger.Info("month table created",
		slog.String("table", table.String()),
		slog.Int("sundays", len(provisioned)),
	)

	return db.GetMonthTable(ctx, table)
}

// provisionedSundays validates and orders the Sundays to provision.
func provisionedSundays(table calendar.MonthTable, sundays []time.Time) ([]time.Time, error) {
	if len(sundays) == 0 {
		return calendar.Sundays(table), nil
	}

	seen := make(map[string]bool)
	var out []time.Time
	for _, sunday := range sundays {
		if !table.Contains(sunday) {
			return nil, fmt.Errorf("%w: %s is outside %s", calendar.ErrInvalidArgument, calendar.FormatDate(sunday), table)
		}
		if !calendar.IsSunday(sunday) {
			return nil, fmt.Errorf("%w: %s is not a Sunday", calendar.ErrInvalidArgument, calendar.FormatDate(sunday))
		}
		key := calendar.FormatDate(sunday)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, calendar.DateOnly(sunday))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// GetMonthTable retrieves a month table with its columns and member count.
// Returns ErrNotFound if the table doesn't exist.
func (db *DB) GetMonthTable(ctx context.Context, table calendar.MonthTable) (*MonthTableInfo, error) {
	var createdAt sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT created_at FROM month_tables WHERE name = ?",
		table.String(),
	).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: month table %s", ErrNotFound, table)
		}
		return nil, fmt.Errorf("query month table: %w", err)
	}

	info := &MonthTableInfo{
		Name:      table.String(),
		Table:     table,
		CreatedAt: parseTimestamp(createdAt),
	}
	if err := db.fillMonthTable(ctx, info); err != nil {
		return nil, err
	}
	return info, nil
}

// ListMonthTables returns every month table, oldest first (year, then month).
func (db *DB) ListMonthTables(ctx context.Context) ([]MonthTableInfo, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name, month, year, created_at FROM month_tables ORDER BY year ASC, month ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("query month tables: %w", err)
	}

	var tables []MonthTableInfo
	for rows.Next() {
		var (
			name      string
			month     int
			year      int
			createdAt sql.NullString
		)
		if err := rows.Scan(&name, &month, &year, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan month table row: %w", err)
		}
		tables = append(tables, MonthTableInfo{
			Name:      name,
			Table:     calendar.MonthTable{Month: time.Month(month), Year: year},
			CreatedAt: parseTimestamp(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate month tables: %w", err)
	}
	rows.Close()

	// Rows must be closed first: the pool holds a single connection.
	for i := range tables {
		if err := db.fillMonthTable(ctx, &tables[i]); err != nil {
			return nil, err
		}
	}

	if tables == nil {
		tables = []MonthTableInfo{}
	}
	return tables, nil
}

// fillMonthTable loads the columns and member count of info.
func (db *DB) fillMonthTable(ctx context.Context, info *MonthTableInfo) error {
	sundays, columns, err := listColumns(ctx, db, info.Table)
	if err != nil {
		return err
	}
	info.Sundays = sundays
	info.Columns = columns

	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM members WHERE month_table = ?",
		info.Name,
	).Scan(&info.Members)
	if err != nil {
		return fmt.Errorf("count members: %w", err)
	}
	return nil
}

// DeleteMonthTable removes a month table with its columns, members and marks.
// Returns ErrNotFound if the table doesn't exist.
func (db *DB) DeleteMonthTable(ctx context.Context, table calendar.MonthTable) error {
	result, err := db.ExecContext(ctx, "DELETE FROM month_tables WHERE name = ?", table.String())
	if err != nil {
		return fmt.Errorf("delete month table: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: month table %s", ErrNotFound, table)
	}

	db.logger.Info("month table deleted", slog.String("table", table.String()))
	return nil
}

// ListAttendanceColumns returns the attendance column names provisioned for
// table, in Sunday order. Returns ErrNotFound if the table doesn't exist.
func (db *DB) ListAttendanceColumns(ctx context.Context, table calendar.MonthTable) ([]string, error) {
	if err := requireMonthTable(ctx, db, table); err != nil {
		return nil, err
	}
	_, columns, err := listColumns(ctx, db, table)
	return columns, err
}

// requireMonthTable returns ErrNotFound unless table exists.
func requireMonthTable(ctx context.Context, q querier, table calendar.MonthTable) error {
	var exists int
	err := q.QueryRowContext(ctx,
		"SELECT 1 FROM month_tables WHERE name = ?",
		table.String(),
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: month table %s", ErrNotFound, table)
		}
		return fmt.Errorf("query month table: %w", err)
	}
	return nil
}

// listColumns reads the provisioned Sundays and their column names.
func listColumns(ctx context.Context, q querier, table calendar.MonthTable) ([]time.Time, []string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT sunday, name FROM attendance_columns WHERE month_table = ? ORDER BY sunday ASC",
		table.String(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("query attendance columns: %w", err)
	}
	defer rows.Close()

	sundays := []time.Time{}
	columns := []string{}
	for rows.Next() {
		var sundayStr, name string
		if err := rows.Scan(&sundayStr, &name); err != nil {
			return nil, nil, fmt.Errorf("scan attendance column: %w", err)
		}
		sunday, err := calendar.ParseDateString(sundayStr)
		if err != nil {
			return nil, nil, fmt.Errorf("stored column %s: %w", name, err)
		}
		sundays = append(sundays, sunday)
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate attendance columns: %w", err)
	}

	return sundays, columns, nil
}
