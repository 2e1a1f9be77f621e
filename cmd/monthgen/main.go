// Command monthgen prints the Sundays, attendance columns and feast days of
// a month (or every month of a year) and can provision the month tables.
//
// Usage:
//
//	go run ./cmd/monthgen -year 2025 -month October
//	go run ./cmd/monthgen -year 2026 -create -db data/tmht.db
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tmht/attendance-api/internal/calendar"
	"github.com/tmht/attendance-api/internal/database"
)

func main() {
	year := flag.Int("year", time.Now().Year(), "Year to generate")
	month := flag.String("month", "", "Month name; empty for the whole year")
	create := flag.Bool("create", false, "Provision the month tables in the database")
	dbPath := flag.String("db", "data/tmht.db", "Path to SQLite database (with -create)")
	flag.Parse()

	tables, err := monthTables(*month, *year)
	if err != nil {
		fmt.Fprintf(os.Stderr, "monthgen: %v\n", err)
		os.Exit(2)
	}

	printCalendar(os.Stdout, tables)

	if !*create {
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := provision(context.Background(), *dbPath, tables, logger); err != nil {
		logger.Error("provisioning failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// monthTables returns the requested month, or all twelve months of year.
func monthTables(monthName string, year int) ([]calendar.MonthTable, error) {
	if monthName != "" {
		table, err := calendar.NewMonthTable(monthName, year)
		if err != nil {
			return nil, err
		}
		return []calendar.MonthTable{table}, nil
	}

	if err := calendar.ValidateYear(year); err != nil {
		return nil, err
	}
	tables := make([]calendar.MonthTable, 0, 12)
	for m := time.January; m <= time.December; m++ {
		tables = append(tables, calendar.MonthTable{Month: m, Year: year})
	}
	return tables, nil
}

// printCalendar writes one block per month table.
func printCalendar(w io.Writer, tables []calendar.MonthTable) {
	for i, table := range tables {
		if i > 0 {
			fmt.Fprintln(w)
		}

		sundays := calendar.Sundays(table)
		fmt.Fprintf(w, "=== %s (%d Sundays) ===\n", table, len(sundays))

		def, _ := calendar.DefaultSunday(sundays)
		for _, sunday := range sundays {
			marker := " "
			if sunday.Equal(def) {
				marker = "*"
			}
			line := fmt.Sprintf("%s %s  %-16s", marker, calendar.FormatDate(sunday), calendar.ColumnName(sunday))
			if feast := calendar.FeastName(sunday); feast != "" {
				line += "  " + feast
			}
			fmt.Fprintln(w, strings.TrimRight(line, " "))
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "* default Sunday for the dashboard")
}

// monthStore is the part of the store provisioning needs.
type monthStore interface {
	CreateMonthTable(ctx context.Context, table calendar.MonthTable, sundays []time.Time) (*database.MonthTableInfo, error)
}

// provision opens the database and creates each month table that is missing.
func provision(ctx context.Context, dbPath string, tables []calendar.MonthTable, logger *slog.Logger) error {
	db, err := database.Open(database.DefaultConfig(dbPath), logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	created, existing, err := createTables(ctx, db, tables)
	if err != nil {
		return err
	}

	logger.Info("month tables provisioned",
		slog.Int("created", created),
		slog.Int("already_present", existing),
	)
	return nil
}

// createTables creates every table with all its Sundays. Tables that already
// exist are counted and left alone.
func createTables(ctx context.Context, store monthStore, tables []calendar.MonthTable) (created, existing int, err error) {
	for _, table := range tables {
		_, err := store.CreateMonthTable(ctx, table, nil)
		switch {
		case err == nil:
			created++
		case errors.Is(err, database.ErrDuplicate):
			existing++
		default:
			return created, existing, fmt.Errorf("create %s: %w", table, err)
		}
	}
	return created, existing, nil
}
