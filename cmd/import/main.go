// Command import loads a roster export (JSON or an .xlsx workbook) into a
// month table.
//
// Usage:
//
//	go run ./cmd/import -file data/october_2025.json -db data/tmht.db
//	go run ./cmd/import -file data/roster.xlsx -table October_2025
//
// This tool:
// 1. Parses the roster (member records keyed the way the dashboard
// exports them: "Full Name", "Gender", "Attendance 5th", ...)
// 2. Creates/opens the SQLite database and runs migrations
// 3. Provisions the month table if it does not exist yet
// 4. Creates every member with their marks and badge
//
// A workbook is read from its first sheet, whose name is the month table
// unless -table says otherwise.
//
// Records without a name are skipped. A record that fails validation is
// reported and skipped; the rest still import. Running twice imports the
// members twice, since records carry no stable id.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tmht/attendance-api/internal/attendance"
	"github.com/tmht/attendance-api/internal/calendar"
	"github.com/tmht/attendance-api/internal/database"
)

func main() {
	// Parse command line flags
	path := flag.String("file", "data/roster.json", "Path to roster JSON or .xlsx file")
	tableKey := flag.String("table", "", "Month table, e.g. October_2025 (overrides the file)")
	dbPath := flag.String("db", "data/tmht.db", "Path to SQLite database")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	// Setup logger
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	// Run import
	if err := run(*path, *tableKey, *dbPath, logger); err != nil {
		logger.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("import complete")
}

func run(path, tableKey, dbPath string, logger *slog.Logger) error {
	ctx := context.Background()
	startTime := time.Now()

	// =========================================================================
	// Step 1: Read and parse the roster
	// =========================================================================
	logger.Info("reading roster", slog.String("path", path))

	importData, err := loadRoster(path)
	if err != nil {
		return err
	}
	if tableKey != "" {
		importData.MonthTable = tableKey
	}

	table, err := calendar.ParseMonthTable(importData.MonthTable)
	if err != nil {
		return fmt.Errorf("month table: %w", err)
	}

	sundays, err := parseSundays(importData.Sundays)
	if err != nil {
		return err
	}

	logger.Info("parsed roster",
		slog.String("table", table.String()),
		slog.Int("members", len(importData.Members)),
		slog.String("source", importData.Metadata.Source),
		slog.String("generated_at", importData.Metadata.GeneratedAt),
	)

	// =========================================================================
	// Step 2: Open database and run migrations
	// =========================================================================
	logger.Info("opening database", slog.String("path", dbPath))

	db, err := database.Open(database.DefaultConfig(dbPath), logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	migrated, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("migrations complete", slog.Int("applied", migrated))

	// =========================================================================
	// Step 3: Provision the month table
	// =========================================================================
	info, err := db.GetMonthTable(ctx, table)
	if errors.Is(err, database.ErrNotFound) {
		info, err = db.CreateMonthTable(ctx, table, sundays)
	}
	if err != nil {
		return fmt.Errorf("month table %s: %w", table, err)
	}

	// =========================================================================
	// Step 4: Import members
	// =========================================================================
	stats := importMembers(ctx, db, table, importData.Members, logger)

	elapsed := time.Since(startTime)

	logger.Info("import finished",
		slog.Int("imported", stats.Imported),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Duration("elapsed", elapsed),
	)

	// Print summary
	fmt.Println()
	fmt.Println("=== Import Summary ===")
	fmt.Printf("Month table:         %s\n", info.Name)
	fmt.Printf("Columns:             %s\n", strings.Join(info.Columns, ", "))
	fmt.Printf("Members imported:    %d\n", stats.Imported)
	fmt.Printf("Marks imported:      %d\n", stats.Marks)
	fmt.Printf("Skipped (no name):   %d\n", stats.Skipped)
	fmt.Printf("Failed:              %d\n", stats.Failed)
	fmt.Printf("Time elapsed:        %v\n", elapsed.Round(time.Millisecond))

	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d records failed", stats.Failed, len(importData.Members))
	}
	return nil
}

// loadRoster parses a JSON export, or a workbook when the file ends in .xlsx.
func loadRoster(path string) (*database.ImportData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readSpreadsheet(f)
	}

	var data database.ImportData
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return &data, nil
}

// ImportStats tracks import statistics.
type ImportStats struct {
	Imported int
	Marks    int
	Skipped  int
	Failed   int
}

// memberCreator is the part of the store the import writes through.
type memberCreator interface {
	CreateMember(ctx context.Context, m *attendance.Member) error
}

// importMembers creates each record as a member of table. Each member is its
// own transaction, so a bad record never undoes the ones before it.
func importMembers(ctx context.Context, store memberCreator, table calendar.MonthTable, records []database.ImportMember, logger *slog.Logger) ImportStats {
	var stats ImportStats

	for i, rec := range records {
		if strings.TrimSpace(rec.FullName) == "" {
			stats.Skipped++
			continue
		}

		m, err := toMember(table, rec)
		if err == nil {
			err = store.CreateMember(ctx, m)
		}
		if err != nil {
			stats.Failed++
			logger.Warn("record not imported",
				slog.Int("record", i+1),
				slog.String("name", rec.FullName),
				slog.String("error", err.Error()),
			)
			continue
		}

		stats.Imported++
		stats.Marks += len(m.Marks)

		// Progress logging every 50 records
		if (i+1)%50 == 0 {
			logger.Debug("import progress",
				slog.Int("record", i+1),
				slog.Int("total", len(records)),
			)
		}
	}

	return stats
}

// toMember converts one exported record into a member of table.
func toMember(table calendar.MonthTable, rec database.ImportMember) (*attendance.Member, error) {
	gender, err := attendance.ParseGender(rec.Gender)
	if err != nil {
		return nil, err
	}

	age, err := looseInt(rec.Age)
	if err != nil {
		return nil, fmt.Errorf("age: %w", err)
	}

	m := &attendance.Member{
		Table:    table,
		FullName: strings.TrimSpace(rec.FullName),
		Gender:   gender,
		Phone:    looseString(rec.Phone),
		Age:      age,
		Level:    attendance.Level(strings.TrimSpace(rec.Level)),
	}

	if rec.JoinDate != "" {
		joined, err := calendar.ParseDateString(strings.TrimSpace(rec.JoinDate))
		if err != nil {
			return nil, fmt.Errorf("join date: %w", err)
		}
		m.JoinDate = joined
	}

	switch {
	case strings.TrimSpace(rec.ManualBadge) != "":
		tier, err := attendance.ParseTier(rec.ManualBadge)
		if err != nil {
			return nil, err
		}
		m.Badge = attendance.Manual(tier)
	case strings.TrimSpace(rec.Badge) != "":
		tier, err := attendance.ParseTier(rec.Badge)
		if err != nil {
			return nil, err
		}
		m.Badge = attendance.Computed(tier)
	}

	for key, value := range rec.Attendance {
		sunday, err := markDate(table, key)
		if err != nil {
			return nil, err
		}
		m.SetMark(sunday, attendance.ParseStatus(value))
	}

	return m, nil
}

// markDate reads an attendance key, either a column name ("Attendance 5th",
// including legacy misspelled suffixes) or a YYYY-MM-DD date.
func markDate(table calendar.MonthTable, key string) (time.Time, error) {
	if sundays := calendar.AvailableSundays(table, []string{key}); len(sundays) == 1 {
		return sundays[0], nil
	}

	date, err := calendar.ParseDateString(strings.TrimSpace(key))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: attendance key %q is neither a Sunday column of %s nor a date",
			calendar.ErrNoMatchingColumn, key, table)
	}
	return date, nil
}

// parseSundays parses the optional list of Sundays to provision.
func parseSundays(values []string) ([]time.Time, error) {
	var sundays []time.Time
	for _, v := range values {
		date, err := calendar.ParseDateString(v)
		if err != nil {
			return nil, fmt.Errorf("sundays: %w", err)
		}
		sundays = append(sundays, date)
	}
	return sundays, nil
}

// looseString renders a value exported as either text or a JSON number.
func looseString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// looseInt reads an optional whole number exported as text or a JSON number.
func looseInt(v any) (*int, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if val != math.Trunc(val) {
			return nil, fmt.Errorf("%w: %v is not a whole number", calendar.ErrInvalidArgument, val)
		}
		n := int(val)
		return &n, nil
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", calendar.ErrInvalidArgument, val)
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %T", calendar.ErrInvalidArgument, v)
	}
}
