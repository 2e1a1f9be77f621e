// Command badgesync recomputes the badges of a month table from its
// attendance, the same batch refresh the dashboard triggers.
//
// Usage:
//
//	go run ./cmd/badgesync -table October_2025 -dry-run
//	go run ./cmd/badgesync -table October_2025 -db data/tmht.db
//
// The refresh refuses to run while any provisioned Sunday has no marks at
// all. Manual badges are reported but never changed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tmht/attendance-api/internal/calendar"
	"github.com/tmht/attendance-api/internal/database"
	"github.com/tmht/attendance-api/internal/roster"
)

func main() {
	tableKey := flag.String("table", "", "Month table, e.g. October_2025 (required)")
	dbPath := flag.String("db", "data/tmht.db", "Path to SQLite database")
	dryRun := flag.Bool("dry-run", false, "Report decisions without writing")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	table, err := calendar.ParseMonthTable(*tableKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "badgesync: -table: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *dbPath, table, *dryRun, logger); err != nil {
		logger.Error("badge sync failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, dbPath string, table calendar.MonthTable, dryRun bool, logger *slog.Logger) error {
	db, err := database.Open(database.DefaultConfig(dbPath), logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	report, err := roster.NewService(db, logger).RefreshBadges(ctx, table, dryRun)
	if err != nil {
		return err
	}

	printReport(os.Stdout, report)

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d badge writes failed", len(report.Failed))
	}
	return nil
}

// printReport writes one line per member whose badge changes, then totals.
func printReport(w io.Writer, report *roster.RefreshReport) {
	mode := "applied"
	if report.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "=== Badge refresh: %s (%s) ===\n", report.Table, mode)

	manual := 0
	for _, d := range report.Decisions {
		switch {
		case d.Manual:
			manual++
		case d.Changed:
			fmt.Fprintf(w, "  %-30s %-8s -> %-8s (present %d, streak %d)\n",
				d.FullName, d.Previous, d.New, d.PresentCount, d.MaxConsecutive)
		}
	}

	for _, f := range report.Failed {
		fmt.Fprintf(w, "  ! %s: %s\n", f.MemberID, f.Error)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Members:        %d\n", len(report.Decisions))
	fmt.Fprintf(w, "Changed:        %d\n", report.Changed())
	fmt.Fprintf(w, "Applied:        %d\n", len(report.Applied))
	fmt.Fprintf(w, "Manual (kept):  %d\n", manual)
}
