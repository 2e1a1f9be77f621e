// Package roster orchestrates attendance marking and badge refreshes over a
// record store. The rules themselves live in package attendance; this
// package resolves dates to columns, loads members and persists results.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmht/attendance-api/internal/attendance"
	"github.com/tmht/attendance-api/internal/calendar"
	"github.com/tmht/attendance-api/internal/database"
)

// ErrNotFound is returned when a member or month table doesn't exist.
var ErrNotFound = database.ErrNotFound

// Store is the record-store contract the service runs against.
// *database.DB implements it; tests use an in-memory fake.
type Store interface {
	ListMembers(ctx context.Context, table calendar.MonthTable) ([]attendance.Member, error)
	ListAttendanceColumns(ctx context.Context, table calendar.MonthTable) ([]string, error)
	GetMember(ctx context.Context, table calendar.MonthTable, id string) (*attendance.Member, error)
	PatchMember(ctx context.Context, table calendar.MonthTable, id string, patch attendance.Patch) (*attendance.Member, error)
	PatchMembersBulk(ctx context.Context, table calendar.MonthTable, ids []string, patch attendance.Patch) ([]database.PatchResult, error)
}

// Service runs roster operations against a Store.
type Service struct {
	store    Store
	resolver *calendar.ColumnResolver
	logger   *slog.Logger
}

// NewService creates a roster service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		resolver: calendar.NewColumnResolver(store),
		logger:   logger,
	}
}

// =============================================================================
// Attendance
// =============================================================================

// MarkAttendance records one member as present or absent on date.
// Returns ErrNoMatchingColumn when the table has no column for date and
// ErrNotFound for an unknown member; nothing is written in either case.
func (s *Service) MarkAttendance(ctx context.Context, table calendar.MonthTable, memberID string, date time.Time, present bool) (*attendance.Member, error) {
	column, err := s.resolver.ResolveDate(ctx, table, date)
	if err != nil {
		return nil, err
	}

	m, err := s.store.PatchMember(ctx, table, memberID, attendance.MarkPatch(date, attendance.StatusFor(present)))
	if err != nil {
		return nil, fmt.Errorf("mark %s: %w", memberID, err)
	}

	s.logger.Debug("attendance marked",
		slog.String("table", table.String()),
		slog.String("member_id", memberID),
		slog.String("column", column),
		slog.Bool("present", present),
	)
	return m, nil
}

// BulkMarkAttendance marks every id with the same status on date. The column
// is resolved once; a missing column fails the whole batch before any write.
// Otherwise each id succeeds or fails on its own.
func (s *Service) BulkMarkAttendance(ctx context.Context, table calendar.MonthTable, ids []string, date time.Time, present bool) ([]database.PatchResult, error) {
	column, err := s.resolver.ResolveDate(ctx, table, date)
	if err != nil {
		return nil, err
	}

	results, err := s.store.PatchMembersBulk(ctx, table, ids, attendance.MarkPatch(date, attendance.StatusFor(present)))
	if err != nil {
		return results, fmt.Errorf("bulk mark: %w", err)
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	s.logger.Info("bulk attendance marked",
		slog.String("table", table.String()),
		slog.String("column", column),
		slog.Bool("present", present),
		slog.Int("requested", len(ids)),
		slog.Int("failed", failed),
	)

	return results, nil
}

// AttendanceForDate returns the members with a Present or Absent mark on
// date, keyed by member id (true = present). Unmarked members are omitted.
func (s *Service) AttendanceForDate(ctx context.Context, table calendar.MonthTable, date time.Time) (map[string]bool, error) {
	if _, err := s.resolver.ResolveDate(ctx, table, date); err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	marks := make(map[string]bool)
	for i := range members {
		status := members[i].StatusOn(date)
		if status.IsSet() {
			marks[members[i].ID] = status == attendance.StatusPresent
		}
	}
	return marks, nil
}

// SundayOptions are the Sundays a table can record attendance for.
type SundayOptions struct {
	Available []time.Time `json:"available"`
	Columns   []string    `json:"columns"`
	Default   *time.Time  `json:"default,omitempty"`
}

// AvailableSundays returns the provisioned Sundays of table and the one the
// dashboard should open on.
func (s *Service) AvailableSundays(ctx context.Context, table calendar.MonthTable) (*SundayOptions, error) {
	sundays, err := s.resolver.AvailableSundays(ctx, table)
	if err != nil {
		return nil, err
	}

	opts := &SundayOptions{
		Available: sundays,
		Columns:   make([]string, len(sundays)),
	}
	for i, sunday := range sundays {
		opts.Columns[i] = calendar.ColumnName(sunday)
	}
	if def, err := calendar.DefaultSunday(sundays); err == nil {
		opts.Default = &def
	}
	return opts, nil
}

// =============================================================================
// Badges
// =============================================================================

// RefreshReport is the outcome of a badge refresh.
type RefreshReport struct {
	Table     string                `json:"table"`
	DryRun    bool                  `json:"dry_run"`
	Sundays   []time.Time           `json:"sundays"`
	Decisions []attendance.Decision `json:"decisions"`
	Applied   []string              `json:"applied"`
	Failed    []RefreshFailure      `json:"failed"`
}

// RefreshFailure records a member whose new badge could not be saved.
type RefreshFailure struct {
	MemberID string `json:"member_id"`
	Error    string `json:"error"`
}

// Changed returns the number of decisions that change a badge.
func (r *RefreshReport) Changed() int {
	return len(attendance.Changed(r.Decisions))
}

// RefreshBadges evaluates every member of table over its provisioned Sundays
// and saves the computed badges that changed, one member at a time. With
// dryRun nothing is saved.
//
// When any Sunday has no marks the refresh is refused with ErrIncompleteData
// and no badge is touched. A save failure for one member is recorded in the
// report and does not stop the others.
func (s *Service) RefreshBadges(ctx context.Context, table calendar.MonthTable, dryRun bool) (*RefreshReport, error) {
	sundays, err := s.resolver.AvailableSundays(ctx, table)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	decisions, err := attendance.EvaluateBatch(sundays, members)
	if err != nil {
		s.logger.Warn("badge refresh refused",
			slog.String("table", table.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	report := &RefreshReport{
		Table:     table.String(),
		DryRun:    dryRun,
		Sundays:   sundays,
		Decisions: decisions,
		Applied:   []string{},
		Failed:    []RefreshFailure{},
	}
	if dryRun {
		return report, nil
	}

	for _, d := range attendance.Changed(decisions) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		_, err := s.store.PatchMember(ctx, table, d.MemberID, attendance.BadgePatch(attendance.Computed(d.New)))
		if err != nil {
			s.logger.Warn("badge update failed",
				slog.String("table", table.String()),
				slog.String("member_id", d.MemberID),
				slog.String("error", err.Error()),
			)
			report.Failed = append(report.Failed, RefreshFailure{MemberID: d.MemberID, Error: err.Error()})
			continue
		}
		report.Applied = append(report.Applied, d.MemberID)
	}

	s.logger.Info("badges refreshed",
		slog.String("table", table.String()),
		slog.Int("members", len(members)),
		slog.Int("applied", len(report.Applied)),
		slog.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// SetManualBadge pins a member's badge to tier. Refreshes leave it alone.
func (s *Service) SetManualBadge(ctx context.Context, table calendar.MonthTable, id string, tier attendance.Tier) (*attendance.Member, error) {
	if !tier.IsValid() {
		return nil, fmt.Errorf("%w: unknown badge %q", calendar.ErrInvalidArgument, tier)
	}
	return s.store.PatchMember(ctx, table, id, attendance.BadgePatch(attendance.Manual(tier)))
}

// ClearManualBadge returns a member to a computed badge, evaluated from
// newcomer over the Sundays recorded so far.
func (s *Service) ClearManualBadge(ctx context.Context, table calendar.MonthTable, id string) (*attendance.Member, error) {
	m, err := s.store.GetMember(ctx, table, id)
	if err != nil {
		return nil, err
	}
	if !m.Badge.IsManual() {
		return m, nil
	}

	sundays, err := s.resolver.AvailableSundays(ctx, table)
	if err != nil {
		return nil, err
	}

	m.Badge = attendance.NewcomerBadge()
	d := attendance.Evaluate(sundays, *m)
	return s.store.PatchMember(ctx, table, id, attendance.BadgePatch(attendance.Computed(d.New)))
}

// =============================================================================
// Queries
// =============================================================================

// Search returns the members of table matching every word of term, narrowed
// to tiers when any are given.
func (s *Service) Search(ctx context.Context, table calendar.MonthTable, term string, tiers []attendance.Tier) ([]attendance.Member, error) {
	members, err := s.store.ListMembers(ctx, table)
	if err != nil {
		return nil, err
	}
	return attendance.FilterByTier(attendance.Filter(members, term), tiers), nil
}

// Summary computes the month summary of table.
func (s *Service) Summary(ctx context.Context, table calendar.MonthTable) (*attendance.Summary, error) {
	sundays, err := s.resolver.AvailableSundays(ctx, table)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, table)
	if err != nil {
		return nil, err
	}

	summary := attendance.Summarize(sundays, members)
	return &summary, nil
}

// IsNotFound reports whether err means a member or table doesn't exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
