package database

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tmht/attendance-api/internal/attendance"
	"github.com/tmht/attendance-api/internal/calendar"
)

// testDB creates a temporary in-memory database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()

	// Use in-memory database for tests
	cfg := DefaultConfig(":memory:")

	// Quiet logger for tests
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	db, err := Open(cfg, logger)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	ctx := context.Background()
	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

var october2025 = calendar.MonthTable{Month: time.October, Year: 2025}

func day(d int) time.Time {
	return time.Date(2025, time.October, d, 0, 0, 0, 0, time.UTC)
}

// seedMonth provisions October 2025 (Sundays 5, 12, 19, 26) with two members.
func seedMonth(t *testing.T, db *DB) (ama, kofi *attendance.Member) {
	t.Helper()
	ctx := context.Background()

	if _, err := db.CreateMonthTable(ctx, october2025, nil); err != nil {
		t.Fatalf("create month table: %v", err)
	}

	ama = &attendance.Member{
		Table:    october2025,
		FullName: "Ama Mensah",
		Gender:   attendance.GenderFemale,
		Phone:    "024-555-0101",
		Level:    attendance.LevelSHS2,
	}
	kofi = &attendance.Member{
		Table:    october2025,
		FullName: "Kofi Boateng",
		Gender:   attendance.GenderMale,
		Level:    attendance.LevelJHS3,
		Marks: []attendance.Mark{
			{Sunday: day(5), Status: attendance.StatusPresent},
		},
	}
	for _, m := range []*attendance.Member{ama, kofi} {
		if err := db.CreateMember(ctx, m); err != nil {
			t.Fatalf("create member %s: %v", m.FullName, err)
		}
	}
	return ama, kofi
}

func intPtr(i int) *int {
	return &i
}

// -----------------------------------------------------------------
// DB tests
// -----------------------------------------------------------------

func TestOpen(t *testing.T) {
	db := testDB(t)

	if err := db.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestMigrate(t *testing.T) {
	db := testDB(t)

	// Already applied in testDB; running again is a no-op
	count, err := db.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Migrate() count = %d, want 0 (already applied)", count)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO month_tables (name, month, year) VALUES ('October_2025', 10, 2025)",
		); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	if _, err := db.GetMonthTable(ctx, october2025); !IsNotFound(err) {
		t.Errorf("GetMonthTable() after rollback error = %v, want ErrNotFound", err)
	}
}

// -----------------------------------------------------------------
// Month table tests
// -----------------------------------------------------------------

func TestCreateMonthTable(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	info, err := db.CreateMonthTable(ctx, october2025, nil)
	if err != nil {
		t.Fatalf("CreateMonthTable() error = %v", err)
	}

	if info.Name != "October_2025" {
		t.Errorf("Name = %q, want October_2025", info.Name)
	}
	want := []string{"Attendance 5th", "Attendance 12th", "Attendance 19th", "Attendance 26th"}
	if len(info.Columns) != len(want) {
		t.Fatalf("Columns = %v, want %v", info.Columns, want)
	}
	for i := range want {
		if info.Columns[i] != want[i] {
			t.Errorf("Columns[%d] = %q, want %q", i, info.Columns[i], want[i])
		}
		if !calendar.SameDay(info.Sundays[i], day(5+7*i)) {
			t.Errorf("Sundays[%d] = %v, want Oct %d", i, info.Sundays[i], 5+7*i)
		}
	}
	if info.Members != 0 {
		t.Errorf("Members = %d, want 0", info.Members)
	}

	if _, err := db.CreateMonthTable(ctx, october2025, nil); !errors.Is(err, ErrDuplicate) {
		t.Errorf("CreateMonthTable() twice error = %v, want ErrDuplicate", err)
	}
}

func TestCreateMonthTable_Subset(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	info, err := db.CreateMonthTable(ctx, october2025, []time.Time{day(19), day(5), day(19)})
	if err != nil {
		t.Fatalf("CreateMonthTable() error = %v", err)
	}

	if len(info.Columns) != 2 || info.Columns[0] != "Attendance 5th" || info.Columns[1] != "Attendance 19th" {
		t.Errorf("Columns = %v, want [Attendance 5th Attendance 19th]", info.Columns)
	}
}

func TestCreateMonthTable_InvalidSundays(t *testing.T) {
	tests := []struct {
		name    string
		sundays []time.Time
	}{
		{"not a sunday", []time.Time{day(6)}},
		{"other month", []time.Time{time.Date(2025, time.November, 2, 0, 0, 0, 0, time.UTC)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testDB(t)
			_, err := db.CreateMonthTable(context.Background(), october2025, tt.sundays)
			if !errors.Is(err, calendar.ErrInvalidArgument) {
				t.Errorf("CreateMonthTable() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestListMonthTables(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, key := range []string{"January_2026", "October_2025", "September_2025"} {
		table, err := calendar.ParseMonthTable(key)
		if err != nil {
			t.Fatalf("ParseMonthTable(%q) error = %v", key, err)
		}
		if _, err := db.CreateMonthTable(ctx, table, nil); err != nil {
			t.Fatalf("CreateMonthTable(%s) error = %v", key, err)
		}
	}

	tables, err := db.ListMonthTables(ctx)
	if err != nil {
		t.Fatalf("ListMonthTables() error = %v", err)
	}

	want := []string{"September_2025", "October_2025", "January_2026"}
	if len(tables) != len(want) {
		t.Fatalf("ListMonthTables() returned %d tables, want %d", len(tables), len(want))
	}
	for i := range want {
		if tables[i].Name != want[i] {
			t.Errorf("tables[%d] = %s, want %s", i, tables[i].Name, want[i])
		}
		if len(tables[i].Columns) == 0 {
			t.Errorf("tables[%d] has no columns", i)
		}
	}
}

func TestDeleteMonthTable(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	ama, _ := seedMonth(t, db)

	if err := db.DeleteMonthTable(ctx, october2025); err != nil {
		t.Fatalf("DeleteMonthTable() error = %v", err)
	}

	if _, err := db.GetMember(ctx, october2025, ama.ID); !IsNotFound(err) {
		t.Errorf("GetMember() after delete error = %v, want ErrNotFound", err)
	}

	var marks int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attendance_marks").Scan(&marks); err != nil {
		t.Fatalf("count marks: %v", err)
	}
	if marks != 0 {
		t.Errorf("attendance_marks has %d rows after delete, want 0", marks)
	}

	if err := db.DeleteMonthTable(ctx, october2025); !IsNotFound(err) {
		t.Errorf("DeleteMonthTable() twice error = %v, want ErrNotFound", err)
	}
}

func TestListAttendanceColumns_UnknownTable(t *testing.T) {
	db := testDB(t)

	_, err := db.ListAttendanceColumns(context.Background(), october2025)
	if !IsNotFound(err) {
		t.Errorf("ListAttendanceColumns() error = %v, want ErrNotFound", err)
	}
}

// -----------------------------------------------------------------
// Member tests
// -----------------------------------------------------------------

func TestCreateMember(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	ama, kofi := seedMonth(t, db)

	if _, err := uuid.Parse(ama.ID); err != nil {
		t.Errorf("generated ID %q is not a UUID: %v", ama.ID, err)
	}
	if ama.Badge != attendance.NewcomerBadge() {
		t.Errorf("Badge = %+v, want computed newcomer", ama.Badge)
	}
	if ama.JoinDate.IsZero() {
		t.Error("JoinDate not defaulted")
	}

	got, err := db.GetMember(ctx, october2025, kofi.ID)
	if err != nil {
		t.Fatalf("GetMember() error = %v", err)
	}
	if got.FullName != "Kofi Boateng" || got.Gender != attendance.GenderMale || got.Level != attendance.LevelJHS3 {
		t.Errorf("GetMember() = %+v", got)
	}
	if got.Table != october2025 {
		t.Errorf("Table = %v, want %v", got.Table, october2025)
	}
	if got.StatusOn(day(5)) != attendance.StatusPresent {
		t.Errorf("StatusOn(Oct 5) = %q, want Present", got.StatusOn(day(5)))
	}
	if got.StatusOn(day(12)) != attendance.StatusUnset {
		t.Errorf("StatusOn(Oct 12) = %q, want unset", got.StatusOn(day(12)))
	}
}

func TestCreateMember_Errors(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedMonth(t, db)

	tests := []struct {
		name   string
		member attendance.Member
		check  func(error) bool
	}{
		{
			name:   "unknown table",
			member: attendance.Member{Table: calendar.MonthTable{Month: time.March, Year: 2026}, FullName: "Esi", Gender: attendance.GenderFemale},
			check:  IsNotFound,
		},
		{
			name:   "empty name",
			member: attendance.Member{Table: october2025, FullName: "  ", Gender: attendance.GenderFemale},
			check:  func(err error) bool { return errors.Is(err, attendance.ErrEmptyName) },
		},
		{
			name:   "bad gender",
			member: attendance.Member{Table: october2025, FullName: "Esi", Gender: "other"},
			check:  func(err error) bool { return errors.Is(err, calendar.ErrInvalidArgument) },
		},
		{
			name: "mark without column",
			member: attendance.Member{
				Table: october2025, FullName: "Esi", Gender: attendance.GenderFemale,
				Marks: []attendance.Mark{{Sunday: day(7), Status: attendance.StatusPresent}},
			},
			check: func(err error) bool { return errors.Is(err, calendar.ErrNoMatchingColumn) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.member
			err := db.CreateMember(ctx, &m)
			if !tt.check(err) {
				t.Errorf("CreateMember() error = %v", err)
			}
		})
	}

	members, err := db.ListMembers(ctx, october2025)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(members) != 2 {
		t.Errorf("ListMembers() returned %d members, want 2 (failed creates must not write)", len(members))
	}
}

func TestListMembers(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	ama, kofi := seedMonth(t, db)

	members, err := db.ListMembers(ctx, october2025)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("ListMembers() returned %d members, want 2", len(members))
	}
	if members[0].ID != ama.ID || members[1].ID != kofi.ID {
		t.Errorf("ListMembers() order = [%s %s], want insertion order", members[0].FullName, members[1].FullName)
	}
	if len(members[0].Marks) != 0 {
		t.Errorf("Ama marks = %v, want none", members[0].Marks)
	}
	if len(members[1].Marks) != 1 {
		t.Errorf("Kofi marks = %v, want one", members[1].Marks)
	}
}

func TestListMembers_MalformedStatus(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	ama, _ := seedMonth(t, db)

	_, err := db.ExecContext(ctx,
		"INSERT INTO attendance_marks (member_id, sunday, status) VALUES (?, '2025-10-12', 'maybe')",
		ama.ID,
	)
	if err != nil {
		t.Fatalf("insert raw mark: %v", err)
	}

	got, err := db.GetMember(ctx, october2025, ama.ID)
	if err != nil {
		t.Fatalf("GetMember() error = %v", err)
	}
	if got.StatusOn(day(12)) != attendance.StatusUnset {
		t.Errorf("malformed status decoded as %q, want unset", got.StatusOn(day(12)))
	}
}

func TestDeleteMember(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	ama, _ := seedMonth(t, db)

	if err := db.DeleteMember(ctx, october2025, ama.ID); err != nil {
		t.Fatalf("DeleteMember() error = %v", err)
	}
	if err := db.DeleteMember(ctx, october2025, ama.ID); !IsNotFound(err) {
		t.Errorf("DeleteMember() twice error = %v, want ErrNotFound", err)
	}
}

// -----------------------------------------------------------------
// Patch tests
// -----------------------------------------------------------------

func TestPatchMember(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	ama, _ := seedMonth(t, db)

	name := "Ama Serwaa Mensah"
	patch := attendance.MarkPatch(day(12), attendance.StatusAbsent)
	patch.FullName = &name
	patch.Age = intPtr(16)

	got, err := db.PatchMember(ctx, october2025, ama.ID, patch)
	if err != nil {
		t.Fatalf("PatchMember() error = %v", err)
	}
	if got.FullName != name || got.Age == nil || *got.Age != 16 {
		t.Errorf("PatchMember() = %+v", got)
	}

	stored, err := db.GetMember(ctx, october2025, ama.ID)
	if err != nil {
		t.Fatalf("GetMember() error = %v", err)
	}
	if stored.FullName != name {
		t.Errorf("stored FullName = %q, want %q", stored.FullName, name)
	}
	if stored.StatusOn(day(12)) != attendance.StatusAbsent {
		t.Errorf("stored StatusOn(Oct 12) = %q, want Absent", stored.StatusOn(day(12)))
	}

	// Unset clears the mark.
	if _, err := db.PatchMember(ctx, october2025, ama.ID, attendance.MarkPatch(day(12), attendance.StatusUnset)); err != nil {
		t.Fatalf("PatchMember(unset) error = %v", err)
	}
	stored, _ = db.GetMember(ctx, october2025, ama.ID)
	if len(stored.Marks) != 0 {
		t.Errorf("marks after unset = %v, want none", stored.Marks)
	}
}

func TestPatchMember_NoMatchingColumn(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	ama, _ := seedMonth(t, db)

	name := "Renamed"
	patch := attendance.MarkPatch(time.Date(2025, time.November, 2, 0, 0, 0, 0, time.UTC), attendance.StatusPresent)
	patch.FullName = &name

	_, err := db.PatchMember(ctx, october2025, ama.ID, patch)
	if !errors.Is(err, calendar.ErrNoMatchingColumn) {
		t.Fatalf("PatchMember() error = %v, want ErrNoMatchingColumn", err)
	}

	stored, _ := db.GetMember(ctx, october2025, ama.ID)
	if stored.FullName != "Ama Mensah" || len(stored.Marks) != 0 {
		t.Errorf("failed patch wrote data: %+v", stored)
	}
}

func TestPatchMember_NotFound(t *testing.T) {
	db := testDB(t)
	seedMonth(t, db)

	_, err := db.PatchMember(context.Background(), october2025, "missing", attendance.MarkPatch(day(5), attendance.StatusPresent))
	if !IsNotFound(err) {
		t.Errorf("PatchMember() error = %v, want ErrNotFound", err)
	}
}

func TestPatchMember_ManualBadge(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_, kofi := seedMonth(t, db)

	got, err := db.PatchMember(ctx, october2025, kofi.ID, attendance.BadgePatch(attendance.Manual(attendance.TierRegular)))
	if err != nil {
		t.Fatalf("PatchMember() error = %v", err)
	}
	if !got.Badge.IsManual() || got.Badge.Tier != attendance.TierRegular {
		t.Errorf("Badge = %+v, want manual regular", got.Badge)
	}

	stored, _ := db.GetMember(ctx, october2025, kofi.ID)
	if stored.Badge != attendance.Manual(attendance.TierRegular) {
		t.Errorf("stored Badge = %+v, want manual regular", stored.Badge)
	}
}

func TestPatchMembersBulk(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	ama, kofi := seedMonth(t, db)

	results, err := db.PatchMembersBulk(ctx, october2025,
		[]string{ama.ID, "missing", kofi.ID},
		attendance.MarkPatch(day(19), attendance.StatusPresent),
	)
	if err != nil {
		t.Fatalf("PatchMembersBulk() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("PatchMembersBulk() returned %d results, want 3", len(results))
	}

	if !results[0].OK() || !results[2].OK() {
		t.Errorf("known ids failed: %v, %v", results[0].Err, results[2].Err)
	}
	if !IsNotFound(results[1].Err) {
		t.Errorf("results[1].Err = %v, want ErrNotFound", results[1].Err)
	}

	for _, id := range []string{ama.ID, kofi.ID} {
		m, err := db.GetMember(ctx, october2025, id)
		if err != nil {
			t.Fatalf("GetMember(%s) error = %v", id, err)
		}
		if m.StatusOn(day(19)) != attendance.StatusPresent {
			t.Errorf("%s StatusOn(Oct 19) = %q, want Present", m.FullName, m.StatusOn(day(19)))
		}
	}
}

// -----------------------------------------------------------------
// Settings tests
// -----------------------------------------------------------------

func TestLoadSettings_Default(t *testing.T) {
	db := testDB(t)

	s, err := db.LoadSettings(context.Background(), "default")
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Theme != ThemeSystem {
		t.Errorf("Theme = %q, want system", s.Theme)
	}
	if s.BadgeFilter == nil || len(s.BadgeFilter) != 0 {
		t.Errorf("BadgeFilter = %v, want empty", s.BadgeFilter)
	}
}

func TestSaveSettings_RoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	in := &Settings{
		BadgeFilter:   []attendance.Tier{attendance.TierRegular, attendance.TierMember},
		StickyMonth:   "October_2025",
		StickySundays: []string{"2025-10-12"},
		Theme:         ThemeDark,
		Ministries:    []string{"Choir", "Ushering"},
	}
	if err := db.SaveSettings(ctx, "default", in); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	out, err := db.LoadSettings(ctx, "default")
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if out.Theme != ThemeDark || out.StickyMonth != "October_2025" {
		t.Errorf("LoadSettings() = %+v", out)
	}
	if len(out.BadgeFilter) != 2 || out.BadgeFilter[0] != attendance.TierRegular {
		t.Errorf("BadgeFilter = %v", out.BadgeFilter)
	}
	if len(out.StickySundays) != 1 || out.StickySundays[0] != "2025-10-12" {
		t.Errorf("StickySundays = %v", out.StickySundays)
	}
	if len(out.Ministries) != 2 {
		t.Errorf("Ministries = %v", out.Ministries)
	}
	if out.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	// Other owners are unaffected.
	other, err := db.LoadSettings(ctx, "someone-else")
	if err != nil {
		t.Fatalf("LoadSettings(other) error = %v", err)
	}
	if other.Theme != ThemeSystem {
		t.Errorf("other Theme = %q, want system", other.Theme)
	}
}

func TestSaveSettings_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{"theme", Settings{Theme: "neon"}},
		{"badge", Settings{Theme: ThemeLight, BadgeFilter: []attendance.Tier{"elder"}}},
		{"sticky month", Settings{Theme: ThemeLight, StickyMonth: "october_2025"}},
		{"sticky weekday", Settings{Theme: ThemeLight, StickySundays: []string{"2025-10-13"}}},
		{"sticky outside month", Settings{Theme: ThemeLight, StickyMonth: "October_2025", StickySundays: []string{"2025-11-02"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testDB(t)
			s := tt.settings
			err := db.SaveSettings(context.Background(), "default", &s)
			if !errors.Is(err, calendar.ErrInvalidArgument) {
				t.Errorf("SaveSettings() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}
