package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tmht/attendance-api/internal/attendance"
	"github.com/tmht/attendance-api/internal/calendar"
)

// MonthTableInfo describes a provisioned month table.
type MonthTableInfo struct {
	Name      string              `json:"name"` // e.g. "October_2025"
	Table     calendar.MonthTable `json:"-"`
	Sundays   []time.Time         `json:"sundays"` // provisioned Sundays, ascending
	Columns   []string            `json:"columns"` // "Attendance 5th", ...
	Members   int                 `json:"members"`
	CreatedAt time.Time           `json:"created_at"`
}

// PatchResult is the outcome of patching one member in a bulk update.
type PatchResult struct {
	ID     string             `json:"id"`
	Member *attendance.Member `json:"member,omitempty"`
	Err    error              `json:"-"`
}

// OK reports whether the patch was applied.
func (r PatchResult) OK() bool {
	return r.Err == nil
}

// -----------------------------------------------------------------
// Settings
// -----------------------------------------------------------------

// Theme values accepted in Settings.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Settings are an owner's dashboard preferences. They are loaded and saved
// explicitly; nothing reads them from ambient state.
type Settings struct {
	BadgeFilter   []attendance.Tier `json:"badge_filter"`
	StickyMonth   string            `json:"sticky_month,omitempty"`   // month table key
	StickySundays []string          `json:"sticky_sundays,omitempty"` // YYYY-MM-DD
	Theme         string            `json:"theme"`
	Ministries    []string          `json:"ministries,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// DefaultSettings returns the settings of an owner who never saved any.
func DefaultSettings() Settings {
	return Settings{
		BadgeFilter: []attendance.Tier{},
		Theme:       ThemeSystem,
	}
}

// Validate checks that every setting refers to something real.
func (s *Settings) Validate() error {
	for _, tier := range s.BadgeFilter {
		if !tier.IsValid() {
			return fmt.Errorf("%w: unknown badge %q in filter", calendar.ErrInvalidArgument, tier)
		}
	}

	switch s.Theme {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return fmt.Errorf("%w: theme must be light, dark or system; got %q", calendar.ErrInvalidArgument, s.Theme)
	}

	var sticky calendar.MonthTable
	if s.StickyMonth != "" {
		table, err := calendar.ParseMonthTable(s.StickyMonth)
		if err != nil {
			return fmt.Errorf("sticky month: %w", err)
		}
		sticky = table
	}

	for _, ds := range s.StickySundays {
		d, err := calendar.ParseDateString(ds)
		if err != nil {
			return fmt.Errorf("sticky sunday: %w", err)
		}
		if !calendar.IsSunday(d) {
			return fmt.Errorf("%w: sticky date %s is not a Sunday", calendar.ErrInvalidArgument, ds)
		}
		if !sticky.IsZero() && !sticky.Contains(d) {
			return fmt.Errorf("%w: sticky date %s is outside %s", calendar.ErrInvalidArgument, ds, sticky)
		}
	}

	return nil
}

// -----------------------------------------------------------------
// Import types
// -----------------------------------------------------------------

// ImportData is the JSON roster format read by cmd/import. Member rows
// follow the dashboard's export: attendance keyed by column name.
type ImportData struct {
	Metadata struct {
		Source      string `json:"source"`
		GeneratedAt string `json:"generated_at"`
	} `json:"metadata"`
	MonthTable string         `json:"month_table"`
	Sundays    []string       `json:"sundays,omitempty"` // defaults to every Sunday of the month
	Members    []ImportMember `json:"members"`
}

// ImportMember is one roster row.
type ImportMember struct {
	FullName    string         `json:"Full Name"`
	Gender      string         `json:"Gender"`
	Phone       any            `json:"Phone Number"` // string or number in old exports
	Age         any            `json:"Age"`          // string or number in old exports
	Level       string         `json:"Current Level"`
	JoinDate    string         `json:"Join Date"`
	Badge       string         `json:"Badge Type"`
	ManualBadge string         `json:"Manual Badge"`
	Attendance  map[string]any `json:"attendance"` // "Attendance 5th": "Present"
}

// -----------------------------------------------------------------
// Scan helpers
// -----------------------------------------------------------------

// parseTimestamp parses a timestamp from SQLite TEXT format.
// Tries multiple formats and returns the zero time if parsing fails.
func parseTimestamp(ns sql.NullString) time.Time {
	if !ns.Valid || ns.String == "" {
		return time.Time{}
	}

	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return t
		}
	}

	return time.Time{}
}

// nowText formats the current time the way timestamps are stored.
func nowText() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
