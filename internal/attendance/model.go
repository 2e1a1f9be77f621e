// Package attendance holds the member model and the pure rules computed
// from it: attendance rates, badge eligibility, search and monthly summaries.
package attendance

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tmht/attendance-api/internal/calendar"
)

// =============================================================================
// Status
// =============================================================================

// Status is one Sunday's attendance mark.
type Status string

const (
	StatusUnset   Status = ""
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// IsSet reports whether the mark counts towards rates (present or absent).
func (s Status) IsSet() bool {
	return s == StatusPresent || s == StatusAbsent
}

// ParseStatus decodes a stored attendance value. "Present" and "Absent"
// (any case) and the booleans true/false are understood; anything else,
// including malformed values, decodes as StatusUnset.
func ParseStatus(value any) Status {
	switch v := value.(type) {
	case Status:
		if v.IsSet() {
			return v
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "present", "true":
			return StatusPresent
		case "absent", "false":
			return StatusAbsent
		}
	case bool:
		if v {
			return StatusPresent
		}
		return StatusAbsent
	}
	return StatusUnset
}

// StatusFor maps a present flag to a Status.
func StatusFor(present bool) Status {
	if present {
		return StatusPresent
	}
	return StatusAbsent
}

// Mark is the attendance status of one member on one Sunday.
type Mark struct {
	Sunday time.Time `json:"sunday"`
	Status Status    `json:"status"`
}

// Column returns the attendance column name the mark is stored under.
func (m Mark) Column() string {
	return calendar.ColumnName(m.Sunday)
}

// SortMarks orders marks chronologically in place.
func SortMarks(marks []Mark) {
	sort.SliceStable(marks, func(i, j int) bool {
		return marks[i].Sunday.Before(marks[j].Sunday)
	})
}

// =============================================================================
// Member
// =============================================================================

// Gender is a member's gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender accepts "male"/"female" in any case.
func ParseGender(s string) (Gender, error) {
	switch Gender(strings.ToLower(strings.TrimSpace(s))) {
	case GenderMale:
		return GenderMale, nil
	case GenderFemale:
		return GenderFemale, nil
	}
	return "", fmt.Errorf("%w: gender must be male or female, got %q", calendar.ErrInvalidArgument, s)
}

// Level is a member's school level.
type Level string

const (
	LevelJHS1      Level = "JHS1"
	LevelJHS2      Level = "JHS2"
	LevelJHS3      Level = "JHS3"
	LevelSHS1      Level = "SHS1"
	LevelSHS2      Level = "SHS2"
	LevelSHS3      Level = "SHS3"
	LevelCompleted Level = "Completed"
)

// ValidLevels returns all valid levels.
func ValidLevels() []Level {
	return []Level{LevelJHS1, LevelJHS2, LevelJHS3, LevelSHS1, LevelSHS2, LevelSHS3, LevelCompleted}
}

// IsValid checks if a level is valid.
func (l Level) IsValid() bool {
	for _, valid := range ValidLevels() {
		if l == valid {
			return true
		}
	}
	return false
}

// ErrEmptyName is returned when a member has no full name.
var ErrEmptyName = errors.New("full name cannot be empty")

// Member is one person tracked for one month table.
type Member struct {
	ID        string              `json:"id"`
	Table     calendar.MonthTable `json:"-"`
	FullName  string              `json:"full_name"`
	Gender    Gender              `json:"gender"`
	Phone     string              `json:"phone,omitempty"`
	Age       *int                `json:"age,omitempty"`
	Level     Level               `json:"level"`
	JoinDate  time.Time           `json:"join_date"`
	Badge     Badge               `json:"badge"`
	Marks     []Mark              `json:"marks"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Validate checks the fixed core fields.
func (m *Member) Validate() error {
	if strings.TrimSpace(m.FullName) == "" {
		return ErrEmptyName
	}
	if m.Gender != GenderMale && m.Gender != GenderFemale {
		return fmt.Errorf("%w: gender must be male or female, got %q", calendar.ErrInvalidArgument, m.Gender)
	}
	if m.Level != "" && !m.Level.IsValid() {
		return fmt.Errorf("%w: unknown level %q", calendar.ErrInvalidArgument, m.Level)
	}
	if m.Age != nil && (*m.Age < 0 || *m.Age > 150) {
		return fmt.Errorf("%w: age %d out of range", calendar.ErrInvalidArgument, *m.Age)
	}
	return m.Badge.Validate()
}

// StatusOn returns the member's mark for sunday, StatusUnset when none.
func (m *Member) StatusOn(sunday time.Time) Status {
	for _, mark := range m.Marks {
		if calendar.SameDay(mark.Sunday, sunday) {
			return mark.Status
		}
	}
	return StatusUnset
}

// SetMark records status for sunday, replacing any existing mark and keeping
// marks in chronological order. StatusUnset removes the mark.
func (m *Member) SetMark(sunday time.Time, status Status) {
	sunday = calendar.DateOnly(sunday)
	for i, mark := range m.Marks {
		if calendar.SameDay(mark.Sunday, sunday) {
			if !status.IsSet() {
				m.Marks = append(m.Marks[:i], m.Marks[i+1:]...)
				return
			}
			m.Marks[i].Status = status
			return
		}
	}
	if !status.IsSet() {
		return
	}
	m.Marks = append(m.Marks, Mark{Sunday: sunday, Status: status})
	SortMarks(m.Marks)
}

// Rate returns the member's attendance rate in percent.
func (m *Member) Rate() int {
	return Rate(m.Marks)
}
