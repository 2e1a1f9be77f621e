package attendance

import (
	"time"

	"github.com/tmht/attendance-api/internal/calendar"
)

// Patch is a partial update to a member. Nil fields are left alone.
// Marks are merged by Sunday; a mark with StatusUnset clears that Sunday.
type Patch struct {
	FullName *string
	Gender   *Gender
	Phone    *string
	Age      *int
	ClearAge bool
	Level    *Level
	JoinDate *time.Time
	Badge    *Badge
	Marks    []Mark
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.FullName == nil && p.Gender == nil && p.Phone == nil && p.Age == nil &&
		!p.ClearAge && p.Level == nil && p.JoinDate == nil && p.Badge == nil && len(p.Marks) == 0
}

// MarkPatch sets one Sunday's status.
func MarkPatch(sunday time.Time, status Status) Patch {
	return Patch{Marks: []Mark{{Sunday: calendar.DateOnly(sunday), Status: status}}}
}

// BadgePatch replaces the badge.
func BadgePatch(b Badge) Patch {
	return Patch{Badge: &b}
}

// Apply writes the patch onto m. It does not validate the result.
func (p Patch) Apply(m *Member) {
	if p.FullName != nil {
		m.FullName = *p.FullName
	}
	if p.Gender != nil {
		m.Gender = *p.Gender
	}
	if p.Phone != nil {
		m.Phone = *p.Phone
	}
	if p.ClearAge {
		m.Age = nil
	}
	if p.Age != nil {
		age := *p.Age
		m.Age = &age
	}
	if p.Level != nil {
		m.Level = *p.Level
	}
	if p.JoinDate != nil {
		m.JoinDate = calendar.DateOnly(*p.JoinDate)
	}
	if p.Badge != nil {
		m.Badge = *p.Badge
	}
	for _, mark := range p.Marks {
		m.SetMark(mark.Sunday, mark.Status)
	}
}
