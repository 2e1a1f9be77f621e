package attendance

import (
	"testing"
	"time"
)

func sunday(day int) time.Time {
	return time.Date(2025, time.October, day, 0, 0, 0, 0, time.UTC)
}

func TestRate(t *testing.T) {
	tests := []struct {
		name  string
		marks []Mark
		want  int
	}{
		{
			name: "unset excluded from both sides",
			marks: []Mark{
				{Sunday: time.Date(2025, time.September, 7, 0, 0, 0, 0, time.UTC), Status: StatusPresent},
				{Sunday: time.Date(2025, time.September, 14, 0, 0, 0, 0, time.UTC), Status: StatusAbsent},
				{Sunday: time.Date(2025, time.September, 21, 0, 0, 0, 0, time.UTC), Status: StatusUnset},
			},
			want: 50,
		},
		{
			name:  "no marks",
			marks: nil,
			want:  0,
		},
		{
			name:  "only unset marks",
			marks: []Mark{{Sunday: sunday(5)}, {Sunday: sunday(12)}},
			want:  0,
		},
		{
			name: "rounds two thirds up",
			marks: []Mark{
				{Sunday: sunday(5), Status: StatusPresent},
				{Sunday: sunday(12), Status: StatusPresent},
				{Sunday: sunday(19), Status: StatusAbsent},
			},
			want: 67,
		},
		{
			name: "rounds one third down",
			marks: []Mark{
				{Sunday: sunday(5), Status: StatusPresent},
				{Sunday: sunday(12), Status: StatusAbsent},
				{Sunday: sunday(19), Status: StatusAbsent},
			},
			want: 33,
		},
		{
			name: "all present",
			marks: []Mark{
				{Sunday: sunday(5), Status: StatusPresent},
				{Sunday: sunday(12), Status: StatusPresent},
			},
			want: 100,
		},
		{
			name: "all absent",
			marks: []Mark{
				{Sunday: sunday(5), Status: StatusAbsent},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rate(tt.marks); got != tt.want {
				t.Errorf("Rate() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		value any
		want  Status
	}{
		{"Present", StatusPresent},
		{"present", StatusPresent},
		{"Absent", StatusAbsent},
		{" ABSENT ", StatusAbsent},
		{true, StatusPresent},
		{false, StatusAbsent},
		{"true", StatusPresent},
		{"", StatusUnset},
		{"Late", StatusUnset},
		{nil, StatusUnset},
		{42, StatusUnset},
		{StatusPresent, StatusPresent},
		{Status("maybe"), StatusUnset},
	}

	for _, tt := range tests {
		if got := ParseStatus(tt.value); got != tt.want {
			t.Errorf("ParseStatus(%#v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestMember_SetMark(t *testing.T) {
	m := Member{ID: "m1"}

	m.SetMark(sunday(19), StatusPresent)
	m.SetMark(sunday(5), StatusAbsent)
	m.SetMark(sunday(12), StatusPresent)

	if len(m.Marks) != 3 {
		t.Fatalf("len(Marks) = %d, want 3", len(m.Marks))
	}
	for i, day := range []int{5, 12, 19} {
		if m.Marks[i].Sunday.Day() != day {
			t.Errorf("Marks[%d] = day %d, want %d", i, m.Marks[i].Sunday.Day(), day)
		}
	}

	m.SetMark(sunday(5), StatusPresent)
	if got := m.StatusOn(sunday(5)); got != StatusPresent {
		t.Errorf("StatusOn(5) = %q after overwrite, want Present", got)
	}

	m.SetMark(sunday(12), StatusUnset)
	if got := m.StatusOn(sunday(12)); got != StatusUnset {
		t.Errorf("StatusOn(12) = %q after clear, want unset", got)
	}
	if len(m.Marks) != 2 {
		t.Errorf("len(Marks) = %d after clear, want 2", len(m.Marks))
	}
}

func TestMember_Validate(t *testing.T) {
	age := 16
	badAge := -1

	tests := []struct {
		name    string
		member  Member
		wantErr bool
	}{
		{
			name:   "valid",
			member: Member{FullName: "Ama Mensah", Gender: GenderFemale, Level: LevelSHS1, Age: &age, Badge: NewcomerBadge()},
		},
		{
			name:    "empty name",
			member:  Member{FullName: "  ", Gender: GenderMale, Badge: NewcomerBadge()},
			wantErr: true,
		},
		{
			name:    "bad gender",
			member:  Member{FullName: "Kofi", Gender: "other", Badge: NewcomerBadge()},
			wantErr: true,
		},
		{
			name:    "bad level",
			member:  Member{FullName: "Kofi", Gender: GenderMale, Level: "SHS9", Badge: NewcomerBadge()},
			wantErr: true,
		},
		{
			name:    "negative age",
			member:  Member{FullName: "Kofi", Gender: GenderMale, Age: &badAge, Badge: NewcomerBadge()},
			wantErr: true,
		},
		{
			name:    "missing badge",
			member:  Member{FullName: "Kofi", Gender: GenderMale},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.member.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
