package attendance

import "testing"

func testRoster() []Member {
	age16, age17 := 16, 17
	return []Member{
		{ID: "1", FullName: "Kwame Asante", Gender: GenderMale, Phone: "024-123-4567", Age: &age16, Level: LevelSHS1, Badge: Computed(TierRegular)},
		{ID: "2", FullName: "Abena Owusu", Gender: GenderFemale, Phone: "(020) 555 0101", Age: &age17, Level: LevelSHS2, Badge: Computed(TierMember)},
		{ID: "3", FullName: "Kofi Asamoah", Gender: GenderMale, Level: LevelJHS3, Badge: Manual(TierNewcomer)},
	}
}

func TestFilter(t *testing.T) {
	roster := testRoster()

	tests := []struct {
		term string
		want []string
	}{
		{"", []string{"1", "2", "3"}},
		{"   ", []string{"1", "2", "3"}},
		{"kwame", []string{"1"}},
		{"ASA", []string{"1", "3"}},
		{"asa male", []string{"1", "3"}},
		{"female", []string{"2"}},
		{"shs", []string{"1", "2"}},
		{"0241234567", []string{"1"}},
		{"555", []string{"2"}},
		{"17", []string{"2"}},
		{"kofi shs", nil},
		{"nobody", nil},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := Filter(roster, tt.term)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter(%q) returned %d members, want %d", tt.term, len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Filter(%q)[%d] = %s, want %s", tt.term, i, got[i].ID, id)
				}
			}
		})
	}
}

func TestFilterByTier(t *testing.T) {
	roster := testRoster()

	if got := FilterByTier(roster, nil); len(got) != 3 {
		t.Errorf("FilterByTier(nil) returned %d, want 3", len(got))
	}

	got := FilterByTier(roster, []Tier{TierRegular, TierNewcomer})
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("FilterByTier() = %+v, want members 1 and 3", got)
	}
}

func TestSummarize(t *testing.T) {
	P, A := StatusPresent, StatusAbsent
	members := []Member{
		memberWith("1", Computed(TierRegular), P, P, P, A),
		memberWith("2", Manual(TierMember), A, P),
	}
	members[1].Gender = GenderFemale

	s := Summarize(october2025, members)

	if s.Members != 2 {
		t.Errorf("Members = %d, want 2", s.Members)
	}
	if s.ByGender[GenderMale] != 1 || s.ByGender[GenderFemale] != 1 {
		t.Errorf("ByGender = %v, want one each", s.ByGender)
	}
	if s.ByTier[TierRegular] != 1 || s.ByTier[TierMember] != 1 {
		t.Errorf("ByTier = %v", s.ByTier)
	}
	if s.ManualBadges != 1 {
		t.Errorf("ManualBadges = %d, want 1", s.ManualBadges)
	}
	// Rates: 75 and 50
	if s.AverageRate != 63 {
		t.Errorf("AverageRate = %d, want 63", s.AverageRate)
	}
	if len(s.Sundays) != 4 {
		t.Fatalf("len(Sundays) = %d, want 4", len(s.Sundays))
	}
	if c := s.Sundays[2]; c.Present != 1 || c.Unset != 1 || c.Column != "Attendance 19th" {
		t.Errorf("Sundays[2] = %+v, want 1 present, 1 unset", c)
	}
	// Member 1 marked every Sunday, so nothing is unmarked
	if len(s.Unmarked) != 0 {
		t.Errorf("Unmarked = %v, want none", s.Unmarked)
	}
	if !s.ReadyForBadges {
		t.Error("ReadyForBadges = false, want true")
	}

	empty := Summarize(october2025, nil)
	if empty.AverageRate != 0 || len(empty.Unmarked) != 4 || empty.ReadyForBadges {
		t.Errorf("Summarize(nil) = %+v, want zero rate and four unmarked Sundays", empty)
	}
}
