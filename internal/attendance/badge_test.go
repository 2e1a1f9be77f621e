package attendance

import (
	"errors"
	"testing"
	"time"
)

// october2025 are the four Sundays of October 2025.
var october2025 = []time.Time{sunday(5), sunday(12), sunday(19), sunday(26)}

func memberWith(id string, badge Badge, statuses ...Status) Member {
	m := Member{ID: id, FullName: "Member " + id, Gender: GenderMale, Badge: badge}
	for i, s := range statuses {
		m.SetMark(october2025[i], s)
	}
	return m
}

func TestEvaluate(t *testing.T) {
	P, A, U := StatusPresent, StatusAbsent, StatusUnset

	tests := []struct {
		name        string
		member      Member
		wantTier    Tier
		wantChanged bool
		wantPresent int
		wantMax     int
	}{
		{
			name:        "three consecutive then absent is regular",
			member:      memberWith("a", NewcomerBadge(), P, P, P, A),
			wantTier:    TierRegular,
			wantChanged: true,
			wantPresent: 3,
			wantMax:     3,
		},
		{
			name:        "first and third Sundays is member",
			member:      memberWith("b", NewcomerBadge(), P, A, P, A),
			wantTier:    TierMember,
			wantChanged: true,
			wantPresent: 2,
			wantMax:     1,
		},
		{
			name:        "unset breaks a streak",
			member:      memberWith("c", NewcomerBadge(), P, P, U, P),
			wantTier:    TierMember,
			wantChanged: true,
			wantPresent: 3,
			wantMax:     2,
		},
		{
			name:        "one presence keeps newcomer",
			member:      memberWith("d", NewcomerBadge(), A, P, A, A),
			wantTier:    TierNewcomer,
			wantChanged: false,
			wantPresent: 1,
			wantMax:     1,
		},
		{
			name:        "rule miss keeps prior tier",
			member:      memberWith("e", Computed(TierRegular), A, A, A, P),
			wantTier:    TierRegular,
			wantChanged: false,
			wantPresent: 1,
			wantMax:     1,
		},
		{
			name:        "already regular stays regular",
			member:      memberWith("f", Computed(TierRegular), P, P, P, P),
			wantTier:    TierRegular,
			wantChanged: false,
			wantPresent: 4,
			wantMax:     4,
		},
		{
			name:        "member with late streak becomes regular",
			member:      memberWith("g", Computed(TierMember), A, P, P, P),
			wantTier:    TierRegular,
			wantChanged: true,
			wantPresent: 3,
			wantMax:     3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(october2025, tt.member)
			if d.New != tt.wantTier {
				t.Errorf("New = %q, want %q", d.New, tt.wantTier)
			}
			if d.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", d.Changed, tt.wantChanged)
			}
			if d.PresentCount != tt.wantPresent {
				t.Errorf("PresentCount = %d, want %d", d.PresentCount, tt.wantPresent)
			}
			if d.MaxConsecutive != tt.wantMax {
				t.Errorf("MaxConsecutive = %d, want %d", d.MaxConsecutive, tt.wantMax)
			}
			if d.MemberID != tt.member.ID {
				t.Errorf("MemberID = %q, want %q", d.MemberID, tt.member.ID)
			}
			if d.Previous != tt.member.Badge.Tier {
				t.Errorf("Previous = %q, want %q", d.Previous, tt.member.Badge.Tier)
			}
		})
	}
}

func TestEvaluate_ManualOverrideWins(t *testing.T) {
	m := memberWith("m", Manual(TierRegular))

	d := Evaluate(october2025, m)
	if d.New != TierRegular || d.Previous != TierRegular {
		t.Errorf("decision = %+v, want regular -> regular", d)
	}
	if d.Changed {
		t.Error("Changed = true, want false for manual badge")
	}
	if !d.Manual {
		t.Error("Manual = false, want true")
	}

	// A manual newcomer is not promoted by a perfect month either
	m = memberWith("n", Manual(TierNewcomer), StatusPresent, StatusPresent, StatusPresent, StatusPresent)
	d = Evaluate(october2025, m)
	if d.New != TierNewcomer || d.Changed {
		t.Errorf("decision = %+v, want unchanged manual newcomer", d)
	}
}

func TestEvaluate_UnorderedSundays(t *testing.T) {
	m := memberWith("u", NewcomerBadge(), StatusPresent, StatusPresent, StatusPresent, StatusAbsent)
	shuffled := []time.Time{sunday(19), sunday(5), sunday(26), sunday(12)}

	d := Evaluate(shuffled, m)
	if d.MaxConsecutive != 3 || d.New != TierRegular {
		t.Errorf("decision = %+v, want streak 3 and regular", d)
	}
	if !shuffled[0].Equal(sunday(19)) {
		t.Error("Evaluate reordered the caller's slice")
	}
}

func TestEvaluateBatch(t *testing.T) {
	P, A := StatusPresent, StatusAbsent
	members := []Member{
		memberWith("1", NewcomerBadge(), P, P, P, A),
		memberWith("2", NewcomerBadge(), A, A, A, A),
		memberWith("3", Manual(TierMember), P, A, A, A),
	}

	decisions, err := EvaluateBatch(october2025, members)
	if err != nil {
		t.Fatalf("EvaluateBatch() error = %v", err)
	}
	if len(decisions) != len(members) {
		t.Fatalf("len(decisions) = %d, want %d", len(decisions), len(members))
	}

	want := []struct {
		id      string
		tier    Tier
		changed bool
	}{
		{"1", TierRegular, true},
		{"2", TierNewcomer, false},
		{"3", TierMember, false},
	}
	for i, w := range want {
		d := decisions[i]
		if d.MemberID != w.id || d.New != w.tier || d.Changed != w.changed {
			t.Errorf("decisions[%d] = %+v, want id=%s tier=%s changed=%v", i, d, w.id, w.tier, w.changed)
		}
	}

	if changed := Changed(decisions); len(changed) != 1 || changed[0].MemberID != "1" {
		t.Errorf("Changed() = %+v, want only member 1", changed)
	}
}

func TestEvaluateBatch_IncompleteData(t *testing.T) {
	P, A, U := StatusPresent, StatusAbsent, StatusUnset
	members := []Member{
		memberWith("1", NewcomerBadge(), P, P, U, P),
		memberWith("2", NewcomerBadge(), A, P, U, A),
	}

	decisions, err := EvaluateBatch(october2025, members)
	if !errors.Is(err, ErrIncompleteData) {
		t.Fatalf("EvaluateBatch() error = %v, want ErrIncompleteData", err)
	}
	if decisions != nil {
		t.Errorf("EvaluateBatch() returned %d decisions, want none", len(decisions))
	}

	missing := IncompleteSundays(october2025, members)
	if len(missing) != 1 || !missing[0].Equal(sunday(19)) {
		t.Errorf("IncompleteSundays() = %v, want [2025-10-19]", missing)
	}
}

func TestEvaluateBatch_NoSundays(t *testing.T) {
	_, err := EvaluateBatch(nil, []Member{memberWith("1", NewcomerBadge())})
	if !errors.Is(err, ErrIncompleteData) {
		t.Errorf("EvaluateBatch(nil) error = %v, want ErrIncompleteData", err)
	}
}

func TestParseTier(t *testing.T) {
	for _, s := range []string{"newcomer", "Member", " REGULAR "} {
		if _, err := ParseTier(s); err != nil {
			t.Errorf("ParseTier(%q) error = %v", s, err)
		}
	}
	if _, err := ParseTier("visitor"); err == nil {
		t.Error("ParseTier(visitor) expected error")
	}
}
