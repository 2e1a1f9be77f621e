package attendance

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tmht/attendance-api/internal/calendar"
)

// ErrIncompleteData is returned when badge processing is asked to run while
// some Sunday of the month has no attendance recorded for anybody.
var ErrIncompleteData = errors.New("attendance incomplete")

// Badge thresholds. Fixed ministry policy.
const (
	RegularStreak   = 3 // consecutive Sundays present
	MemberPresences = 2 // Sundays present in the month
)

// =============================================================================
// Tier and Badge
// =============================================================================

// Tier is a membership level shown as a badge.
type Tier string

const (
	TierNewcomer Tier = "newcomer"
	TierMember   Tier = "member"
	TierRegular  Tier = "regular"
)

// ValidTiers returns all badge tiers, lowest first.
func ValidTiers() []Tier {
	return []Tier{TierNewcomer, TierMember, TierRegular}
}

// IsValid checks if a tier is valid.
func (t Tier) IsValid() bool {
	for _, valid := range ValidTiers() {
		if t == valid {
			return true
		}
	}
	return false
}

// ParseTier accepts a tier name in any case.
func ParseTier(s string) (Tier, error) {
	tier := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !tier.IsValid() {
		return "", fmt.Errorf("%w: unknown badge %q", calendar.ErrInvalidArgument, s)
	}
	return tier, nil
}

// BadgeSource tells whether a badge was derived from attendance or assigned
// by hand.
type BadgeSource string

const (
	SourceComputed BadgeSource = "computed"
	SourceManual   BadgeSource = "manual"
)

// Badge is either Computed(tier) or Manual(tier). A manual badge is never
// recomputed.
type Badge struct {
	Tier   Tier        `json:"tier"`
	Source BadgeSource `json:"source"`
}

// Computed returns a badge derived from attendance.
func Computed(tier Tier) Badge {
	return Badge{Tier: tier, Source: SourceComputed}
}

// Manual returns a hand-assigned badge.
func Manual(tier Tier) Badge {
	return Badge{Tier: tier, Source: SourceManual}
}

// NewcomerBadge is the badge every new member starts with.
func NewcomerBadge() Badge {
	return Computed(TierNewcomer)
}

// IsManual reports whether the badge overrides computation.
func (b Badge) IsManual() bool {
	return b.Source == SourceManual
}

// Validate checks tier and source.
func (b Badge) Validate() error {
	if !b.Tier.IsValid() {
		return fmt.Errorf("%w: unknown badge %q", calendar.ErrInvalidArgument, b.Tier)
	}
	if b.Source != SourceComputed && b.Source != SourceManual {
		return fmt.Errorf("%w: unknown badge source %q", calendar.ErrInvalidArgument, b.Source)
	}
	return nil
}

// =============================================================================
// Eligibility
// =============================================================================

// Decision is the outcome of evaluating one member. The engine never writes;
// callers persist New when Changed is true.
type Decision struct {
	MemberID       string `json:"member_id"`
	FullName       string `json:"full_name"`
	Previous       Tier   `json:"previous_badge"`
	New            Tier   `json:"new_badge"`
	Changed        bool   `json:"changed"`
	Manual         bool   `json:"manual"`
	PresentCount   int    `json:"present_count"`
	MaxConsecutive int    `json:"max_consecutive"`
}

// Streaks returns the number of Sundays marked present and the longest run
// of consecutive Sundays marked present. An absent or unset Sunday ends a
// run. sundays must be in chronological order.
func Streaks(sundays []time.Time, m *Member) (presentCount, maxConsecutive int) {
	run := 0
	for _, sunday := range sundays {
		if m.StatusOn(sunday) != StatusPresent {
			run = 0
			continue
		}
		presentCount++
		run++
		if run > maxConsecutive {
			maxConsecutive = run
		}
	}
	return presentCount, maxConsecutive
}

// tierFor applies the badge rules in order; the first match wins.
func tierFor(presentCount, maxConsecutive int, current Tier) Tier {
	switch {
	case maxConsecutive >= RegularStreak:
		return TierRegular
	case presentCount >= MemberPresences:
		return TierMember
	default:
		return current
	}
}

// Evaluate decides the badge for one member over the Sundays of the active
// month.
func Evaluate(sundays []time.Time, m Member) Decision {
	decision := Decision{
		MemberID: m.ID,
		FullName: m.FullName,
		Previous: m.Badge.Tier,
		New:      m.Badge.Tier,
		Manual:   m.Badge.IsManual(),
	}

	ordered := sortedSundays(sundays)
	decision.PresentCount, decision.MaxConsecutive = Streaks(ordered, &m)

	if m.Badge.IsManual() {
		return decision
	}

	current := m.Badge.Tier
	if current == "" {
		current = TierNewcomer
	}

	decision.New = tierFor(decision.PresentCount, decision.MaxConsecutive, current)
	decision.Changed = decision.New != m.Badge.Tier
	return decision
}

// IncompleteSundays returns the Sundays on which no member has a Present or
// Absent mark.
func IncompleteSundays(sundays []time.Time, members []Member) []time.Time {
	var missing []time.Time
	for _, sunday := range sortedSundays(sundays) {
		marked := false
		for i := range members {
			if members[i].StatusOn(sunday).IsSet() {
				marked = true
				break
			}
		}
		if !marked {
			missing = append(missing, sunday)
		}
	}
	return missing
}

// EvaluateBatch decides badges for every member, in input order. It refuses
// with ErrIncompleteData when there are no Sundays or when any Sunday has no
// marks at all; no decisions are returned in that case.
func EvaluateBatch(sundays []time.Time, members []Member) ([]Decision, error) {
	if len(sundays) == 0 {
		return nil, fmt.Errorf("%w: no Sundays to evaluate", ErrIncompleteData)
	}

	if missing := IncompleteSundays(sundays, members); len(missing) > 0 {
		dates := make([]string, len(missing))
		for i, sunday := range missing {
			dates[i] = calendar.FormatDate(sunday)
		}
		return nil, fmt.Errorf("%w: no marks on %s", ErrIncompleteData, strings.Join(dates, ", "))
	}

	decisions := make([]Decision, 0, len(members))
	for _, m := range members {
		decisions = append(decisions, Evaluate(sundays, m))
	}
	return decisions, nil
}

// Changed filters decisions down to the ones that need persisting.
func Changed(decisions []Decision) []Decision {
	var changed []Decision
	for _, d := range decisions {
		if d.Changed {
			changed = append(changed, d)
		}
	}
	return changed
}

func sortedSundays(sundays []time.Time) []time.Time {
	if sort.SliceIsSorted(sundays, func(i, j int) bool { return sundays[i].Before(sundays[j]) }) {
		return sundays
	}
	ordered := make([]time.Time, len(sundays))
	copy(ordered, sundays)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })
	return ordered
}
