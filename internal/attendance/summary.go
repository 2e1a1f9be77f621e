package attendance

import (
	"math"
	"time"
)

// SundayCount tallies marks for one Sunday.
type SundayCount struct {
	Sunday  time.Time `json:"sunday"`
	Column  string    `json:"column"`
	Present int       `json:"present"`
	Absent  int       `json:"absent"`
	Unset   int       `json:"unset"`
}

// Summary describes a month table at a glance.
type Summary struct {
	Members        int            `json:"members"`
	ByGender       map[Gender]int `json:"by_gender"`
	ByTier         map[Tier]int   `json:"by_tier"`
	ManualBadges   int            `json:"manual_badges"`
	Sundays        []SundayCount  `json:"sundays"`
	AverageRate    int            `json:"average_rate"`
	Unmarked       []time.Time    `json:"unmarked_sundays"`
	ReadyForBadges bool           `json:"ready_for_badges"`
}

// Summarize tallies members and marks over the given Sundays.
// AverageRate is the rounded mean of the members' individual rates.
func Summarize(sundays []time.Time, members []Member) Summary {
	summary := Summary{
		Members:  len(members),
		ByGender: make(map[Gender]int),
		ByTier:   make(map[Tier]int),
	}

	rateTotal := 0
	for i := range members {
		m := &members[i]
		summary.ByGender[m.Gender]++
		summary.ByTier[m.Badge.Tier]++
		if m.Badge.IsManual() {
			summary.ManualBadges++
		}
		rateTotal += m.Rate()
	}
	if len(members) > 0 {
		summary.AverageRate = int(math.Round(float64(rateTotal) / float64(len(members))))
	}

	for _, sunday := range sortedSundays(sundays) {
		count := SundayCount{Sunday: sunday, Column: Mark{Sunday: sunday}.Column()}
		for i := range members {
			switch members[i].StatusOn(sunday) {
			case StatusPresent:
				count.Present++
			case StatusAbsent:
				count.Absent++
			default:
				count.Unset++
			}
		}
		summary.Sundays = append(summary.Sundays, count)
	}

	summary.Unmarked = IncompleteSundays(sundays, members)
	summary.ReadyForBadges = len(sundays) > 0 && len(summary.Unmarked) == 0
	return summary
}
