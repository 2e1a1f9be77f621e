package attendance

import (
	"strconv"
	"strings"
)

var phoneSeparators = strings.NewReplacer("-", "", " ", "", "(", "", ")", "")

// searchText lowercases the fields a dashboard search looks at. The phone
// number appears both as typed and with separators stripped so "0241234567"
// finds "024-123-4567".
func searchText(m *Member) string {
	phone := strings.ToLower(m.Phone)
	age := ""
	if m.Age != nil {
		age = strconv.Itoa(*m.Age)
	}

	return strings.Join([]string{
		strings.ToLower(m.FullName),
		string(m.Gender),
		phone,
		strings.ToLower(string(m.Level)),
		age,
		phoneSeparators.Replace(phone),
	}, " ")
}

// Matches reports whether every whitespace-separated word of term occurs in
// the member's name, gender, phone, level or age. An empty term matches.
func Matches(m *Member, term string) bool {
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return true
	}

	text := searchText(m)
	for _, word := range words {
		if !strings.Contains(text, word) {
			return false
		}
	}
	return true
}

// Filter returns the members matching term, preserving order.
func Filter(members []Member, term string) []Member {
	if strings.TrimSpace(term) == "" {
		return members
	}

	var matched []Member
	for i := range members {
		if Matches(&members[i], term) {
			matched = append(matched, members[i])
		}
	}
	return matched
}

// FilterByTier keeps members whose badge tier is in tiers. No tiers keeps
// everyone.
func FilterByTier(members []Member, tiers []Tier) []Member {
	if len(tiers) == 0 {
		return members
	}

	wanted := make(map[Tier]bool, len(tiers))
	for _, t := range tiers {
		wanted[t] = true
	}

	var matched []Member
	for _, m := range members {
		if wanted[m.Badge.Tier] {
			matched = append(matched, m)
		}
	}
	return matched
}
