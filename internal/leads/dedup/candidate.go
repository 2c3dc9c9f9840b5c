package dedup

import (
	"sort"
	"strings"

	"crm_backend/internal/leads/domain"
)

// Match types reported by MatchCandidate.
const (
	MatchTypeName  = "name"
	MatchTypePhone = "phone"
	MatchTypeEmail = "email"
)

const (
	firstNamePrefix = 6
	lastNamePrefix  = 4
)

// Candidate is a not-yet-stored contact checked against existing leads,
// typically while a lead is being entered.
type Candidate struct {
	Name  string
	Phone string
	Email string
}

// IsEmpty reports whether the candidate carries nothing to match on.
func (c Candidate) IsEmpty() bool {
	return strings.TrimSpace(c.Name) == "" && NormalizePhone(c.Phone) == "" && strings.TrimSpace(c.Email) == ""
}

// Match is an existing lead that shares at least one signal with a candidate.
type Match struct {
	Lead       domain.Lead `json:"lead"`
	MatchScore int         `json:"matchScore"`
	MatchTypes []string    `json:"matchTypes"`
}

// MatchCandidate returns the leads sharing a name, phone or email with c,
// ordered by the number of matching signals (stable for ties).
func MatchCandidate(c Candidate, leads []domain.Lead) []Match {
	phoneKey := NormalizePhone(c.Phone)
	email := strings.TrimSpace(c.Email)

	var matches []Match
	for _, l := range leads {
		var types []string
		if c.Name != "" && l.Name != "" && namesMatch(c.Name, l.Name) {
			types = append(types, MatchTypeName)
		}
		if phoneKey != "" && phoneKey == NormalizePhone(l.Phone) {
			types = append(types, MatchTypePhone)
		}
		if email != "" && strings.EqualFold(email, strings.TrimSpace(l.Email())) {
			types = append(types, MatchTypeEmail)
		}
		if len(types) > 0 {
			matches = append(matches, Match{Lead: l, MatchScore: len(types), MatchTypes: types})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	return matches
}

// namesMatch is a strict prefix comparison: the first names must share their
// first six letters, and when the input has a last name the stored name must
// have one too, sharing its first four letters.
func namesMatch(input, stored string) bool {
	inputParts := strings.Fields(strings.ToLower(input))
	storedParts := strings.Fields(strings.ToLower(stored))
	if len(inputParts) == 0 || len(storedParts) == 0 {
		return false
	}

	if !prefixEqual(inputParts[0], storedParts[0], firstNamePrefix) {
		return false
	}

	if len(inputParts) > 1 {
		if len(storedParts) < 2 {
			return false
		}
		return prefixEqual(inputParts[len(inputParts)-1], storedParts[len(storedParts)-1], lastNamePrefix)
	}
	return true
}

// prefixEqual compares the first n runes, shortened to the shorter word.
func prefixEqual(a, b string, n int) bool {
	ar, br := []rune(a), []rune(b)
	n = min(n, len(ar), len(br))
	return string(ar[:n]) == string(br[:n])
}
