// Package dedup finds groups of lead records that likely describe the same person.
// Everything here is pure: no I/O, no shared state, deterministic for a given input.
package dedup

import "crm_backend/internal/leads/domain"

// DefaultThreshold is the similarity cutoff used when callers do not pick one.
const DefaultThreshold = 0.85

// Scores assigned by the matching rules.
const (
	phoneMatchScore = 0.95
	nameMatchScore  = 0.90
	exactMatchScore = 1.0
	// fuzzyDiscount penalizes name-only fuzzy matches without phone corroboration.
	fuzzyDiscount = 0.85
)

// Options controls a detection run.
type Options struct {
	// Threshold is the minimum score for two records to be linked, in [0,1].
	Threshold float64
	// ExactOnly links records only when names are equal and phones are non-empty and equal.
	ExactOnly bool
}

// DefaultOptions returns fuzzy matching at DefaultThreshold.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold}
}

// Group is one master and the records judged to duplicate it.
type Group struct {
	MasterID     string   `json:"masterId"`
	DuplicateIDs []string `json:"duplicateIds"`
	Similarity   float64  `json:"similarity"`
}

// Detect scans leads left to right. Each record not yet grouped becomes a
// candidate master and collects every later ungrouped record that links to it.
// Duplicates are compared against the master only, never against each other,
// so a group is a star around its master rather than a transitive cluster.
// Groups are emitted only when at least one duplicate was collected.
func Detect(leads []domain.Lead, opts Options) []Group {
	keys := make([]key, len(leads))
	for i, l := range leads {
		keys[i] = keyOf(l.Name, l.Phone)
	}

	visited := make(map[string]bool, len(leads))
	var groups []Group

	for i, master := range leads {
		if visited[master.ID] {
			continue
		}
		visited[master.ID] = true

		var group Group
		for j := i + 1; j < len(leads); j++ {
			candidate := leads[j]
			if visited[candidate.ID] {
				continue
			}
			score, linked := score(keys[i], keys[j], opts)
			if !linked {
				continue
			}
			group.DuplicateIDs = append(group.DuplicateIDs, candidate.ID)
			if score > group.Similarity {
				group.Similarity = score
			}
			visited[candidate.ID] = true
		}

		if len(group.DuplicateIDs) > 0 {
			group.MasterID = master.ID
			groups = append(groups, group)
		}
	}

	return groups
}

// Compare scores a single pair and reports whether it would be linked.
func Compare(a, b domain.Lead, opts Options) (float64, bool) {
	return score(keyOf(a.Name, a.Phone), keyOf(b.Name, b.Phone), opts)
}

// score applies the matching rules in priority order; the first rule that
// applies decides the score.
func score(a, b key, opts Options) (float64, bool) {
	phonesMatch := a.phone != "" && a.phone == b.phone

	if opts.ExactOnly {
		if a.name == b.name && phonesMatch {
			return exactMatchScore, exactMatchScore >= opts.Threshold
		}
		return 0, false
	}

	if phonesMatch {
		return phoneMatchScore, phoneMatchScore >= opts.Threshold
	}
	if a.name != "" && a.name == b.name {
		return nameMatchScore, nameMatchScore >= opts.Threshold
	}

	// Two empty names are equal strings here and score 1 before the discount.
	sim := Similarity(a.name, b.name)
	if sim < opts.Threshold {
		return 0, false
	}
	// Equal phones returned above, so a fuzzy name match is never corroborated here.
	result := sim * fuzzyDiscount
	return result, result >= opts.Threshold
}

// DuplicatesOf returns the other members of the group containing leadID, in
// group order. A master gets its duplicates; a duplicate gets the master
// followed by its siblings.
func DuplicatesOf(leadID string, leads []domain.Lead, opts Options) []domain.Lead {
	byID := make(map[string]domain.Lead, len(leads))
	for _, l := range leads {
		byID[l.ID] = l
	}
	if _, ok := byID[leadID]; !ok {
		return nil
	}

	for _, g := range Detect(leads, opts) {
		members := g.Members()
		if !contains(members, leadID) {
			continue
		}
		out := make([]domain.Lead, 0, len(members)-1)
		for _, id := range members {
			if id != leadID {
				out = append(out, byID[id])
			}
		}
		return out
	}
	return nil
}

// Members returns the master id followed by the duplicate ids.
func (g Group) Members() []string {
	return append([]string{g.MasterID}, g.DuplicateIDs...)
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
