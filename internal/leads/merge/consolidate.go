package merge

import (
	"crm_backend/internal/leads/domain"
)

// Selection carries the caller's explicit choices for conflicting values.
type Selection struct {
	Status     string
	AssigneeID string
}

// Consolidate applies the policy to the master and its duplicates and returns
// the record the master should become. Inputs are not modified.
// The master's non-empty scalar values are never overwritten by a duplicate.
func Consolidate(master domain.Lead, duplicates []domain.Lead, policy Policy, sel Selection) domain.Lead {
	out := master.Clone()

	for _, rule := range policy.Rules {
		switch rule.Strategy {
		case StrategyFillIfEmpty:
			fillIfEmpty(&out, duplicates, rule.Field)
		case StrategyUnion:
			unionField(&out, duplicates, rule.Field)
		}
	}
	// Relations are unioned even when a hand-built Policy skips normalize.
	// The union is idempotent, so a second pass changes nothing.
	for _, field := range relationFields {
		unionField(&out, duplicates, field)
	}

	if sel.Status != "" {
		out.Status = sel.Status
	}
	if sel.AssigneeID != "" {
		out.AssigneeIDs = []string{sel.AssigneeID}
	}
	return out
}

func fillIfEmpty(out *domain.Lead, duplicates []domain.Lead, field string) {
	switch field {
	case domain.FieldAssignees:
		if len(out.AssigneeIDs) > 0 {
			return
		}
		for _, d := range duplicates {
			if len(d.AssigneeIDs) > 0 {
				out.AssigneeIDs = append([]string(nil), d.AssigneeIDs...)
				return
			}
		}
	case domain.FieldAttachments:
		if len(out.Attachments) > 0 {
			return
		}
		for _, d := range duplicates {
			if len(d.Attachments) > 0 {
				out.Attachments = append([]domain.Attachment(nil), d.Attachments...)
				return
			}
		}
	default:
		if !domain.IsBlank(out.Field(field)) {
			return
		}
		for _, d := range duplicates {
			if value := d.Field(field); !domain.IsBlank(value) {
				out.SetField(field, value)
				return
			}
		}
	}
}

func unionField(out *domain.Lead, duplicates []domain.Lead, field string) {
	switch field {
	case domain.FieldOrders:
		sets := [][]string{out.OrderIDs}
		for _, d := range duplicates {
			sets = append(sets, d.OrderIDs)
		}
		out.OrderIDs = unionIDs(sets...)
	case domain.FieldActivities:
		sets := [][]string{out.ActivityIDs}
		for _, d := range duplicates {
			sets = append(sets, d.ActivityIDs)
		}
		out.ActivityIDs = unionIDs(sets...)
	case domain.FieldAssignees:
		sets := [][]string{out.AssigneeIDs}
		for _, d := range duplicates {
			sets = append(sets, d.AssigneeIDs)
		}
		out.AssigneeIDs = unionIDs(sets...)
	case domain.FieldAttachments:
		sets := [][]domain.Attachment{out.Attachments}
		for _, d := range duplicates {
			sets = append(sets, d.Attachments)
		}
		out.Attachments = unionAttachments(sets...)
	}
}

// unionIDs keeps first-seen order and drops blanks and repeats.
func unionIDs(sets ...[]string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, set := range sets {
		for _, id := range set {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// unionAttachments keys attachments by URL, falling back to ID. Attachments
// with neither are dropped.
func unionAttachments(sets ...[]domain.Attachment) []domain.Attachment {
	seen := make(map[string]bool)
	out := make([]domain.Attachment, 0)
	for _, set := range sets {
		for _, a := range set {
			k := a.Key()
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, a)
		}
	}
	return out
}
