package merge

import (
	"context"
	"slices"

	"crm_backend/internal/leads/domain"
)

// AttachmentsPreview summarizes the attachment union.
type AttachmentsPreview struct {
	MasterCount    int `json:"masterCount"`
	DuplicateCount int `json:"duplicateCount"`
	TotalCount     int `json:"totalCount"`
}

// Preview is what a merge would produce, computed without writing anything.
type Preview struct {
	Master             domain.Lead        `json:"master"`
	Duplicates         []domain.Lead      `json:"duplicates"`
	SkippedIDs         []string           `json:"skippedIds"`
	PreservedRelations PreservedRelations `json:"preservedRelations"`
	Attachments        AttachmentsPreview `json:"attachments"`
	StateConflict      bool               `json:"stateConflict"`
	AssigneeConflict   bool               `json:"assigneeConflict"`
	States             []string           `json:"states"`
	Assignees          []string           `json:"assignees"`
}

// Preview runs the validation and read phase of Merge and returns the
// consolidated master it would write.
func (s *Service) Preview(ctx context.Context, req Request) (Preview, error) {
	const op = "merge.Preview"

	req, err := normalizeRequest(req)
	if err != nil {
		return Preview{}, err.WithOp(op)
	}
	g, err := s.load(ctx, req)
	if err != nil {
		return Preview{}, err.WithOp(op)
	}
	if err := validateSelection(req, g); err != nil {
		return Preview{}, err.WithOp(op)
	}

	consolidated := Consolidate(g.master, g.duplicates, s.policy, Selection{
		Status:     req.SelectedStatus,
		AssigneeID: req.SelectedAssigneeID,
	})

	duplicateAttachments := 0
	for _, d := range g.duplicates {
		duplicateAttachments += len(d.Attachments)
	}

	return Preview{
		Master:     consolidated,
		Duplicates: g.duplicates,
		SkippedIDs: g.skippedIDs,
		PreservedRelations: PreservedRelations{
			Orders:     len(consolidated.OrderIDs),
			Activities: len(consolidated.ActivityIDs),
		},
		Attachments: AttachmentsPreview{
			MasterCount:    len(g.master.Attachments),
			DuplicateCount: duplicateAttachments,
			TotalCount:     len(consolidated.Attachments),
		},
		StateConflict:    stateConflict(g.master, g.duplicates),
		AssigneeConflict: assigneeConflict(g.master, g.duplicates),
		States:           uniqueStates(g.master, g.duplicates),
		Assignees:        uniqueAssignees(g.master, g.duplicates),
	}, nil
}

// stateConflict reports whether any duplicate has a status different from the master's.
func stateConflict(master domain.Lead, duplicates []domain.Lead) bool {
	for _, d := range duplicates {
		if d.Status != "" && d.Status != master.Status {
			return true
		}
	}
	return false
}

// assigneeConflict reports whether any duplicate is assigned differently from the master.
func assigneeConflict(master domain.Lead, duplicates []domain.Lead) bool {
	for _, d := range duplicates {
		if len(d.AssigneeIDs) > 0 && !slices.Equal(d.AssigneeIDs, master.AssigneeIDs) {
			return true
		}
	}
	return false
}

func uniqueStates(master domain.Lead, duplicates []domain.Lead) []string {
	sets := [][]string{{master.Status}}
	for _, d := range duplicates {
		sets = append(sets, []string{d.Status})
	}
	return unionIDs(sets...)
}

func uniqueAssignees(master domain.Lead, duplicates []domain.Lead) []string {
	sets := [][]string{master.AssigneeIDs}
	for _, d := range duplicates {
		sets = append(sets, d.AssigneeIDs)
	}
	return unionIDs(sets...)
}
