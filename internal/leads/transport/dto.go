package transport

import (
	"crm_backend/internal/leads/dedup"
	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/repository"
)

// Request DTOs

type DuplicatesQuery struct {
	Threshold *float64 `form:"threshold" validate:"omitempty,gte=0,lte=1"`
	ExactOnly bool     `form:"exactOnly"`
}

type LeadDuplicatesQuery struct {
	Threshold *float64 `form:"threshold" validate:"omitempty,gte=0,lte=1"`
}

type CheckDuplicatesQuery struct {
	Name  string `form:"name" validate:"max=200"`
	Phone string `form:"phone" validate:"max=40"`
	Email string `form:"email" validate:"max=254"`
}

type MergeRequest struct {
	MasterID           string   `json:"masterId" validate:"nonblank,max=64"`
	DuplicateIDs       []string `json:"duplicateIds" validate:"required,min=1,max=100,dive,nonblank,max=64"`
	SelectedStatus     string   `json:"selectedStatus,omitempty" validate:"omitempty,max=100"`
	SelectedAssigneeID string   `json:"selectedAssigneeId,omitempty" validate:"omitempty,max=64"`
}

type MergeLogQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=500"`
}

// Response DTOs

type CheckDuplicatesResponse struct {
	Matches []dedup.Match `json:"matches"`
	Total   int           `json:"total"`
}

type LeadDuplicatesResponse struct {
	LeadID     string        `json:"leadId"`
	Duplicates []domain.Lead `json:"duplicates"`
	Count      int           `json:"count"`
}

type MergeLogResponse struct {
	Items []repository.MergeLogEntry `json:"items"`
	Count int                        `json:"count"`
}
