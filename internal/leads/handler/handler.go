package handler

import (
	"context"
	"net/http"

	"crm_backend/internal/leads/dedup"
	"crm_backend/internal/leads/detection"
	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/merge"
	"crm_backend/internal/leads/repository"
	"crm_backend/internal/leads/transport"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Detector is the read side of the dedup workflow.
type Detector interface {
	DefaultOptions() dedup.Options
	Scan(ctx context.Context, opts dedup.Options) (detection.Report, error)
	DuplicatesOf(ctx context.Context, leadID string, opts dedup.Options) ([]domain.Lead, error)
	CheckCandidate(ctx context.Context, c dedup.Candidate) ([]dedup.Match, error)
}

// Merger is the write side of the dedup workflow.
type Merger interface {
	Merge(ctx context.Context, req merge.Request) (merge.Outcome, error)
	Preview(ctx context.Context, req merge.Request) (merge.Preview, error)
}

// MergeHistory lists recorded merges and their totals.
type MergeHistory interface {
	ListMerges(ctx context.Context, limit int) ([]repository.MergeLogEntry, error)
	GetMetrics(ctx context.Context) (repository.MergeMetrics, error)
}

type Handler struct {
	detector    Detector
	merger      Merger
	history     MergeHistory
	val         *validator.Validator
	mergeLimits gin.HandlerFunc
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(detector Detector, merger Merger, history MergeHistory, val *validator.Validator) *Handler {
	return &Handler{detector: detector, merger: merger, history: history, val: val}
}

// SetMergeRateLimit puts a limiter in front of the destructive merge endpoint.
func (h *Handler) SetMergeRateLimit(mw gin.HandlerFunc) {
	h.mergeLimits = mw
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/duplicates", h.ListDuplicates)
	rg.GET("/check-duplicates", h.CheckDuplicates)
	rg.GET("/:id/duplicates", h.LeadDuplicates)
	if h.mergeLimits != nil {
		rg.POST("/merge", h.mergeLimits, h.Merge)
	} else {
		rg.POST("/merge", h.Merge)
	}
	rg.POST("/merge/preview", h.PreviewMerge)
	rg.GET("/merges", h.ListMerges)
	rg.GET("/merges/metrics", h.MergeMetrics)
}

func (h *Handler) ListDuplicates(c *gin.Context) {
	var req transport.DuplicatesQuery
	if !h.bindQuery(c, &req) {
		return
	}

	opts := h.detector.DefaultOptions()
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	opts.ExactOnly = req.ExactOnly

	report, err := h.detector.Scan(c.Request.Context(), opts)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, report)
}

func (h *Handler) CheckDuplicates(c *gin.Context) {
	var req transport.CheckDuplicatesQuery
	if !h.bindQuery(c, &req) {
		return
	}

	matches, err := h.detector.CheckCandidate(c.Request.Context(), dedup.Candidate{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.CheckDuplicatesResponse{Matches: matches, Total: len(matches)})
}

func (h *Handler) LeadDuplicates(c *gin.Context) {
	var req transport.LeadDuplicatesQuery
	if !h.bindQuery(c, &req) {
		return
	}

	opts := h.detector.DefaultOptions()
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}

	leadID := c.Param("id")
	dups, err := h.detector.DuplicatesOf(c.Request.Context(), leadID, opts)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.LeadDuplicatesResponse{LeadID: leadID, Duplicates: dups, Count: len(dups)})
}

func (h *Handler) Merge(c *gin.Context) {
	req, ok := h.bindMerge(c)
	if !ok {
		return
	}

	outcome, err := h.merger.Merge(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, outcome)
}

func (h *Handler) PreviewMerge(c *gin.Context) {
	req, ok := h.bindMerge(c)
	if !ok {
		return
	}

	preview, err := h.merger.Preview(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, preview)
}

func (h *Handler) ListMerges(c *gin.Context) {
	var req transport.MergeLogQuery
	if !h.bindQuery(c, &req) {
		return
	}

	items, err := h.history.ListMerges(c.Request.Context(), req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.MergeLogResponse{Items: items, Count: len(items)})
}

func (h *Handler) MergeMetrics(c *gin.Context) {
	metrics, err := h.history.GetMetrics(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, metrics)
}

func (h *Handler) bindMerge(c *gin.Context) (merge.Request, bool) {
	var req transport.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return merge.Request{}, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return merge.Request{}, false
	}

	out := merge.Request{
		MasterID:           req.MasterID,
		DuplicateIDs:       req.DuplicateIDs,
		SelectedStatus:     req.SelectedStatus,
		SelectedAssigneeID: req.SelectedAssigneeID,
	}
	if identity, ok := httpkit.GetIdentity(c); ok {
		out.ActorID = identity.UserID.String()
	}
	return out, true
}

func (h *Handler) bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}
