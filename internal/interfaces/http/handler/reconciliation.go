package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crosslist/backend/internal/infrastructure/scheduler"
	"github.com/crosslist/backend/internal/interfaces/http/dto"
)

// ReconciliationHandler exposes the reconciliation scheduler for operators
type ReconciliationHandler struct {
	BaseHandler
	scheduler *scheduler.ReconciliationScheduler
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(sched *scheduler.ReconciliationScheduler) *ReconciliationHandler {
	return &ReconciliationHandler{
		scheduler: sched,
	}
}

// RegisterRoutes registers reconciliation routes on the API group
func (h *ReconciliationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	recon := rg.Group("/reconciliation")
	{
		recon.GET("/status", h.GetStatus)
		recon.POST("/run", h.RunSweep)
		recon.GET("/history", h.GetHistory)
	}
}

// SweepRecordResponse is the API shape of one sweep record
type SweepRecordResponse struct {
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Status      string `json:"status"`
	Checked     int    `json:"checked"`
	Drifted     int    `json:"drifted"`
	Errors      int    `json:"errors"`
	Pruned      int64  `json:"pruned"`
	Error       string `json:"error,omitempty"`
}

func toSweepRecordResponse(r *scheduler.SweepRecord) SweepRecordResponse {
	resp := SweepRecordResponse{
		StartedAt: r.StartedAt.Format(time.RFC3339),
		Status:    string(r.Status),
		Checked:   r.Checked,
		Drifted:   r.Drifted,
		Errors:    r.Errors,
		Pruned:    r.Pruned,
		Error:     r.Error,
	}
	if r.CompletedAt != nil {
		resp.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// ReconciliationStatusResponse reports the scheduler state
type ReconciliationStatusResponse struct {
	Running  bool   `json:"running"`
	Interval string `json:"interval"`
	LastRun  string `json:"last_run,omitempty"`
}

// GetStatus reports whether the sweep loop is running and when it last ran
func (h *ReconciliationHandler) GetStatus(c *gin.Context) {
	resp := ReconciliationStatusResponse{
		Running:  h.scheduler.IsRunning(),
		Interval: h.scheduler.Config().Interval.String(),
	}
	if history := h.scheduler.History(); len(history) > 0 {
		resp.LastRun = history[0].StartedAt.Format(time.RFC3339)
	}
	h.Success(c, resp)
}

// RunSweep triggers a reconciliation sweep immediately
func (h *ReconciliationHandler) RunSweep(c *gin.Context) {
	record, err := h.scheduler.TriggerNow(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrSweepInProgress):
			h.Conflict(c, "A reconciliation sweep is already running")
		case errors.Is(err, scheduler.ErrSchedulerNotRunning):
			h.UnprocessableEntity(c, dto.ErrCodeInvalidState, "The reconciliation scheduler is not running")
		default:
			h.HandleError(c, err)
		}
		return
	}

	h.Success(c, toSweepRecordResponse(record))
}

// GetHistory returns recent sweep records, newest first
func (h *ReconciliationHandler) GetHistory(c *gin.Context) {
	history := h.scheduler.History()
	out := make([]SweepRecordResponse, 0, len(history))
	for _, r := range history {
		out = append(out, toSweepRecordResponse(r))
	}
	h.Success(c, out)
}
