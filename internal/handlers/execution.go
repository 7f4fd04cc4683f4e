package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/streamhub/flink-manager/internal/platform/apierr"
	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/repos"
	"github.com/streamhub/flink-manager/internal/services"
	"github.com/streamhub/flink-manager/internal/types"
)

type ExecutionHandler struct {
	log        *logger.Logger
	executions services.ExecutionService
}

func NewExecutionHandler(log *logger.Logger, executions services.ExecutionService) *ExecutionHandler {
	return &ExecutionHandler{
		log:        log.With("handler", "ExecutionHandler"),
		executions: executions,
	}
}

// GET /api/v1/executions
func (h *ExecutionHandler) List(c *gin.Context) {
	var query struct {
		Page      int    `form:"page,default=1"`
		Size      int    `form:"size,default=20"`
		JobSpecID string `form:"job_spec_id"`
		Status    string `form:"status"`
		StartedBy string `form:"started_by"`
		SortBy    string `form:"sort_by,default=started_at"`
		SortOrder string `form:"sort_order,default=desc"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondValidation(c, err)
		return
	}
	filter := repos.ExecutionFilter{StartedBy: query.StartedBy}
	if query.JobSpecID != "" {
		id, err := uuid.Parse(query.JobSpecID)
		if err != nil {
			RespondError(c, h.log, apierr.Validation("invalid_job_spec_id", err))
			return
		}
		filter.JobSpecID = id
	}
	if query.Status != "" {
		status := types.JobStatus(query.Status)
		if !status.Valid() {
			RespondError(c, h.log, apierr.Validation("invalid_status", errInvalidStatus(query.Status)))
			return
		}
		filter.Status = status
	}
	opts := repos.ListOptions{
		Page:      query.Page,
		Size:      query.Size,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}.Normalized()
	executions, total, err := h.executions.List(c.Request.Context(), filter, opts)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondPage(c, "executions listed", executions, opts.Page, opts.Size, total)
}

// GET /api/v1/executions/:execution_id
func (h *ExecutionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("execution_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_execution_id", err))
		return
	}
	execution, err := h.executions.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "execution found", execution)
}

// POST /api/v1/executions/:execution_id/stop
func (h *ExecutionHandler) Stop(c *gin.Context) {
	id, err := uuid.Parse(c.Param("execution_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_execution_id", err))
		return
	}
	var req struct {
		Savepoint     bool   `json:"savepoint"`
		SavepointPath string `json:"savepoint_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err)
		return
	}
	execution, err := h.executions.Stop(c.Request.Context(), id, req.Savepoint, req.SavepointPath)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "execution stopped", execution)
}

// GET /api/v1/executions/:execution_id/history
func (h *ExecutionHandler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("execution_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_execution_id", err))
		return
	}
	entries, err := h.executions.History(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "execution history listed", entries)
}

func errInvalidStatus(value string) error {
	return fmt.Errorf("unknown status %q", value)
}
