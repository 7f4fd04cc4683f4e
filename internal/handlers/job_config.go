package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/streamhub/flink-manager/internal/platform/apierr"
	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/repos"
	"github.com/streamhub/flink-manager/internal/services"
	"github.com/streamhub/flink-manager/internal/types"
)

// JobConfigHandler exposes the in-place job lifecycle: a config is
// deployed and stopped directly and keeps its own deployment history.
type JobConfigHandler struct {
	log  *logger.Logger
	jobs services.JobConfigService
}

func NewJobConfigHandler(log *logger.Logger, jobs services.JobConfigService) *JobConfigHandler {
	return &JobConfigHandler{
		log:  log.With("handler", "JobConfigHandler"),
		jobs: jobs,
	}
}

type createJobConfigRequest struct {
	JobName       string            `json:"job_name" binding:"required"`
	ArtifactID    string            `json:"artifact_id" binding:"required"`
	EntryClass    string            `json:"entry_class" binding:"required"`
	Parallelism   int               `json:"parallelism"`
	ProgramArgs   []string          `json:"program_args"`
	SavepointPath *string           `json:"savepoint_path"`
	FlinkConfig   map[string]string `json:"flink_config"`
	CreatedBy     string            `json:"created_by" binding:"required"`
}

type updateJobConfigRequest struct {
	JobName       *string           `json:"job_name"`
	EntryClass    *string           `json:"entry_class"`
	Parallelism   *int              `json:"parallelism"`
	ProgramArgs   []string          `json:"program_args"`
	SavepointPath *string           `json:"savepoint_path"`
	FlinkConfig   map[string]string `json:"flink_config"`
}

// POST /api/v1/jobs
func (h *JobConfigHandler) Create(c *gin.Context) {
	var req createJobConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err)
		return
	}
	artifactID, err := uuid.Parse(req.ArtifactID)
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_artifact_id", err))
		return
	}
	config, err := h.jobs.Create(c.Request.Context(), services.CreateJobConfigInput{
		JobName:       req.JobName,
		ArtifactID:    artifactID,
		EntryClass:    req.EntryClass,
		Parallelism:   req.Parallelism,
		ProgramArgs:   req.ProgramArgs,
		SavepointPath: req.SavepointPath,
		FlinkConfig:   req.FlinkConfig,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "job created", config)
}

// GET /api/v1/jobs
func (h *JobConfigHandler) List(c *gin.Context) {
	var query struct {
		Page      int    `form:"page,default=1"`
		Size      int    `form:"size,default=20"`
		Status    string `form:"status"`
		CreatedBy string `form:"created_by"`
		SortBy    string `form:"sort_by,default=created_at"`
		SortOrder string `form:"sort_order,default=desc"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondValidation(c, err)
		return
	}
	filter := repos.JobConfigFilter{CreatedBy: query.CreatedBy}
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
	configs, total, err := h.jobs.List(c.Request.Context(), filter, opts)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondPage(c, "jobs listed", configs, opts.Page, opts.Size, total)
}

// GET /api/v1/jobs/:job_id
func (h *JobConfigHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_job_id", err))
		return
	}
	config, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "job found", config)
}

// GET /api/v1/jobs/name/:job_name
func (h *JobConfigHandler) GetByName(c *gin.Context) {
	config, err := h.jobs.GetByName(c.Request.Context(), c.Param("job_name"))
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "job found", config)
}

// PUT /api/v1/jobs/:job_id
func (h *JobConfigHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_job_id", err))
		return
	}
	var req updateJobConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err)
		return
	}
	config, err := h.jobs.Update(c.Request.Context(), id, services.UpdateJobConfigInput{
		JobName:       req.JobName,
		EntryClass:    req.EntryClass,
		Parallelism:   req.Parallelism,
		ProgramArgs:   req.ProgramArgs,
		SavepointPath: req.SavepointPath,
		FlinkConfig:   req.FlinkConfig,
	})
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "job updated", config)
}

// DELETE /api/v1/jobs/:job_id
func (h *JobConfigHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_job_id", err))
		return
	}
	if err := h.jobs.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "job deleted", nil)
}

// POST /api/v1/jobs/:job_id/deploy
func (h *JobConfigHandler) Deploy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_job_id", err))
		return
	}
	var req struct {
		DeployedBy string `json:"deployed_by" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err)
		return
	}
	config, err := h.jobs.Deploy(c.Request.Context(), id, req.DeployedBy)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "job deployed", config)
}

// POST /api/v1/jobs/:job_id/stop
func (h *JobConfigHandler) Stop(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_job_id", err))
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
	config, err := h.jobs.Stop(c.Request.Context(), id, req.Savepoint, req.SavepointPath)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "job stopped", config)
}

// GET /api/v1/jobs/:job_id/history
func (h *JobConfigHandler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_job_id", err))
		return
	}
	entries, err := h.jobs.History(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "deployment history listed", entries)
}
