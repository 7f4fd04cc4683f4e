package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/streamhub/flink-manager/internal/platform/apierr"
	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/repos"
	"github.com/streamhub/flink-manager/internal/services"
)

type JobSpecHandler struct {
	log        *logger.Logger
	jobSpecs   services.JobSpecService
	executions services.ExecutionService
}

func NewJobSpecHandler(log *logger.Logger, jobSpecs services.JobSpecService, executions services.ExecutionService) *JobSpecHandler {
	return &JobSpecHandler{
		log:        log.With("handler", "JobSpecHandler"),
		jobSpecs:   jobSpecs,
		executions: executions,
	}
}

type createJobSpecRequest struct {
	JobSpecName   string            `json:"job_spec_name" binding:"required"`
	ArtifactID    string            `json:"artifact_id" binding:"required"`
	EntryClass    string            `json:"entry_class" binding:"required"`
	Parallelism   int               `json:"parallelism"`
	ProgramArgs   []string          `json:"program_args"`
	SavepointPath *string           `json:"savepoint_path"`
	FlinkConfig   map[string]string `json:"flink_config"`
	CreatedBy     string            `json:"created_by" binding:"required"`
}

type updateJobSpecRequest struct {
	JobSpecName   *string           `json:"job_spec_name"`
	EntryClass    *string           `json:"entry_class"`
	Parallelism   *int              `json:"parallelism"`
	ProgramArgs   []string          `json:"program_args"`
	SavepointPath *string           `json:"savepoint_path"`
	FlinkConfig   map[string]string `json:"flink_config"`
}

// POST /api/v1/job-specs
func (h *JobSpecHandler) Create(c *gin.Context) {
	var req createJobSpecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err)
		return
	}
	artifactID, err := uuid.Parse(req.ArtifactID)
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_artifact_id", err))
		return
	}
	spec, err := h.jobSpecs.Create(c.Request.Context(), services.CreateJobSpecInput{
		JobSpecName:   req.JobSpecName,
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
	RespondOK(c, "job spec created", spec)
}

// GET /api/v1/job-specs
func (h *JobSpecHandler) List(c *gin.Context) {
	var query struct {
		Page        int    `form:"page,default=1"`
		Size        int    `form:"size,default=20"`
		JobSpecName string `form:"job_spec_name"`
		CreatedBy   string `form:"created_by"`
		SortBy      string `form:"sort_by,default=created_at"`
		SortOrder   string `form:"sort_order,default=desc"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondValidation(c, err)
		return
	}
	opts := repos.ListOptions{
		Page:      query.Page,
		Size:      query.Size,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}.Normalized()
	filter := repos.JobSpecFilter{JobSpecName: query.JobSpecName, CreatedBy: query.CreatedBy}
	specs, total, err := h.jobSpecs.List(c.Request.Context(), filter, opts)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondPage(c, "job specs listed", specs, opts.Page, opts.Size, total)
}

// GET /api/v1/job-specs/:job_spec_id
func (h *JobSpecHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_spec_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_job_spec_id", err))
		return
	}
	spec, err := h.jobSpecs.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "job spec found", spec)
}

// GET /api/v1/job-specs/name/:job_spec_name
func (h *JobSpecHandler) GetByName(c *gin.Context) {
	spec, err := h.jobSpecs.GetByName(c.Request.Context(), c.Param("job_spec_name"))
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "job spec found", spec)
}

// PUT /api/v1/job-specs/:job_spec_id
func (h *JobSpecHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_spec_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_job_spec_id", err))
		return
	}
	var req updateJobSpecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err)
		return
	}
	spec, err := h.jobSpecs.Update(c.Request.Context(), id, services.UpdateJobSpecInput{
		JobSpecName:   req.JobSpecName,
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
	RespondOK(c, "job spec updated", spec)
}

// DELETE /api/v1/job-specs/:job_spec_id
func (h *JobSpecHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_spec_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_job_spec_id", err))
		return
	}
	if err := h.jobSpecs.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "job spec deleted", nil)
}

// POST /api/v1/job-specs/:job_spec_id/executions
func (h *JobSpecHandler) StartExecution(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_spec_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_job_spec_id", err))
		return
	}
	var req struct {
		StartedBy string `json:"started_by" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err)
		return
	}
	execution, err := h.executions.Start(c.Request.Context(), id, req.StartedBy)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "execution started", execution)
}
