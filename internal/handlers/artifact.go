package handlers

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/streamhub/flink-manager/internal/platform/apierr"
	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/repos"
	"github.com/streamhub/flink-manager/internal/services"
)

type ArtifactHandler struct {
	log       *logger.Logger
	artifacts services.ArtifactService
	signTTL   time.Duration
}

func NewArtifactHandler(log *logger.Logger, artifacts services.ArtifactService, signTTL time.Duration) *ArtifactHandler {
	return &ArtifactHandler{
		log:       log.With("handler", "ArtifactHandler"),
		artifacts: artifacts,
		signTTL:   signTTL,
	}
}

// POST /api/v1/artifacts/upload (multipart)
func (h *ArtifactHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, h.log, apierr.Validation("missing_file", fmt.Errorf("multipart field 'file' is required")))
		return
	}
	entryClasses := c.PostFormArray("entry_classes")
	if len(entryClasses) == 1 && strings.Contains(entryClasses[0], ",") {
		parts := strings.Split(entryClasses[0], ",")
		entryClasses = entryClasses[:0]
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				entryClasses = append(entryClasses, trimmed)
			}
		}
	}
	input := services.RegisterArtifactInput{
		ArtifactName: c.PostForm("artifact_name"),
		Version:      c.PostForm("version"),
		EntryClasses: entryClasses,
		UploadedBy:   c.PostForm("uploaded_by"),
		Description:  c.PostForm("description"),
	}

	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, h.log, apierr.Validation("unreadable_file", err))
		return
	}
	defer file.Close()

	artifact, err := h.artifacts.Register(c.Request.Context(), input, file)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "artifact uploaded", artifact)
}

// GET /api/v1/artifacts
func (h *ArtifactHandler) List(c *gin.Context) {
	var query struct {
		Page         int    `form:"page,default=1"`
		Size         int    `form:"size,default=20"`
		ArtifactName string `form:"artifact_name"`
		SortBy       string `form:"sort_by,default=created_at"`
		SortOrder    string `form:"sort_order,default=desc"`
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
	items, total, err := h.artifacts.List(c.Request.Context(), query.ArtifactName, opts)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondPage(c, "artifacts listed", items, opts.Page, opts.Size, total)
}

// GET /api/v1/artifacts/:artifact_id
func (h *ArtifactHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("artifact_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_artifact_id", err))
		return
	}
	artifact, err := h.artifacts.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "artifact found", artifact)
}

// GET /api/v1/artifacts/name/:artifact_name/versions
func (h *ArtifactHandler) Versions(c *gin.Context) {
	versions, err := h.artifacts.ListVersions(c.Request.Context(), c.Param("artifact_name"))
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "versions listed", gin.H{"versions": versions})
}

// GET /api/v1/artifacts/name/:artifact_name/version/:version
func (h *ArtifactHandler) GetByNameVersion(c *gin.Context) {
	artifact, err := h.artifacts.GetByNameVersion(c.Request.Context(), c.Param("artifact_name"), c.Param("version"))
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "artifact found", artifact)
}

// GET /api/v1/artifacts/search/:query
func (h *ArtifactHandler) Search(c *gin.Context) {
	artifacts, err := h.artifacts.Search(c.Request.Context(), c.Param("query"))
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "artifacts found", artifacts)
}

// GET /api/v1/artifacts/:artifact_id/download
func (h *ArtifactHandler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("artifact_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_artifact_id", err))
		return
	}
	reader, filename, err := h.artifacts.Download(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	defer reader.Close()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/java-archive")
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.log.Error("Streaming artifact download failed", "artifact_id", id, "error", err)
	}
}

// POST /api/v1/artifacts/upload-url
func (h *ArtifactHandler) PresignUpload(c *gin.Context) {
	var req struct {
		ArtifactName string `json:"artifact_name" binding:"required"`
		Version      string `json:"version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err)
		return
	}
	url, err := h.artifacts.PresignUpload(c.Request.Context(), req.ArtifactName, req.Version, h.signTTL)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "upload url generated", gin.H{"upload_url": url, "expires_in": int(h.signTTL.Seconds())})
}

// DELETE /api/v1/artifacts/:artifact_id
func (h *ArtifactHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("artifact_id"))
	if err != nil {
		RespondError(c, h.log, apierr.Validation("invalid_artifact_id", err))
		return
	}
	if err := h.artifacts.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, "artifact deleted", nil)
}
