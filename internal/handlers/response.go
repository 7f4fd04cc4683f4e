package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streamhub/flink-manager/internal/platform/apierr"
	"github.com/streamhub/flink-manager/internal/platform/logger"
)

// Every endpoint answers with the same envelope.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorEnvelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}

type PageEnvelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

func RespondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func RespondPage(c *gin.Context, message string, data interface{}, page, size int, total int64) {
	c.JSON(http.StatusOK, PageEnvelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: Pagination{Page: page, Size: size, Total: total},
	})
}

// RespondError maps *apierr.Error to its status and code. Anything else is a
// generic 500: the detail is logged, never leaked.
func RespondError(c *gin.Context, log *logger.Logger, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, ErrorEnvelope{
			Success:   false,
			Message:   apiErr.Error(),
			ErrorCode: apiErr.Code,
		})
		return
	}
	if log != nil {
		log.Error("Unhandled error", "path", c.FullPath(), "error", err)
	}
	c.JSON(http.StatusInternalServerError, ErrorEnvelope{
		Success:   false,
		Message:   "internal server error",
		ErrorCode: "internal_error",
	})
}

func RespondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorEnvelope{
		Success:   false,
		Message:   err.Error(),
		ErrorCode: "invalid_request",
	})
}
