package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streamhub/flink-manager/internal/platform/flink"
	"github.com/streamhub/flink-manager/internal/platform/gcp"
	"github.com/streamhub/flink-manager/internal/platform/logger"
)

const serviceVersion = "1.0.0"

type HealthcheckHandler struct {
	log    *logger.Logger
	dbPing func() error
	bucket gcp.BucketService
	flink  flink.Client
}

func NewHealthcheckHandler(log *logger.Logger, dbPing func() error, bucket gcp.BucketService, flinkClient flink.Client) *HealthcheckHandler {
	return &HealthcheckHandler{
		log:    log.With("handler", "HealthcheckHandler"),
		dbPing: dbPing,
		bucket: bucket,
		flink:  flinkClient,
	}
}

// GET /healthcheck
func (h *HealthcheckHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := gin.H{
		"database": componentStatus(h.dbPing()),
		"storage":  componentStatus(h.bucket.Ping(ctx)),
		"flink":    componentStatus(h.flink.Ping(ctx)),
	}
	healthy := true
	for _, status := range components {
		if status != "up" {
			healthy = false
		}
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		h.log.Warn("Healthcheck degraded", "components", components)
	}
	c.JSON(status, gin.H{
		"success":    healthy,
		"message":    "healthcheck",
		"version":    serviceVersion,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"components": components,
	})
}

func componentStatus(err error) string {
	if err != nil {
		return "down"
	}
	return "up"
}
