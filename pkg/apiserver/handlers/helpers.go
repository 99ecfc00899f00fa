package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/pkg/lock"
	"github.com/docuflow/docuflow/pkg/store"
	"github.com/docuflow/docuflow/pkg/workflow"
)

const timeRFC3339Nano = time.RFC3339Nano

func formatTime(value time.Time) string {
	return value.UTC().Format(timeRFC3339Nano)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrConflict), errors.Is(err, lock.ErrTimeout):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the mapped status. Server errors are logged and their
// detail is not exposed.
func respondError(c *gin.Context, logger *zap.Logger, err error, message string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(message, zap.Error(err))
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
