package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tripperhq/tripper/internal/auth"
	"github.com/tripperhq/tripper/internal/service"
	"github.com/tripperhq/tripper/internal/storage"
)

// writeError maps layer sentinels to HTTP status codes. Anything unmapped
// is an internal error and gets logged loudly; sentinel messages are safe
// to echo to the client.
func writeError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrVersionConflict),
		errors.Is(err, storage.ErrAlreadySettled),
		errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, auth.ErrEmailExists):
		status = http.StatusConflict
	default:
		slog.Error("Unhandled error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// badRequest reports a malformed or unbindable request body.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}
