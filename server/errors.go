package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lvillar/docforge"
	"github.com/lvillar/docforge/media"
	"github.com/lvillar/docforge/session"
)

// exportFailedMessage is shown to users when serialization fails.
const exportFailedMessage = "Failed to export document. Please try again."

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, docforge.ErrComponentNotFound):
		return http.StatusNotFound
	case errors.Is(err, docforge.ErrExportInProgress),
		errors.Is(err, session.ErrDuplicateComponent):
		return http.StatusConflict
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, docforge.ErrUnknownDocumentType),
		errors.Is(err, docforge.ErrContentMismatch),
		errors.Is(err, docforge.ErrInvalidColor),
		errors.Is(err, docforge.ErrInvalidChannel),
		errors.Is(err, docforge.ErrUnsupportedFont),
		errors.Is(err, docforge.ErrUnsupportedImage),
		errors.Is(err, docforge.ErrUnknownFormat),
		errors.Is(err, session.ErrNoTemplate):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// abortWithError writes err as a JSON error response. Internal errors are
// logged and hidden from the client.
func abortWithError(c *gin.Context, logger *zap.Logger, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("request_id", RequestID(c.Request.Context())),
			zap.Error(err))
		c.AbortWithStatusJSON(code, gin.H{"error": "Internal server error"})
		return
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
