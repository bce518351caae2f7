package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lvillar/docforge"
	"github.com/lvillar/docforge/session"
)

// ExportHandler serves document downloads.
type ExportHandler struct {
	store  *session.Store
	logger *zap.Logger
}

// NewExportHandler returns an ExportHandler over store.
func NewExportHandler(store *session.Store, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		store:  store,
		logger: logger.With(zap.String("handler", "export")),
	}
}

// Download exports the session document and sends it as an attachment named
// document.pdf or document.docx.
func (h *ExportHandler) Download(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	format, err := docforge.ParseFormat(c.Param("format"))
	if err != nil {
		badRequest(c, err)
		return
	}

	results, err := s.Export(c.Request.Context(), format)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	res := <-results
	if res.Err != nil {
		// The exporter has already logged the failure.
		code := statusFor(res.Err)
		var exportErr *docforge.ExportError
		if errors.As(res.Err, &exportErr) || code == http.StatusInternalServerError {
			h.logger.Debug("export answered with generic error",
				zap.String("request_id", RequestID(c.Request.Context())),
				zap.String("session", s.ID()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": exportFailedMessage})
			return
		}
		c.AbortWithStatusJSON(code, gin.H{"error": res.Err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
	c.Data(http.StatusOK, format.MIMEType(), res.Data)
}
