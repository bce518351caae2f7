package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lvillar/docforge/media"
)

// uploadFieldName is the multipart field carrying an uploaded image.
const uploadFieldName = "file"

type uploadFile = multipart.File

// upload opens the uploaded file and hands it to start, waiting for the
// asynchronous load to finish. It reports whether the load succeeded; on
// failure the error response is already written.
func upload(c *gin.Context, logger *zap.Logger, start func(uploadFile) <-chan error) bool {
	header, err := c.FormFile(uploadFieldName)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, logger, fmt.Errorf("%w: %v", media.ErrTooLarge, err))
			return false
		}
		badRequest(c, fmt.Errorf("missing %q upload: %w", uploadFieldName, err))
		return false
	}
	f, err := header.Open()
	if err != nil {
		abortWithError(c, logger, err)
		return false
	}
	defer f.Close()

	if err := <-start(f); err != nil {
		abortWithError(c, logger, err)
		return false
	}
	return true
}
