package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestObserver records handled requests.
type RequestObserver interface {
	ObserveRequest(method, route string, code int)
}

// RequestMiddleware tags, logs and measures every request.
type RequestMiddleware struct {
	logger   *zap.Logger
	observer RequestObserver
}

// NewRequestMiddleware returns the middleware. observer may be nil.
func NewRequestMiddleware(logger *zap.Logger, observer RequestObserver) *RequestMiddleware {
	return &RequestMiddleware{
		logger:   logger,
		observer: observer,
	}
}

// RequestID returns the id ProcessRequest attached to ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ProcessRequest assigns a request id and logs the start and end of every
// request.
func (rm *RequestMiddleware) ProcessRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		ctx := context.WithValue(c.Request.Context(), requestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)
		start := time.Now()
		rm.logger.Debug("Request started",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()))
		c.Next()
		duration := time.Since(start)
		rm.logger.Info("Request completed",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.Int("size", c.Writer.Size()))

		if rm.observer != nil {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			rm.observer.ObserveRequest(c.Request.Method, route, c.Writer.Status())
		}
	}
}

// RecoverPanic turns a panicking handler into a 500 response.
func (rm *RequestMiddleware) RecoverPanic() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				rm.logger.Error("Panic recovered",
					zap.String("request_id", RequestID(c.Request.Context())),
					zap.Any("error", err),
					zap.Stack("stack"))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
