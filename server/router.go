// Package server exposes document editing sessions over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lvillar/docforge/session"
)

// Name is reported by the health endpoint.
const Name = "docforge"

const shutdownTimeout = 10 * time.Second

// Metrics is what the router reports to and serves on /metrics.
type Metrics interface {
	RequestObserver
	Handler() http.Handler
}

// Router wires the HTTP handlers to a gin engine.
type Router struct {
	engine         *gin.Engine
	logger         *zap.Logger
	metrics        Metrics
	reqMiddleware  *RequestMiddleware
	templHandler   *TemplateHandler
	sessHandler    *SessionHandler
	themeHandler   *ThemeHandler
	exportHandler  *ExportHandler
	maxUploadBytes int64
}

// Options configures a Router.
type Options struct {
	// Mode is the gin mode: debug, release or test.
	Mode string
	// MaxUploadBytes limits the request body of image uploads.
	MaxUploadBytes int64
}

// NewRouter returns a router serving the sessions of store. metrics may be nil.
func NewRouter(opts Options, store *session.Store, metrics Metrics, logger *zap.Logger) *Router {
	if opts.Mode == "" {
		opts.Mode = gin.ReleaseMode
	}
	gin.SetMode(opts.Mode)
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := gin.New()

	reqMiddleware := NewRequestMiddleware(logger, metrics)
	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())

	return &Router{
		engine:         engine,
		logger:         logger,
		metrics:        metrics,
		reqMiddleware:  reqMiddleware,
		templHandler:   NewTemplateHandler(logger),
		sessHandler:    NewSessionHandler(store, logger),
		themeHandler:   NewThemeHandler(store, logger),
		exportHandler:  NewExportHandler(store, logger),
		maxUploadBytes: opts.MaxUploadBytes,
	}
}

// SetupRoutes registers every endpoint.
func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": Name})
	})
	if r.metrics != nil {
		r.engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))
	}

	api := r.engine.Group("/api")
	{
		api.GET("/templates", r.templHandler.ListTemplates)
		api.GET("/templates/:type", r.templHandler.GetTemplate)

		api.GET("/sessions", r.sessHandler.ListSessions)
		api.POST("/sessions", r.sessHandler.CreateSession)
		api.GET("/sessions/:id", r.sessHandler.GetSession)
		api.DELETE("/sessions/:id", r.sessHandler.DeleteSession)
		api.PUT("/sessions/:id/template", r.sessHandler.SelectTemplate)
		api.GET("/sessions/:id/form", r.sessHandler.GetForm)
		api.GET("/sessions/:id/form/html", r.sessHandler.GetFormHTML)
		api.PUT("/sessions/:id/fields/:field", r.sessHandler.UpdateField)
		api.POST("/sessions/:id/submit", r.sessHandler.Submit)
		api.GET("/sessions/:id/components", r.sessHandler.ListComponents)
		api.POST("/sessions/:id/components/reorder", r.sessHandler.Reorder)
		api.PUT("/sessions/:id/components/:component", r.sessHandler.EditComponent)

		uploads := api.Group("/sessions/:id")
		uploads.Use(limitBody(r.maxUploadBytes))
		{
			uploads.POST("/images", r.sessHandler.AppendImage)
			uploads.PUT("/components/:component/image", r.sessHandler.ReplaceImage)
			uploads.PUT("/theme/logo", r.themeHandler.SetLogo)
		}

		api.GET("/sessions/:id/theme", r.themeHandler.GetTheme)
		api.DELETE("/sessions/:id/theme/logo", r.themeHandler.RemoveLogo)
		api.PUT("/sessions/:id/theme/colors", r.themeHandler.SetColors)
		api.PUT("/sessions/:id/theme/font", r.themeHandler.SetFont)
		api.PUT("/sessions/:id/theme/watermark", r.themeHandler.SetWatermark)

		api.GET("/sessions/:id/export/:format", r.exportHandler.Download)
	}
}

// GetEngine returns the underlying gin engine.
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run serves HTTP on addr until ctx is done, then shuts down gracefully.
func (r *Router) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("Starting HTTP server", zap.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	r.logger.Info("HTTP server stopped")
	return nil
}

// limitBody caps the request body at n bytes. A non-positive n disables it.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 {
			// multipart framing on top of the file itself
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n+1<<20)
		}
		c.Next()
	}
}
