package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lvillar/docforge"
	"github.com/lvillar/docforge/session"
)

// ThemeHandler serves branding endpoints.
type ThemeHandler struct {
	store  *session.Store
	logger *zap.Logger
}

// NewThemeHandler returns a ThemeHandler over store.
func NewThemeHandler(store *session.Store, logger *zap.Logger) *ThemeHandler {
	return &ThemeHandler{
		store:  store,
		logger: logger.With(zap.String("handler", "theme")),
	}
}

type colorsRequest struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

type fontRequest struct {
	Font docforge.Font `json:"font" binding:"required"`
}

type watermarkRequest struct {
	Label string `json:"label"`
}

// GetTheme returns the session theme.
func (h *ThemeHandler) GetTheme(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Theme())
}

// SetLogo replaces the theme logo with an uploaded image.
func (h *ThemeHandler) SetLogo(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	if !upload(c, h.logger, func(f uploadFile) <-chan error {
		return s.SetLogo(c.Request.Context(), f)
	}) {
		return
	}
	c.JSON(http.StatusOK, s.Theme())
}

// RemoveLogo clears the theme logo.
func (h *ThemeHandler) RemoveLogo(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	s.RemoveLogo()
	c.JSON(http.StatusOK, s.Theme())
}

// SetColors replaces the primary and/or secondary color. Both are validated
// before either is applied.
func (h *ThemeHandler) SetColors(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	var req colorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updates := make(map[docforge.Channel]docforge.Color, 2)
	for ch, raw := range map[docforge.Channel]string{
		docforge.ChannelPrimary:   req.Primary,
		docforge.ChannelSecondary: req.Secondary,
	} {
		if raw == "" {
			continue
		}
		color, err := docforge.ParseColor(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		updates[ch] = color
	}
	for ch, color := range updates {
		if err := s.SetColor(ch, color); err != nil {
			abortWithError(c, h.logger, err)
			return
		}
	}
	c.JSON(http.StatusOK, s.Theme())
}

// SetFont replaces the theme font.
func (h *ThemeHandler) SetFont(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	var req fontRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.SetFont(req.Font); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s.Theme())
}

// SetWatermark sets or, with an empty label, clears the PDF watermark.
func (h *ThemeHandler) SetWatermark(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	var req watermarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.SetWatermark(req.Label)
	c.JSON(http.StatusOK, s.Theme())
}
