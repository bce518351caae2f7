package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lvillar/docforge"
	"github.com/lvillar/docforge/session"
)

// SessionHandler serves session lifecycle, form and component endpoints.
type SessionHandler struct {
	store  *session.Store
	logger *zap.Logger
}

// NewSessionHandler returns a SessionHandler over store.
func NewSessionHandler(store *session.Store, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		store:  store,
		logger: logger.With(zap.String("handler", "session")),
	}
}

type sessionSummary struct {
	ID        string                `json:"id"`
	Type      docforge.DocumentType `json:"type"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type createSessionRequest struct {
	Type docforge.DocumentType `json:"type"`
}

type selectTemplateRequest struct {
	Type docforge.DocumentType `json:"type" binding:"required"`
}

type fieldRequest struct {
	Value string `json:"value"`
}

type reorderRequest struct {
	ActiveID string `json:"activeId" binding:"required"`
	OverID   string `json:"overId" binding:"required"`
}

type editRequest struct {
	Type    docforge.BlockType `json:"type" binding:"required"`
	Content json.RawMessage    `json:"content"`
}

type inputView struct {
	docforge.FormField
	Value string `json:"value"`
}

// lookup resolves the :id parameter, writing the error response on failure.
func lookup(c *gin.Context, store *session.Store, logger *zap.Logger) (*session.Session, bool) {
	s, err := store.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, logger, err)
		return nil, false
	}
	return s, true
}

// ListSessions returns the live sessions, optionally filtered by ?type=.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	var t docforge.DocumentType
	if q := c.Query("type"); q != "" {
		parsed, err := docforge.ParseDocumentType(q)
		if err != nil {
			badRequest(c, err)
			return
		}
		t = parsed
	}
	sessions, err := h.store.List(t)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	out := make([]sessionSummary, len(sessions))
	for i, s := range sessions {
		out[i] = sessionSummary{ID: s.ID(), Type: s.Type(), UpdatedAt: s.UpdatedAt()}
	}
	c.JSON(http.StatusOK, out)
}

// CreateSession starts a session, selecting a template when a type is given.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if req.Type != "" && !req.Type.Valid() {
		badRequest(c, fmt.Errorf("%q: %w", req.Type, docforge.ErrUnknownDocumentType))
		return
	}

	s, err := h.store.Create()
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	if req.Type != "" {
		if err := s.SelectTemplate(req.Type); err != nil {
			abortWithError(c, h.logger, err)
			return
		}
	}
	c.Header("Location", "/api/sessions/"+s.ID())
	c.JSON(http.StatusCreated, s.Snapshot())
}

// GetSession returns the session's document.
func (h *SessionHandler) GetSession(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// DeleteSession ends a session.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectTemplate switches the session to a template, resetting the form and
// the components.
func (h *SessionHandler) SelectTemplate(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	var req selectTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.SelectTemplate(req.Type); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// GetForm returns the form inputs with their current values.
func (h *SessionHandler) GetForm(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	inputs, err := s.Form()
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	out := make([]inputView, len(inputs))
	for i, in := range inputs {
		out[i] = inputView{FormField: in.Field, Value: in.Value}
	}
	c.JSON(http.StatusOK, out)
}

// GetFormHTML returns the form as an HTML fragment.
func (h *SessionHandler) GetFormHTML(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.RenderForm(&buf); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// UpdateField records one form value.
func (h *SessionHandler) UpdateField(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.UpdateField(c.Param("field"), req.Value); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Submit builds the components from the form.
func (h *SessionHandler) Submit(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	list, err := s.Submit()
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListComponents returns the component list.
func (h *SessionHandler) ListComponents(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Components())
}

// Reorder moves one component onto another's position.
func (h *SessionHandler) Reorder(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.Reorder(req.ActiveID, req.OverID); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s.Components())
}

// EditComponent replaces the content of a component.
func (h *SessionHandler) EditComponent(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	content, err := docforge.DecodeContent(req.Type, req.Content)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.Edit(c.Param("component"), content); err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s.Components())
}

// AppendImage adds an uploaded image as a new component. The component id is
// taken from the "id" form value.
func (h *SessionHandler) AppendImage(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	id := c.PostForm("id")
	if id == "" {
		badRequest(c, errors.New("missing component id"))
		return
	}
	if !upload(c, h.logger, func(f uploadFile) <-chan error {
		return s.AppendImage(c.Request.Context(), id, f)
	}) {
		return
	}
	c.JSON(http.StatusCreated, s.Components())
}

// ReplaceImage replaces the image of an image component.
func (h *SessionHandler) ReplaceImage(c *gin.Context) {
	s, ok := lookup(c, h.store, h.logger)
	if !ok {
		return
	}
	if !upload(c, h.logger, func(f uploadFile) <-chan error {
		return s.ReplaceImage(c.Request.Context(), c.Param("component"), f)
	}) {
		return
	}
	c.JSON(http.StatusOK, s.Components())
}
