package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lvillar/docforge"
	"github.com/lvillar/docforge/templates"
)

// TemplateHandler serves the template registry.
type TemplateHandler struct {
	logger *zap.Logger
}

// NewTemplateHandler returns a TemplateHandler.
func NewTemplateHandler(logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{
		logger: logger.With(zap.String("handler", "template")),
	}
}

type templateSummary struct {
	Type        docforge.DocumentType `json:"type"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
}

// ListTemplates returns every template without its fields.
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	all := templates.All()
	out := make([]templateSummary, len(all))
	for i, t := range all {
		out[i] = templateSummary{Type: t.Type, Name: t.Name, Description: t.Description}
	}
	c.JSON(http.StatusOK, out)
}

// GetTemplate returns one template with its fields.
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, err := templates.Lookup(docforge.DocumentType(c.Param("type")))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tpl)
}
