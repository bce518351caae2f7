package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lvillar/docforge/session"
	"github.com/lvillar/docforge/templates"
)

// Resource URIs served by RegisterDefaultResources.
const (
	TemplatesURI   = "docforge://templates"
	DocumentsURI   = "docforge://documents"
	documentPrefix = DocumentsURI + "/"
)

// RegisterDefaultResources adds the template registry and the live documents
// of store as resources. Resources use the docforge:// scheme.
func RegisterDefaultResources(s *Server, store *session.Store) {
	s.AddResource(Resource{
		URI:         TemplatesURI,
		Name:        "Document Templates",
		Description: "Every document template with its form fields.",
		MIMEType:    "application/json",
		Handler:     handleTemplatesResource,
	})

	s.AddResource(Resource{
		URI:         DocumentsURI,
		Name:        "Open Documents",
		Description: "The documents being edited, with their template type and last change.",
		MIMEType:    "application/json",
		Handler: func(uri string) ([]ResourceContent, error) {
			return handleDocumentsResource(store, uri)
		},
	})

	s.AddResource(Resource{
		URI:         documentPrefix + "{id}",
		Name:        "Document",
		Description: "One document: its content blocks and theme.",
		MIMEType:    "application/json",
		Handler: func(uri string) ([]ResourceContent, error) {
			return handleDocumentResource(store, uri)
		},
	})
}

func jsonContent(uri string, v interface{}) ([]ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding resource: %w", err)
	}
	return []ResourceContent{{
		URI:      uri,
		MIMEType: "application/json",
		Text:     string(data),
	}}, nil
}

func handleTemplatesResource(uri string) ([]ResourceContent, error) {
	return jsonContent(uri, templates.All())
}

type documentEntry struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	URI  string `json:"uri"`
}

func handleDocumentsResource(store *session.Store, uri string) ([]ResourceContent, error) {
	sessions, err := store.List("")
	if err != nil {
		return nil, err
	}
	entries := make([]documentEntry, len(sessions))
	for i, sess := range sessions {
		entries[i] = documentEntry{
			ID:   sess.ID(),
			Type: string(sess.Type()),
			URI:  documentPrefix + sess.ID(),
		}
	}
	return jsonContent(uri, entries)
}

func handleDocumentResource(store *session.Store, uri string) ([]ResourceContent, error) {
	id := strings.TrimPrefix(uri, documentPrefix)
	if id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("invalid document URI %q", uri)
	}
	sess, err := store.Get(id)
	if err != nil {
		return nil, err
	}
	return jsonContent(uri, sess.Snapshot())
}
