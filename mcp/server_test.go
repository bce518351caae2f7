package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docforge/session"
)

func newTestServer(t *testing.T) (*Server, *session.Store) {
	t.Helper()
	store, err := session.NewStore(time.Hour, nil, nil)
	require.NoError(t, err)
	s := NewServerWithIO(nil, nil)
	RegisterDefaultTools(s, store)
	RegisterDefaultResources(s, store)
	return s, store
}

func sendRequest(t *testing.T, s *Server, method string, id int, params interface{}) response {
	t.Helper()

	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}

	reqBytes, err := json.Marshal(req)
	require.NoError(t, err)
	reqBytes = append(reqBytes, '\n')

	var output bytes.Buffer
	s.input = bytes.NewReader(reqBytes)
	s.output = &output

	require.NoError(t, s.Run(context.Background()))

	var resp response
	require.NoError(t, json.Unmarshal(output.Bytes(), &resp), output.String())
	return resp
}

// callTool calls a tool and returns the text of its content blocks.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) (ToolResult, string) {
	t.Helper()
	resp := sendRequest(t, s, "tools/call", 1, map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result ToolResult
	require.NoError(t, json.Unmarshal(data, &result))

	var texts []string
	for _, c := range result.Content {
		texts = append(texts, c.Text)
	}
	return result, strings.Join(texts, "\n")
}

func TestServerInitialize(t *testing.T) {
	s, _ := newTestServer(t)

	resp := sendRequest(t, s, "initialize", 1, map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo":      map[string]interface{}{"name": "test", "version": "1.0"},
	})
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2024-11-05", result["protocolVersion"])

	serverInfo, ok := result["serverInfo"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, ServerName, serverInfo["name"])
	assert.Equal(t, "dev", serverInfo["version"])
}

func TestServerToolsList(t *testing.T) {
	s, _ := newTestServer(t)

	resp := sendRequest(t, s, "tools/list", 2, nil)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	tools, ok := result["tools"].([]interface{})
	require.True(t, ok)

	var names []string
	for _, tool := range tools {
		names = append(names, tool.(map[string]interface{})["name"].(string))
	}
	assert.Equal(t, []string{
		"add_image", "create_document", "delete_document", "edit_component",
		"export_document", "list_templates", "reorder_components", "select_template",
		"set_theme", "submit_form", "update_field",
	}, names)
}

func TestServerResources(t *testing.T) {
	s, store := newTestServer(t)

	resp := sendRequest(t, s, "resources/list", 3, nil)
	require.Nil(t, resp.Error)
	resources := resp.Result.(map[string]interface{})["resources"].([]interface{})
	assert.Len(t, resources, 2)

	resp = sendRequest(t, s, "resources/templates/list", 4, nil)
	require.Nil(t, resp.Error)
	tpls := resp.Result.(map[string]interface{})["resourceTemplates"].([]interface{})
	require.Len(t, tpls, 1)
	assert.Equal(t, "docforge://documents/{id}", tpls[0].(map[string]interface{})["uriTemplate"])

	resp = sendRequest(t, s, "resources/read", 5, map[string]string{"uri": TemplatesURI})
	require.Nil(t, resp.Error)
	assert.Contains(t, mustJSON(t, resp.Result), "Business Proposal")

	sess, err := store.Create()
	require.NoError(t, err)
	resp = sendRequest(t, s, "resources/read", 6, map[string]string{"uri": DocumentsURI + "/" + sess.ID()})
	require.Nil(t, resp.Error)
	assert.Contains(t, mustJSON(t, resp.Result), sess.ID())

	resp = sendRequest(t, s, "resources/read", 7, map[string]string{"uri": DocumentsURI + "/missing"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInternalError, resp.Error.Code)

	resp = sendRequest(t, s, "resources/read", 8, map[string]string{"uri": "pdf://text"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestServerPing(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	resp := sendRequest(t, s, "ping", 4, nil)
	assert.Nil(t, resp.Error)
}

func TestServerUnknownMethod(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	resp := sendRequest(t, s, "nonexistent/method", 5, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestServerUnknownTool(t *testing.T) {
	s, _ := newTestServer(t)
	resp := sendRequest(t, s, "tools/call", 6, map[string]interface{}{
		"name":      "nonexistent_tool",
		"arguments": map[string]interface{}{},
	})
	assert.NotNil(t, resp.Error)
}

func TestDocumentWorkflow(t *testing.T) {
	s, store := newTestServer(t)

	_, text := callTool(t, s, "create_document", map[string]interface{}{"type": "invoice"})
	require.Contains(t, text, "Document created")
	sessions, err := store.List("")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	id := sessions[0].ID()

	for field, value := range map[string]string{"clientName": "Acme", "description": "Consulting"} {
		res, _ := callTool(t, s, "update_field", map[string]interface{}{"documentId": id, "field": field, "value": value})
		require.False(t, res.IsError)
	}

	_, text = callTool(t, s, "submit_form", map[string]interface{}{"documentId": id})
	assert.Contains(t, text, "2 components created")

	res, _ := callTool(t, s, "edit_component", map[string]interface{}{"documentId": id, "componentId": "clientName", "text": "Globex"})
	require.False(t, res.IsError)

	res, text = callTool(t, s, "reorder_components", map[string]interface{}{"documentId": id, "activeId": "nope", "overId": "clientName"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "component not found")

	res, _ = callTool(t, s, "set_theme", map[string]interface{}{
		"documentId":   id,
		"primaryColor": "#112233",
		"font":         "Playfair Display",
		"watermark":    "DRAFT",
	})
	require.False(t, res.IsError)
	theme := sessions[0].Theme()
	assert.Equal(t, "#112233", theme.PrimaryColor.Hex())
	assert.Equal(t, "DRAFT", theme.Watermark)

	res, _ = callTool(t, s, "set_theme", map[string]interface{}{"documentId": id, "secondaryColor": "nope", "watermark": ""})
	assert.True(t, res.IsError)
	assert.Equal(t, "DRAFT", sessions[0].Theme().Watermark)

	res, _ = callTool(t, s, "export_document", map[string]interface{}{"documentId": id, "format": "pdf"})
	require.False(t, res.IsError)
	require.Len(t, res.Content, 2)
	pdf, err := base64.StdEncoding.DecodeString(res.Content[1].Data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	out := filepath.Join(t.TempDir(), "out.docx")
	_, text = callTool(t, s, "export_document", map[string]interface{}{"documentId": id, "format": "docx", "outputPath": out})
	assert.Contains(t, text, out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))

	_, text = callTool(t, s, "delete_document", map[string]interface{}{"documentId": id})
	assert.Contains(t, text, "deleted")
	res, _ = callTool(t, s, "submit_form", map[string]interface{}{"documentId": id})
	assert.True(t, res.IsError)
}

func TestServerMultipleRequests(t *testing.T) {
	requests := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":4,"method":"ping"}`,
	}

	input := strings.Join(requests, "\n") + "\n"
	var output bytes.Buffer

	store, err := session.NewStore(time.Hour, nil, nil)
	require.NoError(t, err)
	s := NewServer(WithIO(strings.NewReader(input), &output), WithVersion("v1.2.3"))
	RegisterDefaultTools(s, store)
	RegisterDefaultResources(s, store)

	require.NoError(t, s.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 4, output.String())
	for i, line := range lines {
		var resp response
		require.NoError(t, json.Unmarshal([]byte(line), &resp), "response %d", i)
		assert.Nil(t, resp.Error, "response %d", i)
	}
	assert.Contains(t, lines[0], "v1.2.3")
}

func TestServerRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var output bytes.Buffer
	s := NewServerWithIO(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &output)
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Empty(t, output.String())
}

func TestToolAddTool(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	s.AddTool(Tool{
		Name:        "custom_tool",
		Description: "A custom test tool",
		InputSchema: schema(nil, map[string]interface{}{}),
		Handler: func(context.Context, map[string]interface{}) (ToolResult, error) {
			return textResult("custom result"), nil
		},
	})

	_, text := callTool(t, s, "custom_tool", map[string]interface{}{})
	assert.Equal(t, "custom result", text)
}
