// Package mcp serves docforge editing sessions to AI assistants over the Model
// Context Protocol. An assistant picks a template, fills the form, arranges
// and brands the content and exports the result through tools, and browses
// templates and open documents through resources.
//
// Messages are newline-delimited JSON-RPC 2.0 on stdin and stdout, following
// protocol revision 2024-11-05. Point an MCP client at the binary:
//
//	{
//	  "mcpServers": {
//	    "docforge": {"command": "docforge", "args": ["mcp"]}
//	  }
//	}
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ServerName is reported to clients on initialize.
const ServerName = "docforge-mcp"

const protocolVersion = "2024-11-05"

const (
	maxMessageSize     = 10 << 20
	initialMessageSize = 1 << 20
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Tool is a callable operation advertised on tools/list.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	Handler     ToolHandler            `json:"-"`
}

// ToolHandler runs a tool. A returned error is reported to the client as a
// tool result flagged isError, not as a protocol error.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (ToolResult, error)

// ToolResult is the outcome of a tools/call.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock is one item of a tool result. Type is "text" or "resource";
// binary payloads travel base64 encoded in Data.
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Resource is a readable URI. A URI containing a "{placeholder}" registers a
// resource template that serves every URI sharing its prefix.
type Resource struct {
	URI         string          `json:"uri"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	MIMEType    string          `json:"mimeType,omitempty"`
	Handler     ResourceHandler `json:"-"`
}

// ResourceHandler produces the contents of uri.
type ResourceHandler func(uri string) ([]ResourceContent, error)

// ResourceContent is one entry of a resources/read result.
type ResourceContent struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

type request struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Result  interface{}      `json:"result,omitempty"`
	Error   *rpcError        `json:"error,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func invalidParams(message string, data interface{}) *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: message, Data: data}
}

type initializeResult struct {
	ProtocolVersion string     `json:"protocolVersion"`
	Capabilities    capability `json:"capabilities"`
	ServerInfo      serverInfo `json:"serverInfo"`
}

type capability struct {
	Tools     struct{} `json:"tools"`
	Resources struct{} `json:"resources"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type resourceEntry struct {
	URI         string `json:"uri,omitempty"`
	URITemplate string `json:"uriTemplate,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// method answers one JSON-RPC method. A nil result with a nil error is sent
// as an empty object.
type method func(ctx context.Context, params json.RawMessage) (interface{}, *rpcError)

// Server dispatches MCP requests to registered tools and resources.
type Server struct {
	tools     map[string]Tool
	resources map[string]Resource
	templates map[string]Resource
	methods   map[string]method

	input   io.Reader
	output  io.Writer
	version string
	logger  *zap.Logger

	writeMu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithIO sets the streams the server reads requests from and writes
// responses to.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.input = in
		s.output = out
	}
}

// WithVersion sets the version reported on initialize.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithLogger sets the server logger. Logs must not go to the output stream.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer returns a server on stdin and stdout unless WithIO says
// otherwise.
func NewServer(opts ...Option) *Server {
	s := &Server{
		tools:     make(map[string]Tool),
		resources: make(map[string]Resource),
		templates: make(map[string]Resource),
		input:     os.Stdin,
		output:    os.Stdout,
		version:   "dev",
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("service", "mcp"))

	s.methods = map[string]method{
		"initialize":               s.initialize,
		"ping":                     func(context.Context, json.RawMessage) (interface{}, *rpcError) { return nil, nil },
		"tools/list":               s.listTools,
		"tools/call":               s.callTool,
		"resources/list":           s.listResources,
		"resources/templates/list": s.listResourceTemplates,
		"resources/read":           s.readResource,
	}
	return s
}

// NewServerWithIO is shorthand for NewServer(WithIO(in, out)).
func NewServerWithIO(in io.Reader, out io.Writer) *Server {
	return NewServer(WithIO(in, out))
}

// AddTool registers t, replacing any tool of the same name.
func (s *Server) AddTool(t Tool) {
	s.tools[t.Name] = t
}

// AddResource registers a resource or resource template.
func (s *Server) AddResource(r Resource) {
	if strings.Contains(r.URI, "{") {
		s.templates[r.URI] = r
		return
	}
	s.resources[r.URI] = r
}

// Run processes messages until EOF or until ctx is done. A request being
// handled when ctx is cancelled still gets its response.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.input)
	scanner.Buffer(make([]byte, 0, initialMessageSize), maxMessageSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.send(response{Error: &rpcError{Code: codeParseError, Message: "Parse error", Data: err.Error()}})
			continue
		}
		s.dispatch(ctx, req)
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req request) {
	s.logger.Debug("request", zap.String("method", req.Method))

	// Notifications carry no id and never get an answer.
	if req.ID == nil && (req.Method == "initialized" || strings.HasPrefix(req.Method, "notifications/")) {
		return
	}

	m, ok := s.methods[req.Method]
	if !ok {
		s.send(response{ID: req.ID, Error: &rpcError{
			Code:    codeMethodNotFound,
			Message: "Method not found",
			Data:    req.Method,
		}})
		return
	}

	result, rerr := m(ctx, req.Params)
	if rerr != nil {
		s.send(response{ID: req.ID, Error: rerr})
		return
	}
	if result == nil {
		result = struct{}{}
	}
	s.send(response{ID: req.ID, Result: result})
}

func (s *Server) initialize(context.Context, json.RawMessage) (interface{}, *rpcError) {
	return initializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo:      serverInfo{Name: ServerName, Version: s.version},
	}, nil
}

func (s *Server) listTools(context.Context, json.RawMessage) (interface{}, *rpcError) {
	tools := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return map[string]interface{}{"tools": tools}, nil
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (interface{}, *rpcError) {
	var params struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("Invalid params", err.Error())
	}

	tool, ok := s.tools[params.Name]
	if !ok {
		return nil, invalidParams("Unknown tool", params.Name)
	}
	if params.Arguments == nil {
		params.Arguments = map[string]interface{}{}
	}

	result, err := tool.Handler(ctx, params.Arguments)
	if err != nil {
		s.logger.Info("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return ToolResult{
			Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("Error: %v", err)}},
			IsError: true,
		}, nil
	}
	return result, nil
}

func entries(m map[string]Resource, template bool) []resourceEntry {
	out := make([]resourceEntry, 0, len(m))
	for _, r := range m {
		e := resourceEntry{Name: r.Name, Description: r.Description, MIMEType: r.MIMEType}
		if template {
			e.URITemplate = r.URI
		} else {
			e.URI = r.URI
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].URI+out[i].URITemplate < out[j].URI+out[j].URITemplate
	})
	return out
}

func (s *Server) listResources(context.Context, json.RawMessage) (interface{}, *rpcError) {
	return map[string]interface{}{"resources": entries(s.resources, false)}, nil
}

func (s *Server) listResourceTemplates(context.Context, json.RawMessage) (interface{}, *rpcError) {
	return map[string]interface{}{"resourceTemplates": entries(s.templates, true)}, nil
}

// lookupResource finds the resource serving uri: an exact match first, then
// the template whose prefix before its first placeholder matches.
func (s *Server) lookupResource(uri string) (Resource, bool) {
	if r, ok := s.resources[uri]; ok {
		return r, true
	}
	for _, r := range s.templates {
		prefix := r.URI[:strings.Index(r.URI, "{")]
		if strings.HasPrefix(uri, prefix) && len(uri) > len(prefix) {
			return r, true
		}
	}
	return Resource{}, false
}

func (s *Server) readResource(_ context.Context, raw json.RawMessage) (interface{}, *rpcError) {
	var params struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("Invalid params", err.Error())
	}

	r, ok := s.lookupResource(params.URI)
	if !ok {
		return nil, invalidParams("Unknown resource", params.URI)
	}
	contents, err := r.Handler(params.URI)
	if err != nil {
		return nil, &rpcError{Code: codeInternalError, Message: "Resource error", Data: err.Error()}
	}
	return map[string]interface{}{"contents": contents}, nil
}

func (s *Server) send(resp response) {
	resp.JSONRPC = "2.0"
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("encoding response", zap.Error(err))
		return
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.output.Write(data); err != nil {
		s.logger.Error("writing response", zap.Error(err))
	}
}
