package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inkweld/mcp-server/internal/auth"
)

// Dispatcher routes one parsed JSON-RPC request to its method handler and
// formats the reply. It holds no per-request state; a RequestContext is
// created per request by the auth layer and discarded afterwards.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher over a populated registry.
func NewDispatcher(registry *Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// zeroID is echoed when a request carries no usable id.
var zeroID = json.RawMessage("0")

func respond(id json.RawMessage, result any) *Response {
	if len(id) == 0 {
		id = zeroID
	}
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

func respondError(id json.RawMessage, err *Error) *Response {
	if len(id) == 0 {
		id = zeroID
	}
	return &Response{JSONRPC: "2.0", ID: id, Error: err}
}

// Dispatch handles one request. It returns nil for notifications, which
// produce no response body.
func (d *Dispatcher) Dispatch(ctx context.Context, rc *auth.RequestContext, req *Request) *Response {
	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.IsNotification() {
			return nil
		}
		return respondError(req.ID, NewError(CodeInvalidRequest, "not a JSON-RPC 2.0 request"))
	}

	switch req.Method {
	case "initialize":
		return d.handleInitialize(rc, req)
	case "initialized", "notifications/initialized":
		if req.IsNotification() {
			return nil
		}
		return respond(req.ID, struct{}{})
	case "ping":
		return respond(req.ID, struct{}{})
	case "resources/list":
		return d.handleResourcesList(ctx, rc, req)
	case "resources/read":
		return d.handleResourcesRead(ctx, rc, req)
	case "resources/templates/list":
		return respond(req.ID, map[string]any{"resourceTemplates": []ResourceTemplate{}})
	case "tools/list":
		return d.handleToolsList(rc, req)
	case "tools/call":
		return d.handleToolsCall(ctx, rc, req)
	case "prompts/list":
		return d.handlePromptsList(req)
	case "prompts/get":
		return d.handlePromptsGet(ctx, rc, req)
	default:
		if req.IsNotification() {
			return nil
		}
		return respondError(req.ID, NewError(CodeMethodNotFound, fmt.Sprintf("Unknown method: %s", req.Method)))
	}
}

// serverCapabilities mirrors the fixed capability set of this revision: no
// subscriptions and no list-change notifications.
type serverCapabilities struct {
	Resources struct {
		Subscribe   bool `json:"subscribe"`
		ListChanged bool `json:"listChanged"`
	} `json:"resources"`
	Tools struct {
		ListChanged bool `json:"listChanged"`
	} `json:"tools"`
	Prompts struct {
		ListChanged bool `json:"listChanged"`
	} `json:"prompts"`
}

type initializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ClientInfo      auth.ClientInfo `json:"clientInfo"`
}

func (d *Dispatcher) handleInitialize(rc *auth.RequestContext, req *Request) *Response {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return respondError(req.ID, NewError(CodeInvalidParams, "invalid initialize params"))
		}
	}
	if params.ProtocolVersion != "" && params.ProtocolVersion != ProtocolVersion {
		// Version negotiation is deliberately lenient: log and proceed
		// with the server's revision.
		d.logger.Info("client requested different protocol version",
			zap.String("client_version", params.ProtocolVersion),
			zap.String("server_version", ProtocolVersion))
	}
	rc.Initialized = true
	rc.ClientInfo = params.ClientInfo

	return respond(req.ID, map[string]any{
		"protocolVersion": ProtocolVersion,
		"serverInfo":      map[string]any{"name": ServerName, "version": ServerVersion},
		"capabilities":    serverCapabilities{},
	})
}

func (d *Dispatcher) handleResourcesList(ctx context.Context, rc *auth.RequestContext, req *Request) *Response {
	resources := make([]Resource, 0)
	for _, h := range d.registry.Resources() {
		list, err := h.List(ctx, rc)
		if err != nil {
			return respondError(req.ID, d.asRPCError(err, "resources/list"))
		}
		resources = append(resources, list...)
	}
	return respond(req.ID, map[string]any{"resources": resources})
}

func (d *Dispatcher) handleResourcesRead(ctx context.Context, rc *auth.RequestContext, req *Request) *Response {
	var params struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.URI == "" {
		return respondError(req.ID, NewError(CodeInvalidParams, "uri is required"))
	}

	// First handler to recognize the uri wins; nil means "not mine".
	for _, h := range d.registry.Resources() {
		contents, err := h.Read(ctx, rc, params.URI)
		if err != nil {
			return respondError(req.ID, d.asRPCError(err, "resources/read"))
		}
		if contents != nil {
			return respond(req.ID, map[string]any{"contents": []*ResourceContents{contents}})
		}
	}
	return respondError(req.ID, NewError(CodeResourceNotFound, fmt.Sprintf("Resource not found: %s", params.URI)))
}

func (d *Dispatcher) handleToolsList(rc *auth.RequestContext, req *Request) *Response {
	tools := make([]Tool, 0)
	for _, h := range d.registry.Tools() {
		if rc.HasAnyPermission(h.RequiredPermissions()...) {
			tools = append(tools, h.Descriptor())
		}
	}
	return respond(req.ID, map[string]any{"tools": tools})
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, rc *auth.RequestContext, req *Request) *Response {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return respondError(req.ID, NewError(CodeInvalidParams, "tool name is required"))
	}

	h, ok := d.registry.Tool(params.Name)
	if !ok {
		return respondError(req.ID, NewError(CodeMethodNotFound, fmt.Sprintf("Unknown tool: %s", params.Name)))
	}
	// Enforced again here even though tools/list already filtered: a
	// client may call a tool it never listed.
	if !rc.HasAnyPermission(h.RequiredPermissions()...) {
		return respondError(req.ID, NewError(CodeInvalidRequest,
			fmt.Sprintf("Permission denied for tool %s", params.Name)))
	}

	result, err := h.Execute(ctx, rc, params.Arguments)
	if err != nil {
		return respondError(req.ID, d.asRPCError(err, params.Name))
	}
	return respond(req.ID, result)
}

func (d *Dispatcher) handlePromptsList(req *Request) *Response {
	prompts := make([]Prompt, 0)
	for _, h := range d.registry.Prompts() {
		prompts = append(prompts, h.Descriptor())
	}
	return respond(req.ID, map[string]any{"prompts": prompts})
}

func (d *Dispatcher) handlePromptsGet(ctx context.Context, rc *auth.RequestContext, req *Request) *Response {
	var params struct {
		Name      string            `json:"name"`
		Arguments map[string]string `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return respondError(req.ID, NewError(CodeInvalidParams, "prompt name is required"))
	}

	h, ok := d.registry.Prompt(params.Name)
	if !ok {
		return respondError(req.ID, NewError(CodeMethodNotFound, fmt.Sprintf("Unknown prompt: %s", params.Name)))
	}
	result, err := h.GetPrompt(ctx, rc, params.Arguments)
	if err != nil {
		return respondError(req.ID, d.asRPCError(err, params.Name))
	}
	return respond(req.ID, result)
}

// asRPCError converts a handler error into a JSON-RPC error: structured
// *Error values pass through, anything else becomes an internal error with
// the message preserved and the details logged.
func (d *Dispatcher) asRPCError(err error, where string) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	d.logger.Error("handler error", zap.String("method", where), zap.Error(err))
	return NewError(CodeInternal, err.Error())
}
