package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inkweld/mcp-server/internal/auth"
)

// ResourceHandler exposes one family of resources. List yields only the
// resources the context may read; Read returns (nil, nil) for URIs it does
// not recognize so the dispatcher can try the next handler.
type ResourceHandler interface {
	List(ctx context.Context, rc *auth.RequestContext) ([]Resource, error)
	Read(ctx context.Context, rc *auth.RequestContext, uri string) (*ResourceContents, error)
}

// ToolHandler implements one tool.
type ToolHandler interface {
	// Descriptor returns the tool's wire descriptor.
	Descriptor() Tool
	// RequiredPermissions lists the permissions of which the context must
	// hold at least one (on any accessible project) for the tool to be
	// visible and callable. An empty set means always available.
	RequiredPermissions() []auth.Permission
	// Execute runs the tool. Domain failures are reported inside the
	// ToolResult with IsError=true; a returned error becomes a JSON-RPC
	// error instead.
	Execute(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*ToolResult, error)
}

// PromptHandler implements one prompt template.
type PromptHandler interface {
	Descriptor() Prompt
	GetPrompt(ctx context.Context, rc *auth.RequestContext, args map[string]string) (*GetPromptResult, error)
}

// Registry holds the resource, tool, and prompt handlers. It is populated
// once before the transport starts accepting traffic and read-only
// afterwards, so it needs no locking.
type Registry struct {
	resources   []ResourceHandler
	tools       map[string]ToolHandler
	toolOrder   []string
	prompts     map[string]PromptHandler
	promptOrder []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]ToolHandler),
		prompts: make(map[string]PromptHandler),
	}
}

// AddResource appends a resource handler; list and read walk handlers in
// registration order.
func (r *Registry) AddResource(h ResourceHandler) {
	r.resources = append(r.resources, h)
}

// AddTool registers a tool handler under its descriptor name. Registering
// the same name twice is a programming error.
func (r *Registry) AddTool(h ToolHandler) {
	name := h.Descriptor().Name
	if _, dup := r.tools[name]; dup {
		panic(fmt.Sprintf("tool %q registered twice", name))
	}
	r.tools[name] = h
	r.toolOrder = append(r.toolOrder, name)
}

// AddPrompt registers a prompt handler under its descriptor name.
func (r *Registry) AddPrompt(h PromptHandler) {
	name := h.Descriptor().Name
	if _, dup := r.prompts[name]; dup {
		panic(fmt.Sprintf("prompt %q registered twice", name))
	}
	r.prompts[name] = h
	r.promptOrder = append(r.promptOrder, name)
}

// Resources returns the handlers in registration order.
func (r *Registry) Resources() []ResourceHandler { return r.resources }

// Tool looks up a tool handler by name.
func (r *Registry) Tool(name string) (ToolHandler, bool) {
	h, ok := r.tools[name]
	return h, ok
}

// Tools returns every tool handler in registration order.
func (r *Registry) Tools() []ToolHandler {
	out := make([]ToolHandler, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		out = append(out, r.tools[name])
	}
	return out
}

// Prompt looks up a prompt handler by name.
func (r *Registry) Prompt(name string) (PromptHandler, bool) {
	h, ok := r.prompts[name]
	return h, ok
}

// Prompts returns every prompt handler in registration order.
func (r *Registry) Prompts() []PromptHandler {
	out := make([]PromptHandler, 0, len(r.promptOrder))
	for _, name := range r.promptOrder {
		out = append(out, r.prompts[name])
	}
	return out
}
