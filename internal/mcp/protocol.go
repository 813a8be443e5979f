// Package mcp implements the Model Context Protocol request-handling core:
// JSON-RPC 2.0 envelopes, the resource/tool/prompt registries, and the
// method dispatcher. The protocol revision served is 2025-06-18 over the
// HTTP Streamable transport.
package mcp

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Protocol identity advertised by initialize.
const (
	ProtocolVersion = "2025-06-18"
	ServerName      = "inkweld-mcp"
	ServerVersion   = "1.0.0"
)

// Request is an inbound JSON-RPC 2.0 message. A nil ID marks a
// notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool { return len(r.ID) == 0 }

// Response is an outbound JSON-RPC 2.0 message carrying exactly one of
// Result or Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object. It satisfies the error interface so
// handlers can return it directly and the dispatcher passes it through
// unchanged.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// JSON-RPC error codes. CodeResourceNotFound is the MCP extension code for
// resources/read misses.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternal         = -32603
	CodeResourceNotFound = -32002
)

// NewError builds an *Error.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewSessionID returns 16 cryptographically random bytes in lower hex, the
// value of the Mcp-Session-Id header. The id is opaque and never stored
// server-side.
func NewSessionID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// Descriptors returned by the list methods.

// Annotations carry optional client hints on resources and content.
type Annotations struct {
	Audience []string `json:"audience,omitempty"`
	Priority float64  `json:"priority,omitempty"`
}

// Resource describes one readable datum in resources/list replies.
type Resource struct {
	URI         string       `json:"uri"`
	Name        string       `json:"name"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
	Size        int64        `json:"size,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// ResourceContents is the payload returned by resources/read. Exactly one
// of Text or Blob is set.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"` // base64
}

// ResourceTemplate is reserved for resources/templates/list.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Tool describes one callable action in tools/list replies. The
// required-permission set is server-side only and never serialized.
type Tool struct {
	Name         string         `json:"name"`
	Title        string         `json:"title,omitempty"`
	Description  string         `json:"description,omitempty"`
	InputSchema  map[string]any `json:"inputSchema"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
	Annotations  map[string]any `json:"annotations,omitempty"`
}

// Prompt describes one prompt template in prompts/list replies.
type Prompt struct {
	Name        string           `json:"name"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument is one argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptMessage is one chat message produced by prompts/get.
type PromptMessage struct {
	Role    string      `json:"role"`
	Content ContentPart `json:"content"`
}

// GetPromptResult is the prompts/get reply.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// ContentPart is the discriminated content union used in tool results and
// prompt messages: text, image, resource, or resource_link.
type ContentPart struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Data     string            `json:"data,omitempty"` // base64, for images
	MimeType string            `json:"mimeType,omitempty"`
	Resource *ResourceContents `json:"resource,omitempty"`
	URI      string            `json:"uri,omitempty"` // for resource_link
	Name     string            `json:"name,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image content part from base64 data.
func ImagePart(data, mimeType string) ContentPart {
	return ContentPart{Type: "image", Data: data, MimeType: mimeType}
}

// ResourcePart embeds resource contents in a tool result.
func ResourcePart(rc *ResourceContents) ContentPart {
	return ContentPart{Type: "resource", Resource: rc}
}

// ResourceLinkPart references a resource by uri without embedding it.
func ResourceLinkPart(uri, name string) ContentPart {
	return ContentPart{Type: "resource_link", URI: uri, Name: name}
}

// ToolResult is the payload of a tools/call reply. Tool failures are
// reported with IsError=true rather than a JSON-RPC error, which is
// reserved for malformed or unauthorized calls.
type ToolResult struct {
	Content           []ContentPart `json:"content"`
	IsError           bool          `json:"isError,omitempty"`
	StructuredContent any           `json:"structuredContent,omitempty"`
}

// TextResult builds a single-part text result.
func TextResult(text string) *ToolResult {
	return &ToolResult{Content: []ContentPart{TextPart(text)}}
}

// ErrorResult builds a single-part failure result.
func ErrorResult(text string) *ToolResult {
	return &ToolResult{Content: []ContentPart{TextPart(text)}, IsError: true}
}

// ErrorResultf is ErrorResult with formatting.
func ErrorResultf(format string, a ...any) *ToolResult {
	return &ToolResult{Content: []ContentPart{TextPart(fmt.Sprintf(format, a...))}, IsError: true}
}
