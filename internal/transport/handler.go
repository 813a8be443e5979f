// Package transport exposes the MCP endpoint over the HTTP Streamable
// transport: POST for JSON-RPC, GET for the server event stream, DELETE
// for session termination. Only POST is auth-gated.
package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
)

// keepAliveInterval is how often the event stream emits a comment frame so
// intermediaries do not close the connection.
const keepAliveInterval = 15 * time.Second

// Handler serves the MCP endpoint.
type Handler struct {
	dispatcher    *mcp.Dispatcher
	authenticator *auth.Authenticator
	baseURL       string
	logger        *zap.Logger
}

// NewHandler creates the MCP endpoint handler. baseURL is the externally
// visible origin used to build the protected-resource metadata URL.
func NewHandler(dispatcher *mcp.Dispatcher, authenticator *auth.Authenticator, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		dispatcher:    dispatcher,
		authenticator: authenticator,
		baseURL:       baseURL,
		logger:        logger,
	}
}

// Register mounts the MCP endpoint and the protected-resource metadata
// document on the router.
func (h *Handler) Register(router *gin.Engine) {
	router.POST("/mcp", h.handlePost)
	router.GET("/mcp", h.handleStream)
	router.DELETE("/mcp", h.handleDelete)
	router.GET("/.well-known/oauth-protected-resource", h.handleProtectedResourceMetadata)
}

func (h *Handler) metadataURL() string {
	return h.baseURL + "/.well-known/oauth-protected-resource"
}

// unauthorized writes the 401 contract: a WWW-Authenticate challenge
// pointing at the protected-resource metadata, with a JSON-RPC error body.
func (h *Handler) unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate",
		fmt.Sprintf(`Bearer realm="mcp", resource_metadata=%q`, h.metadataURL()))
	c.JSON(http.StatusUnauthorized, &mcp.Response{
		JSONRPC: "2.0",
		ID:      json.RawMessage("0"),
		Error:   mcp.NewError(mcp.CodeInvalidRequest, message),
	})
}

func (h *Handler) handlePost(c *gin.Context) {
	token := auth.ExtractToken(c.Request.Header)
	rc, err := h.authenticator.Authenticate(c.Request.Context(), token, c.ClientIP())
	if err != nil {
		h.unauthorized(c, err.Error())
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, &mcp.Response{
			JSONRPC: "2.0",
			ID:      json.RawMessage("0"),
			Error:   mcp.NewError(mcp.CodeParseError, "failed to read request body"),
		})
		return
	}
	var req mcp.Request
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusOK, &mcp.Response{
			JSONRPC: "2.0",
			ID:      json.RawMessage("0"),
			Error:   mcp.NewError(mcp.CodeParseError, "Parse error: invalid JSON"),
		})
		return
	}

	// A mismatched client protocol version is logged but never rejected.
	if v := c.GetHeader("MCP-Protocol-Version"); v != "" && v != mcp.ProtocolVersion {
		h.logger.Info("client protocol version differs",
			zap.String("client_version", v),
			zap.String("server_version", mcp.ProtocolVersion))
	}

	ctx := document.WithAuthToken(c.Request.Context(), rc.AuthToken)
	resp := h.dispatcher.Dispatch(ctx, rc, &req)
	recordRPC(req.Method, resp)

	if resp == nil {
		c.Status(http.StatusAccepted)
		return
	}
	if req.Method == "initialize" {
		c.Header("Mcp-Session-Id", mcp.NewSessionID())
	}
	c.JSON(http.StatusOK, resp)
}

// handleStream opens the server event stream. No server-initiated messages
// are sent; the stream carries only keep-alive comments until the client
// disconnects.
func (h *Handler) handleStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			if _, err := c.Writer.WriteString(": ping\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// handleDelete terminates a session. Sessions are stateless, so there is
// nothing to release.
func (h *Handler) handleDelete(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleProtectedResourceMetadata(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"resource":                 h.baseURL,
		"bearer_methods_supported": []string{"header"},
	})
}
