// Package resources implements the MCP resource handlers: projects,
// elements, worldbuilding, and schemas. Listing is permission-filtered per
// accessible project; reads return nil for unrecognized URIs so the
// dispatcher can fall through to the next handler.
package resources

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
)

const jsonMime = "application/json"

// Deps bundles what every resource handler needs.
type Deps struct {
	Engine document.Engine
	Logger *zap.Logger
}

// Register adds the standard handlers to the registry in their canonical
// order. All handlers must be registered before the transport starts.
func Register(reg *mcp.Registry, deps Deps) {
	reg.AddResource(&ProjectsHandler{deps})
	reg.AddResource(&ElementsHandler{deps})
	reg.AddResource(&WorldbuildingHandler{deps})
	reg.AddResource(&SchemasHandler{deps})
}

// prettyJSON renders v as indented JSON resource contents.
func prettyJSON(uri string, v any) (*mcp.ResourceContents, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode resource %s: %w", uri, err)
	}
	return &mcp.ResourceContents{URI: uri, MimeType: jsonMime, Text: string(raw)}, nil
}
