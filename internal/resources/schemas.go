package resources

import (
	"context"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
	"github.com/inkweld/mcp-server/pkg/inkuri"
)

// SchemasHandler serves element-schema resources.
type SchemasHandler struct {
	deps Deps
}

var _ mcp.ResourceHandler = (*SchemasHandler)(nil)

func (h *SchemasHandler) List(_ context.Context, rc *auth.RequestContext) ([]mcp.Resource, error) {
	var out []mcp.Resource
	for _, g := range rc.Projects {
		if !g.Has(auth.PermReadSchemas) {
			continue
		}
		out = append(out, mcp.Resource{
			URI:         inkuri.Section(g.Owner, g.Slug, "schemas"),
			Name:        g.Owner + "/" + g.Slug + " schemas",
			Description: "Element schemas defined for this project",
			MimeType:    jsonMime,
		})
	}
	return out, nil
}

func (h *SchemasHandler) Read(ctx context.Context, rc *auth.RequestContext, uri string) (*mcp.ResourceContents, error) {
	u, err := inkuri.Parse(uri)
	if err != nil {
		return nil, nil
	}
	isSection := u.Kind == inkuri.KindSection && u.Section == "schemas"
	isEntry := u.Kind == inkuri.KindEntry && u.Section == "schema"
	if !isSection && !isEntry {
		return nil, nil
	}
	g, ok := rc.Project(u.Owner, u.Slug)
	if !ok || !g.Has(auth.PermReadSchemas) {
		return nil, nil
	}

	schemas, err := h.deps.Engine.Schemas(ctx, document.SchemasDoc(u.Owner, u.Slug))
	if err != nil {
		return nil, err
	}
	if isSection {
		return prettyJSON(uri, schemas)
	}
	for i := range schemas {
		if schemas[i].ID == u.ID {
			return prettyJSON(uri, schemas[i])
		}
	}
	return nil, nil
}
