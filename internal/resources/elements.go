package resources

import (
	"context"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
	"github.com/inkweld/mcp-server/pkg/inkuri"
)

// ElementsHandler serves element-tree resources: the full positional array
// per project and individual elements by id.
type ElementsHandler struct {
	deps Deps
}

var _ mcp.ResourceHandler = (*ElementsHandler)(nil)

func (h *ElementsHandler) List(_ context.Context, rc *auth.RequestContext) ([]mcp.Resource, error) {
	var out []mcp.Resource
	for _, g := range rc.Projects {
		if !g.Has(auth.PermReadElements) {
			continue
		}
		out = append(out, mcp.Resource{
			URI:         inkuri.Section(g.Owner, g.Slug, "elements"),
			Name:        g.Owner + "/" + g.Slug + " elements",
			Description: "Full element tree in positional order",
			MimeType:    jsonMime,
		})
	}
	return out, nil
}

func (h *ElementsHandler) Read(ctx context.Context, rc *auth.RequestContext, uri string) (*mcp.ResourceContents, error) {
	u, err := inkuri.Parse(uri)
	if err != nil {
		return nil, nil
	}
	isSection := u.Kind == inkuri.KindSection && u.Section == "elements"
	isEntry := u.Kind == inkuri.KindEntry && u.Section == "element"
	if !isSection && !isEntry {
		return nil, nil
	}
	g, ok := rc.Project(u.Owner, u.Slug)
	if !ok || !g.Has(auth.PermReadElements) {
		return nil, nil
	}

	els, err := h.deps.Engine.Elements(ctx, document.ElementsDoc(u.Owner, u.Slug))
	if err != nil {
		return nil, err
	}
	if isSection {
		return prettyJSON(uri, els)
	}
	for i := range els {
		if els[i].ID == u.ID {
			return prettyJSON(uri, els[i])
		}
	}
	return nil, nil
}
