package resources

import (
	"context"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
	"github.com/inkweld/mcp-server/pkg/inkuri"
)

// WorldbuildingHandler serves worldbuilding resources: a per-project entry
// index, individual entries with their identity and worldbuilding fields,
// and the relationship list. Listing stays at the section level; individual
// entries are reachable by URI without being enumerated.
type WorldbuildingHandler struct {
	deps Deps
}

var _ mcp.ResourceHandler = (*WorldbuildingHandler)(nil)

func (h *WorldbuildingHandler) List(_ context.Context, rc *auth.RequestContext) ([]mcp.Resource, error) {
	var out []mcp.Resource
	for _, g := range rc.Projects {
		if !g.Has(auth.PermReadWorldbuilding) {
			continue
		}
		out = append(out,
			mcp.Resource{
				URI:         inkuri.Section(g.Owner, g.Slug, "worldbuilding"),
				Name:        g.Owner + "/" + g.Slug + " worldbuilding",
				Description: "Index of worldbuilding entries",
				MimeType:    jsonMime,
			},
			mcp.Resource{
				URI:         inkuri.Section(g.Owner, g.Slug, "relationships"),
				Name:        g.Owner + "/" + g.Slug + " relationships",
				Description: "Relationships between elements",
				MimeType:    jsonMime,
			},
		)
	}
	return out, nil
}

type worldbuildingIndexEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

func (h *WorldbuildingHandler) Read(ctx context.Context, rc *auth.RequestContext, uri string) (*mcp.ResourceContents, error) {
	u, err := inkuri.Parse(uri)
	if err != nil {
		return nil, nil
	}
	switch {
	case u.Kind == inkuri.KindSection && u.Section == "worldbuilding":
		if !h.allowed(rc, u.Owner, u.Slug) {
			return nil, nil
		}
		els, err := h.deps.Engine.Elements(ctx, document.ElementsDoc(u.Owner, u.Slug))
		if err != nil {
			return nil, err
		}
		index := []worldbuildingIndexEntry{}
		for i := range els {
			if els[i].Type != document.ElementTypeWorldbuilding {
				continue
			}
			index = append(index, worldbuildingIndexEntry{
				ID:   els[i].ID,
				Name: els[i].Name,
				URI:  inkuri.Entry(u.Owner, u.Slug, "worldbuilding", els[i].ID),
			})
		}
		return prettyJSON(uri, index)

	case u.Kind == inkuri.KindEntry && u.Section == "worldbuilding":
		if !h.allowed(rc, u.Owner, u.Slug) {
			return nil, nil
		}
		docID := document.WorldbuildingDoc(u.Owner, u.Slug, u.ID)
		identity, err := h.deps.Engine.Fields(ctx, docID, document.NamespaceIdentity)
		if err != nil {
			return nil, err
		}
		fields, err := h.deps.Engine.Fields(ctx, docID, document.NamespaceWorldbuilding)
		if err != nil {
			return nil, err
		}
		return prettyJSON(uri, map[string]any{
			"id":            u.ID,
			"identity":      identity,
			"worldbuilding": fields,
		})

	case u.Kind == inkuri.KindSection && u.Section == "relationships":
		if !h.allowed(rc, u.Owner, u.Slug) {
			return nil, nil
		}
		rels, err := h.deps.Engine.Relationships(ctx, document.RelationshipsDoc(u.Owner, u.Slug))
		if err != nil {
			return nil, err
		}
		return prettyJSON(uri, rels)
	}
	return nil, nil
}

func (h *WorldbuildingHandler) allowed(rc *auth.RequestContext, owner, slug string) bool {
	g, ok := rc.Project(owner, slug)
	return ok && g.Has(auth.PermReadWorldbuilding)
}
