package resources

import (
	"context"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
	"github.com/inkweld/mcp-server/pkg/inkuri"
)

// ProjectsHandler serves the inkweld://projects listing and per-project
// overview resources.
type ProjectsHandler struct {
	deps Deps
}

var _ mcp.ResourceHandler = (*ProjectsHandler)(nil)

type projectSummary struct {
	Owner       string   `json:"owner"`
	Slug        string   `json:"slug"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions"`
}

func summarize(g auth.ProjectGrant) projectSummary {
	perms := make([]string, 0, len(g.Permissions))
	for _, p := range g.Permissions {
		perms = append(perms, string(p))
	}
	return projectSummary{Owner: g.Owner, Slug: g.Slug, Role: g.Role, Permissions: perms}
}

func (h *ProjectsHandler) List(_ context.Context, rc *auth.RequestContext) ([]mcp.Resource, error) {
	out := []mcp.Resource{{
		URI:         inkuri.Projects(),
		Name:        "Accessible projects",
		Description: "All projects this credential can access, with granted permissions",
		MimeType:    jsonMime,
	}}
	for _, g := range rc.Projects {
		if !g.Has(auth.PermReadProject) {
			continue
		}
		out = append(out, mcp.Resource{
			URI:         inkuri.Project(g.Owner, g.Slug),
			Name:        g.Owner + "/" + g.Slug,
			Description: "Project overview",
			MimeType:    jsonMime,
		})
	}
	return out, nil
}

func (h *ProjectsHandler) Read(ctx context.Context, rc *auth.RequestContext, uri string) (*mcp.ResourceContents, error) {
	u, err := inkuri.Parse(uri)
	if err != nil {
		return nil, nil
	}
	switch u.Kind {
	case inkuri.KindProjects:
		list := make([]projectSummary, 0, len(rc.Projects))
		for _, g := range rc.Projects {
			list = append(list, summarize(g))
		}
		return prettyJSON(uri, list)

	case inkuri.KindProject:
		g, ok := rc.Project(u.Owner, u.Slug)
		if !ok || !g.Has(auth.PermReadProject) {
			return nil, nil
		}
		meta, err := h.deps.Engine.Fields(ctx, document.MetadataDoc(u.Owner, u.Slug), document.NamespaceMetadata)
		if err != nil {
			return nil, err
		}
		return prettyJSON(uri, map[string]any{
			"project":  summarize(g),
			"metadata": meta,
		})
	}
	return nil, nil
}
