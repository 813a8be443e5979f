package tools

import (
	"context"
	"encoding/json"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
	"github.com/inkweld/mcp-server/internal/prosemirror"
	"github.com/inkweld/mcp-server/internal/tree"
)

// treeNode is the compact element view returned by get_project_tree.
type treeNode struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	ParentID *string `json:"parentId"`
	Level    int     `json:"level"`
	SchemaID *string `json:"schemaId,omitempty"`
}

func getProjectTree(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "get_project_tree",
			Description: "Get the element tree of a project in positional order. " +
				"Optionally scope to the subtree rooted at parentId and limit depth with maxDepth.",
			InputSchema: schema(map[string]any{
				"project":  projectProp(),
				"parentId": prop("string", "Element id to use as the subtree root. Omit for the whole tree."),
				"maxDepth": prop("integer", "Maximum number of levels below the root to include. Omit for unlimited."),
			}, "project"),
		},
		perms: []auth.Permission{auth.PermReadElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project  string `json:"project"`
				ParentID string `json:"parentId"`
				MaxDepth int    `json:"maxDepth"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return mcp.ErrorResult("invalid arguments"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermReadElements)
			if res != nil {
				return res, nil
			}

			els, err := deps.Engine.Elements(ctx, document.ElementsDoc(owner, slug))
			if err != nil {
				return mcp.ErrorResultf("read elements failed: %v", err), nil
			}

			baseLevel := -1
			if in.ParentID != "" {
				found := false
				for i := range els {
					if els[i].ID == in.ParentID {
						baseLevel = els[i].Level
						els = tree.Subtree(els, i)
						found = true
						break
					}
				}
				if !found {
					return mcp.ErrorResultf("element %s not found", in.ParentID), nil
				}
			}

			// Depth is measured from the scope root: the subtree root when
			// parentId is given, otherwise the (virtual) project root above
			// level 0. maxDepth=1 keeps only the direct children.
			nodes := []treeNode{}
			for i := range els {
				if in.MaxDepth > 0 && els[i].Level-baseLevel > in.MaxDepth {
					continue
				}
				nodes = append(nodes, treeNode{
					ID:       els[i].ID,
					Name:     els[i].Name,
					Type:     string(els[i].Type),
					ParentID: els[i].ParentID,
					Level:    els[i].Level,
					SchemaID: els[i].SchemaID,
				})
			}
			return mcp.TextResult(pretty(nodes)), nil
		},
	}
}

func getElementFull(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "get_element_full",
			Description: "Get everything known about one element: its tree entry, direct children, " +
				"relationships it participates in, and worldbuilding fields when applicable.",
			InputSchema: schema(map[string]any{
				"project":   projectProp(),
				"elementId": prop("string", "The element id"),
			}, "project", "elementId"),
		},
		perms: []auth.Permission{auth.PermReadElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project   string `json:"project"`
				ElementID string `json:"elementId"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.ElementID == "" {
				return mcp.ErrorResult("elementId is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermReadElements)
			if res != nil {
				return res, nil
			}

			els, err := deps.Engine.Elements(ctx, document.ElementsDoc(owner, slug))
			if err != nil {
				return mcp.ErrorResultf("read elements failed: %v", err), nil
			}
			idx := -1
			for i := range els {
				if els[i].ID == in.ElementID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return mcp.ErrorResultf("element %s not found", in.ElementID), nil
			}

			out := map[string]any{"element": els[idx]}

			children := []treeNode{}
			for _, c := range tree.Subtree(els, idx)[1:] {
				if c.Level == els[idx].Level+1 {
					children = append(children, treeNode{
						ID: c.ID, Name: c.Name, Type: string(c.Type), ParentID: c.ParentID, Level: c.Level,
					})
				}
			}
			out["children"] = children

			rels, err := deps.Engine.Relationships(ctx, document.RelationshipsDoc(owner, slug))
			if err == nil {
				linked := []document.Relationship{}
				for _, r := range rels {
					if r.SourceElementID == in.ElementID || r.TargetElementID == in.ElementID {
						linked = append(linked, r)
					}
				}
				out["relationships"] = linked
			}

			if els[idx].Type == document.ElementTypeWorldbuilding {
				docID := document.WorldbuildingDoc(owner, slug, in.ElementID)
				if identity, err := deps.Engine.Fields(ctx, docID, document.NamespaceIdentity); err == nil {
					out["identity"] = identity
				}
				if fields, err := deps.Engine.Fields(ctx, docID, document.NamespaceWorldbuilding); err == nil {
					out["worldbuilding"] = fields
				}
			}
			return mcp.TextResult(pretty(out)), nil
		},
	}
}

func getDocumentContent(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "get_document_content",
			Description: "Get the prose content of an element's document, as plain text (default) " +
				"or as the raw ProseMirror XML.",
			InputSchema: schema(map[string]any{
				"project":   projectProp(),
				"elementId": prop("string", "The element whose document to read"),
				"format": map[string]any{
					"type":        "string",
					"description": "Output format. Defaults to text.",
					"enum":        []string{"text", "xml"},
				},
			}, "project", "elementId"),
		},
		perms: []auth.Permission{auth.PermReadElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project   string `json:"project"`
				ElementID string `json:"elementId"`
				Format    string `json:"format"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.ElementID == "" {
				return mcp.ErrorResult("elementId is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermReadElements)
			if res != nil {
				return res, nil
			}

			xml, err := deps.Engine.Content(ctx, document.ContentDoc(owner, slug, in.ElementID))
			if err != nil {
				return mcp.ErrorResultf("read document failed: %v", err), nil
			}
			if in.Format == "xml" {
				return mcp.TextResult(xml), nil
			}
			text, err := prosemirror.ExtractText(xml)
			if err != nil {
				return mcp.ErrorResultf("extract text failed: %v", err), nil
			}
			return mcp.TextResult(text), nil
		},
	}
}

func getRelationshipsGraph(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "get_relationships_graph",
			Description: "Get the full relationship graph of a project: one node per element that " +
				"participates in a relationship, plus every edge.",
			InputSchema: schema(map[string]any{
				"project": projectProp(),
			}, "project"),
		},
		perms: []auth.Permission{auth.PermReadWorldbuilding},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project string `json:"project"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return mcp.ErrorResult("invalid arguments"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermReadWorldbuilding)
			if res != nil {
				return res, nil
			}

			rels, err := deps.Engine.Relationships(ctx, document.RelationshipsDoc(owner, slug))
			if err != nil {
				return mcp.ErrorResultf("read relationships failed: %v", err), nil
			}
			els, err := deps.Engine.Elements(ctx, document.ElementsDoc(owner, slug))
			if err != nil {
				return mcp.ErrorResultf("read elements failed: %v", err), nil
			}

			byID := make(map[string]document.Element, len(els))
			for i := range els {
				byID[els[i].ID] = els[i]
			}
			seen := map[string]bool{}
			nodes := []treeNode{}
			addNode := func(id string) {
				if seen[id] {
					return
				}
				seen[id] = true
				if el, ok := byID[id]; ok {
					nodes = append(nodes, treeNode{ID: el.ID, Name: el.Name, Type: string(el.Type), ParentID: el.ParentID, Level: el.Level})
				} else {
					nodes = append(nodes, treeNode{ID: id, Name: "(missing element)"})
				}
			}
			for _, r := range rels {
				addNode(r.SourceElementID)
				addNode(r.TargetElementID)
			}
			return mcp.TextResult(pretty(map[string]any{"nodes": nodes, "edges": rels})), nil
		},
	}
}

func getProjectMetadata(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name:        "get_project_metadata",
			Description: "Get the project metadata document: title, description, cover image, and custom fields.",
			InputSchema: schema(map[string]any{
				"project": projectProp(),
			}, "project"),
		},
		perms: []auth.Permission{auth.PermReadProject},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project string `json:"project"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return mcp.ErrorResult("invalid arguments"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermReadProject)
			if res != nil {
				return res, nil
			}
			meta, err := deps.Engine.Fields(ctx, document.MetadataDoc(owner, slug), document.NamespaceMetadata)
			if err != nil {
				return mcp.ErrorResultf("read metadata failed: %v", err), nil
			}
			return mcp.TextResult(pretty(meta)), nil
		},
	}
}

func getPublishPlans(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name:        "get_publish_plans",
			Description: "List the project's publish plans: named, ordered selections of elements for export.",
			InputSchema: schema(map[string]any{
				"project": projectProp(),
			}, "project"),
		},
		perms: []auth.Permission{auth.PermReadProject},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project string `json:"project"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return mcp.ErrorResult("invalid arguments"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermReadProject)
			if res != nil {
				return res, nil
			}
			plans, err := deps.Engine.PublishPlans(ctx, document.PublishPlansDoc(owner, slug))
			if err != nil {
				return mcp.ErrorResultf("read publish plans failed: %v", err), nil
			}
			return mcp.TextResult(pretty(plans)), nil
		},
	}
}
