package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
)

// Server-side caps on search result counts.
const (
	maxElementResults       = 100
	maxWorldbuildingResults = 50
)

// score rates how well text matches query. Exact match scores 1.0,
// substring 0.8, and a partial word overlap 0.5 scaled by the fraction of
// query words found. A bare "*" query matches everything at 1.0. All
// comparisons are case-insensitive.
func score(query, text string) float64 {
	if query == "*" {
		return 1.0
	}
	q := strings.ToLower(strings.TrimSpace(query))
	t := strings.ToLower(text)
	if q == "" {
		return 0
	}
	if t == q {
		return 1.0
	}
	if strings.Contains(t, q) {
		return 0.8
	}
	words := strings.Fields(q)
	if len(words) == 0 {
		return 0
	}
	matched := 0
	for _, w := range words {
		if strings.Contains(t, w) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return 0.5 * float64(matched) / float64(len(words))
}

// best returns the highest score of query against any of the candidates.
func best(query string, candidates ...string) float64 {
	top := 0.0
	for _, c := range candidates {
		if s := score(query, c); s > top {
			top = s
		}
	}
	return top
}

type scored struct {
	Score float64 `json:"score"`
	Item  any     `json:"item"`
}

func sortScored(hits []scored) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
}

func searchElements(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "search_elements",
			Description: "Search project elements by name and metadata. Use * to list everything. " +
				"Results are scored and sorted best-first.",
			InputSchema: schema(map[string]any{
				"project": projectProp(),
				"query":   prop("string", "Search text, or * for all"),
				"type":    prop("string", "Restrict to one element type: FOLDER, ITEM, or WORLDBUILDING"),
				"limit":   prop("integer", "Maximum results, capped at 100. Defaults to 20."),
			}, "project", "query"),
		},
		perms: []auth.Permission{auth.PermReadElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project string `json:"project"`
				Query   string `json:"query"`
				Type    string `json:"type"`
				Limit   int    `json:"limit"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Query == "" {
				return mcp.ErrorResult("query is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermReadElements)
			if res != nil {
				return res, nil
			}
			limit := in.Limit
			if limit <= 0 {
				limit = 20
			}
			if limit > maxElementResults {
				limit = maxElementResults
			}

			els, err := deps.Engine.Elements(ctx, document.ElementsDoc(owner, slug))
			if err != nil {
				return mcp.ErrorResultf("read elements failed: %v", err), nil
			}

			hits := []scored{}
			for i := range els {
				el := els[i]
				if in.Type != "" && string(el.Type) != in.Type {
					continue
				}
				fields := []string{el.Name}
				for _, v := range el.Metadata {
					fields = append(fields, v)
				}
				if s := best(in.Query, fields...); s > 0 {
					hits = append(hits, scored{Score: s, Item: el})
				}
			}
			sortScored(hits)
			if len(hits) > limit {
				hits = hits[:limit]
			}
			return mcp.TextResult(pretty(hits)), nil
		},
	}
}

func searchWorldbuilding(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "search_worldbuilding",
			Description: "Search worldbuilding entries by name and field values. Use * to list everything. " +
				"Each entry appears at most once, at its best score.",
			InputSchema: schema(map[string]any{
				"project": projectProp(),
				"query":   prop("string", "Search text, or * for all"),
				"limit":   prop("integer", "Maximum results, capped at 50. Defaults to 20."),
			}, "project", "query"),
		},
		perms: []auth.Permission{auth.PermReadWorldbuilding},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project string `json:"project"`
				Query   string `json:"query"`
				Limit   int    `json:"limit"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Query == "" {
				return mcp.ErrorResult("query is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermReadWorldbuilding)
			if res != nil {
				return res, nil
			}
			limit := in.Limit
			if limit <= 0 {
				limit = 20
			}
			if limit > maxWorldbuildingResults {
				limit = maxWorldbuildingResults
			}

			els, err := deps.Engine.Elements(ctx, document.ElementsDoc(owner, slug))
			if err != nil {
				return mcp.ErrorResultf("read elements failed: %v", err), nil
			}

			hits := []scored{}
			for i := range els {
				el := els[i]
				if el.Type != document.ElementTypeWorldbuilding {
					continue
				}
				fields := []string{el.Name}
				docID := document.WorldbuildingDoc(owner, slug, el.ID)
				for _, ns := range []string{document.NamespaceIdentity, document.NamespaceWorldbuilding} {
					kv, err := deps.Engine.Fields(ctx, docID, ns)
					if err != nil {
						continue
					}
					for _, v := range kv {
						fields = append(fields, v)
					}
				}
				if s := best(in.Query, fields...); s > 0 {
					hits = append(hits, scored{Score: s, Item: map[string]any{
						"id":   el.ID,
						"name": el.Name,
					}})
				}
			}
			sortScored(hits)
			if len(hits) > limit {
				hits = hits[:limit]
			}
			return mcp.TextResult(pretty(hits)), nil
		},
	}
}

func searchRelationships(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "search_relationships",
			Description: "Search relationships by note and type, optionally restricted to those " +
				"involving one element. Omit query to list all matches.",
			InputSchema: schema(map[string]any{
				"project":   projectProp(),
				"query":     prop("string", "Search text matched against note and relationship type"),
				"elementId": prop("string", "Only relationships where this element is source or target"),
			}, "project"),
		},
		perms: []auth.Permission{auth.PermReadWorldbuilding},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project   string `json:"project"`
				Query     string `json:"query"`
				ElementID string `json:"elementId"`
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

			hits := []scored{}
			for _, r := range rels {
				if in.ElementID != "" && r.SourceElementID != in.ElementID && r.TargetElementID != in.ElementID {
					continue
				}
				s := 1.0
				if in.Query != "" {
					s = best(in.Query, r.Note, r.RelationshipTypeID)
				}
				if s > 0 {
					hits = append(hits, scored{Score: s, Item: r})
				}
			}
			sortScored(hits)
			return mcp.TextResult(pretty(hits)), nil
		},
	}
}
