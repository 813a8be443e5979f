package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
)

// routeWorldbuildingFields splits an update into the identity and
// worldbuilding namespaces. "description" and "image" are identity fields,
// as is any key written with an explicit "identity." prefix (the prefix is
// stripped). Everything else is a custom worldbuilding field.
func routeWorldbuildingFields(fields map[string]string) (identity, custom map[string]string) {
	identity = map[string]string{}
	custom = map[string]string{}
	for k, v := range fields {
		switch {
		case k == "description" || k == "image":
			identity[k] = v
		case strings.HasPrefix(k, "identity."):
			identity[strings.TrimPrefix(k, "identity.")] = v
		default:
			custom[k] = v
		}
	}
	return identity, custom
}

func updateWorldbuilding(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "update_worldbuilding",
			Description: "Merge fields into a worldbuilding entry. description, image, and identity.* " +
				"keys go to the identity namespace; everything else becomes a custom worldbuilding field.",
			InputSchema: schema(map[string]any{
				"project":   projectProp(),
				"elementId": prop("string", "The worldbuilding element to update"),
				"fields": map[string]any{
					"type":        "object",
					"description": "Field values to merge",
					"additionalProperties": map[string]any{
						"type": "string",
					},
				},
			}, "project", "elementId", "fields"),
		},
		perms: []auth.Permission{auth.PermWriteWorldbuilding},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project   string            `json:"project"`
				ElementID string            `json:"elementId"`
				Fields    map[string]string `json:"fields"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.ElementID == "" {
				return mcp.ErrorResult("elementId is required"), nil
			}
			if len(in.Fields) == 0 {
				return mcp.ErrorResult("fields is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteWorldbuilding)
			if res != nil {
				return res, nil
			}

			docID := document.WorldbuildingDoc(owner, slug, in.ElementID)
			identity, custom := routeWorldbuildingFields(in.Fields)
			if len(identity) > 0 {
				if err := deps.Engine.SetFields(ctx, docID, document.NamespaceIdentity, identity); err != nil {
					return mcp.ErrorResultf("write identity fields failed: %v", err), nil
				}
			}
			if len(custom) > 0 {
				if err := deps.Engine.SetFields(ctx, docID, document.NamespaceWorldbuilding, custom); err != nil {
					return mcp.ErrorResultf("write worldbuilding fields failed: %v", err), nil
				}
			}
			return mcp.TextResult(fmt.Sprintf("Updated %d field(s) on %s", len(in.Fields), in.ElementID)), nil
		},
	}
}
