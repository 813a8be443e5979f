package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
)

func createSnapshot(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "create_snapshot",
			Description: "Record a named snapshot marker for the project. Restoring snapshots is done " +
				"from the workspace client, not through this server.",
			InputSchema: schema(map[string]any{
				"project": projectProp(),
				"name":    prop("string", "Snapshot name"),
				"note":    prop("string", "Optional note"),
			}, "project", "name"),
		},
		perms: []auth.Permission{auth.PermWriteElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project string `json:"project"`
				Name    string `json:"name"`
				Note    string `json:"note"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Name == "" {
				return mcp.ErrorResult("name is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteElements)
			if res != nil {
				return res, nil
			}

			createdBy := ""
			switch {
			case rc.OAuth != nil:
				createdBy = rc.OAuth.Username
			case rc.Legacy != nil:
				createdBy = "key:" + rc.Legacy.KeyPrefix
			}
			snap := document.Snapshot{
				ID:        uuid.NewString(),
				Name:      in.Name,
				Note:      in.Note,
				CreatedAt: time.Now().UTC(),
				CreatedBy: createdBy,
			}
			if err := deps.Engine.AppendSnapshot(ctx, document.SnapshotsDoc(owner, slug), snap); err != nil {
				return mcp.ErrorResultf("write snapshot failed: %v", err), nil
			}
			return mcp.TextResult(pretty(snap)), nil
		},
	}
}
