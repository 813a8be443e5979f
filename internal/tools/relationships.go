package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
)

func createRelationship(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name:        "create_relationship",
			Description: "Create a typed relationship between two elements.",
			InputSchema: schema(map[string]any{
				"project":            projectProp(),
				"sourceElementId":    prop("string", "Source element id"),
				"targetElementId":    prop("string", "Target element id"),
				"relationshipTypeId": prop("string", "Relationship type id, e.g. ally-of"),
				"note":               prop("string", "Optional note on the edge"),
			}, "project", "sourceElementId", "targetElementId", "relationshipTypeId"),
		},
		perms: []auth.Permission{auth.PermWriteWorldbuilding},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project            string `json:"project"`
				SourceElementID    string `json:"sourceElementId"`
				TargetElementID    string `json:"targetElementId"`
				RelationshipTypeID string `json:"relationshipTypeId"`
				Note               string `json:"note"`
			}
			if err := json.Unmarshal(args, &in); err != nil ||
				in.SourceElementID == "" || in.TargetElementID == "" || in.RelationshipTypeID == "" {
				return mcp.ErrorResult("sourceElementId, targetElementId, and relationshipTypeId are required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteWorldbuilding)
			if res != nil {
				return res, nil
			}

			els, err := deps.Engine.Elements(ctx, document.ElementsDoc(owner, slug))
			if err != nil {
				return mcp.ErrorResultf("read elements failed: %v", err), nil
			}
			known := make(map[string]bool, len(els))
			for i := range els {
				known[els[i].ID] = true
			}
			for _, id := range []string{in.SourceElementID, in.TargetElementID} {
				if !known[id] {
					return mcp.ErrorResultf("element %s not found", id), nil
				}
			}

			now := time.Now().UTC()
			rel := document.Relationship{
				ID:                 uuid.NewString(),
				SourceElementID:    in.SourceElementID,
				TargetElementID:    in.TargetElementID,
				RelationshipTypeID: in.RelationshipTypeID,
				Note:               in.Note,
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			if err := deps.Engine.AppendRelationship(ctx, document.RelationshipsDoc(owner, slug), rel); err != nil {
				return mcp.ErrorResultf("write relationship failed: %v", err), nil
			}
			return mcp.TextResult(pretty(rel)), nil
		},
	}
}

func deleteRelationship(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name:        "delete_relationship",
			Description: "Delete one relationship by id.",
			InputSchema: schema(map[string]any{
				"project":        projectProp(),
				"relationshipId": prop("string", "The relationship to delete"),
			}, "project", "relationshipId"),
		},
		perms: []auth.Permission{auth.PermWriteWorldbuilding},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project        string `json:"project"`
				RelationshipID string `json:"relationshipId"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.RelationshipID == "" {
				return mcp.ErrorResult("relationshipId is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteWorldbuilding)
			if res != nil {
				return res, nil
			}

			err := deps.Engine.DeleteRelationship(ctx, document.RelationshipsDoc(owner, slug), in.RelationshipID)
			if errors.Is(err, document.ErrNotFound) {
				return mcp.ErrorResultf("relationship %s not found", in.RelationshipID), nil
			}
			if err != nil {
				return mcp.ErrorResultf("delete relationship failed: %v", err), nil
			}
			return mcp.TextResult(fmt.Sprintf("Deleted relationship %s", in.RelationshipID)), nil
		},
	}
}
