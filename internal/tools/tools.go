// Package tools implements the canonical MCP tool set: project discovery,
// element-tree mutation, worldbuilding updates, relationships, snapshots,
// and image generation. Tool failures are reported as isError results;
// JSON-RPC errors are reserved for malformed or unauthorized calls.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/blob"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/imagegen"
	"github.com/inkweld/mcp-server/internal/mcp"
	"github.com/inkweld/mcp-server/pkg/inkuri"
)

// Deps bundles the external collaborators the tools call into.
type Deps struct {
	Engine document.Engine
	Blobs  blob.Store
	Images imagegen.Provider
	Logger *zap.Logger
}

// Register adds every tool to the registry in its canonical order. All
// tools must be registered before the transport starts.
func Register(reg *mcp.Registry, deps Deps) {
	for _, t := range []mcp.ToolHandler{
		getProjectTree(deps),
		searchElements(deps),
		searchWorldbuilding(deps),
		searchRelationships(deps),
		getElementFull(deps),
		getDocumentContent(deps),
		getRelationshipsGraph(deps),
		getProjectMetadata(deps),
		getPublishPlans(deps),
		createElement(deps),
		replaceAllElements(deps),
		updateElement(deps),
		deleteElement(deps),
		moveElements(deps),
		reorderElement(deps),
		sortElements(deps),
		tagElement(deps),
		updateWorldbuilding(deps),
		createRelationship(deps),
		deleteRelationship(deps),
		createSnapshot(deps),
		generateImage(deps),
		setElementImage(deps),
		generateAndSetElementImage(deps),
		setProjectCover(deps),
		generateProjectCover(deps),
	} {
		reg.AddTool(t)
	}
}

// tool adapts a descriptor, a permission set, and a run function into a
// mcp.ToolHandler. Every tool in this package is built this way.
type tool struct {
	desc  mcp.Tool
	perms []auth.Permission
	run   func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error)
}

func (t *tool) Descriptor() mcp.Tool                   { return t.desc }
func (t *tool) RequiredPermissions() []auth.Permission { return t.perms }

func (t *tool) Execute(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
	return t.run(ctx, rc, args)
}

// schema builds an object input schema from its properties.
func schema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// prop builds one schema property.
func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

// projectProp is the shared "project" argument every project-scoped tool
// takes.
func projectProp() map[string]any {
	return prop("string", "Project reference in owner/slug form, e.g. alice/novel")
}

// requireProject parses the owner/slug reference and enforces the
// per-project permission. A non-nil result is the failure to return to the
// client.
func requireProject(rc *auth.RequestContext, project string, p auth.Permission) (owner, slug string, res *mcp.ToolResult) {
	if project == "" {
		return "", "", mcp.ErrorResult("project is required")
	}
	owner, slug, err := inkuri.SplitProjectRef(project)
	if err != nil {
		return "", "", mcp.ErrorResult(err.Error())
	}
	if _, err := rc.RequireProjectPermission(owner, slug, p); err != nil {
		return "", "", mcp.ErrorResult(err.Error())
	}
	return owner, slug, nil
}

// pretty renders v as indented JSON for text results.
func pretty(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(out)
}
