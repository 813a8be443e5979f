// Package prompts implements the built-in MCP prompt templates.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
	"github.com/inkweld/mcp-server/pkg/inkuri"
)

// Deps bundles what the prompt handlers need.
type Deps struct {
	Engine document.Engine
	Logger *zap.Logger
}

// Register adds the built-in prompts to the registry.
func Register(reg *mcp.Registry, deps Deps) {
	reg.AddPrompt(&SummarizeProject{deps})
}

// SummarizeProject produces a user message asking the model to summarize a
// project, seeded with the project's element tree.
type SummarizeProject struct {
	deps Deps
}

var _ mcp.PromptHandler = (*SummarizeProject)(nil)

func (p *SummarizeProject) Descriptor() mcp.Prompt {
	return mcp.Prompt{
		Name:        "summarize_project",
		Description: "Summarize a project's structure and content",
		Arguments: []mcp.PromptArgument{
			{Name: "project", Description: "Project reference in owner/slug form", Required: true},
		},
	}
}

func (p *SummarizeProject) GetPrompt(ctx context.Context, rc *auth.RequestContext, args map[string]string) (*mcp.GetPromptResult, error) {
	ref := args["project"]
	if ref == "" {
		return nil, mcp.NewError(mcp.CodeInvalidParams, "project argument is required")
	}
	owner, slug, err := inkuri.SplitProjectRef(ref)
	if err != nil {
		return nil, mcp.NewError(mcp.CodeInvalidParams, err.Error())
	}
	if _, err := rc.RequireProjectPermission(owner, slug, auth.PermReadElements); err != nil {
		return nil, mcp.NewError(mcp.CodeInvalidRequest, err.Error())
	}

	els, err := p.deps.Engine.Elements(ctx, document.ElementsDoc(owner, slug))
	if err != nil {
		return nil, fmt.Errorf("read elements: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the writing project %s/%s. Its element tree:\n\n", owner, slug)
	for i := range els {
		fmt.Fprintf(&b, "%s- %s (%s)\n", strings.Repeat("  ", els[i].Level), els[i].Name, els[i].Type)
	}
	b.WriteString("\nDescribe the project's structure, main threads, and apparent state of completion.")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Summary request for %s/%s", owner, slug),
		Messages: []mcp.PromptMessage{
			{Role: "user", Content: mcp.TextPart(b.String())},
		},
	}, nil
}
