package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/imagegen"
	"github.com/inkweld/mcp-server/internal/mcp"
)

// Project metadata field holding the cover image URL.
const coverImageField = "coverImage"

// generateAndStore runs one generation call and saves the result to blob
// storage. Documents only ever reference the returned URL; image bytes are
// never written into a document.
func generateAndStore(ctx context.Context, deps Deps, owner, slug, prompt, profile string) (string, error) {
	img, err := deps.Images.Generate(ctx, imagegen.Request{Prompt: prompt, Profile: profile})
	if err != nil {
		return "", fmt.Errorf("image generation failed: %w", err)
	}
	key := fmt.Sprintf("images/%s/%s/%s.png", owner, slug, uuid.NewString())
	url, err := deps.Blobs.Put(ctx, key, img.Data, img.MimeType)
	if err != nil {
		return "", fmt.Errorf("store image failed: %w", err)
	}
	return url, nil
}

// writeElementImage writes the image URL into the element's identity fields.
// The blob is written before this call; a failure here is surfaced so the
// client knows the document does not reference the new image.
func writeElementImage(ctx context.Context, deps Deps, owner, slug, elementID, url string) error {
	els, err := deps.Engine.Elements(ctx, document.ElementsDoc(owner, slug))
	if err != nil {
		return fmt.Errorf("read elements failed: %w", err)
	}
	found := false
	for i := range els {
		if els[i].ID == elementID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("element %s not found", elementID)
	}
	docID := document.WorldbuildingDoc(owner, slug, elementID)
	if err := deps.Engine.SetFields(ctx, docID, document.NamespaceIdentity, map[string]string{"image": url}); err != nil {
		deps.Logger.Error("element image write failed after blob save",
			zap.String("project", owner+"/"+slug),
			zap.String("element_id", elementID),
			zap.Error(err))
		return fmt.Errorf("write element image failed: %w", err)
	}
	return nil
}

// writeProjectCover records the cover URL in the project metadata document
// so every connected client observes the change.
func writeProjectCover(ctx context.Context, deps Deps, owner, slug, url string) error {
	docID := document.MetadataDoc(owner, slug)
	if err := deps.Engine.SetFields(ctx, docID, document.NamespaceMetadata, map[string]string{coverImageField: url}); err != nil {
		deps.Logger.Error("project cover write failed after blob save",
			zap.String("project", owner+"/"+slug),
			zap.Error(err))
		return fmt.Errorf("write project cover failed: %w", err)
	}
	return nil
}

func generateImage(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "generate_image",
			Description: "Generate an image from a prompt and store it. Returns the stored image URL; " +
				"use set_element_image or set_project_cover to attach it.",
			InputSchema: schema(map[string]any{
				"project": projectProp(),
				"prompt":  prop("string", "Image generation prompt"),
				"profile": prop("string", "Optional provider profile, e.g. 1024x1024"),
			}, "project", "prompt"),
		},
		perms: []auth.Permission{auth.PermGenerateImages},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project string `json:"project"`
				Prompt  string `json:"prompt"`
				Profile string `json:"profile"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Prompt == "" {
				return mcp.ErrorResult("prompt is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermGenerateImages)
			if res != nil {
				return res, nil
			}

			url, err := generateAndStore(ctx, deps, owner, slug, in.Prompt, in.Profile)
			if err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}
			result := mcp.TextResult("Generated image: " + url)
			result.StructuredContent = map[string]string{"url": url}
			return result, nil
		},
	}
}

func setElementImage(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name:        "set_element_image",
			Description: "Attach an already-stored image URL to a worldbuilding element.",
			InputSchema: schema(map[string]any{
				"project":   projectProp(),
				"elementId": prop("string", "The element to attach the image to"),
				"imageUrl":  prop("string", "The stored image URL"),
			}, "project", "elementId", "imageUrl"),
		},
		perms: []auth.Permission{auth.PermWriteWorldbuilding},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project   string `json:"project"`
				ElementID string `json:"elementId"`
				ImageURL  string `json:"imageUrl"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.ElementID == "" || in.ImageURL == "" {
				return mcp.ErrorResult("elementId and imageUrl are required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteWorldbuilding)
			if res != nil {
				return res, nil
			}

			if err := writeElementImage(ctx, deps, owner, slug, in.ElementID, in.ImageURL); err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}
			return mcp.TextResult(fmt.Sprintf("Set image on element %s", in.ElementID)), nil
		},
	}
}

func generateAndSetElementImage(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name:        "generate_and_set_element_image",
			Description: "Generate an image from a prompt, store it, and attach it to a worldbuilding element in one call.",
			InputSchema: schema(map[string]any{
				"project":   projectProp(),
				"elementId": prop("string", "The element to attach the image to"),
				"prompt":    prop("string", "Image generation prompt"),
				"profile":   prop("string", "Optional provider profile"),
			}, "project", "elementId", "prompt"),
		},
		perms: []auth.Permission{auth.PermGenerateImages},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project   string `json:"project"`
				ElementID string `json:"elementId"`
				Prompt    string `json:"prompt"`
				Profile   string `json:"profile"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.ElementID == "" || in.Prompt == "" {
				return mcp.ErrorResult("elementId and prompt are required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermGenerateImages)
			if res != nil {
				return res, nil
			}
			if _, err := rc.RequireProjectPermission(owner, slug, auth.PermWriteWorldbuilding); err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}

			url, err := generateAndStore(ctx, deps, owner, slug, in.Prompt, in.Profile)
			if err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}
			if err := writeElementImage(ctx, deps, owner, slug, in.ElementID, url); err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}
			result := mcp.TextResult(fmt.Sprintf("Set generated image on element %s: %s", in.ElementID, url))
			result.StructuredContent = map[string]string{"url": url}
			return result, nil
		},
	}
}

func setProjectCover(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name:        "set_project_cover",
			Description: "Set the project cover to an already-stored image URL.",
			InputSchema: schema(map[string]any{
				"project":  projectProp(),
				"imageUrl": prop("string", "The stored image URL"),
			}, "project", "imageUrl"),
		},
		perms: []auth.Permission{auth.PermWriteElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project  string `json:"project"`
				ImageURL string `json:"imageUrl"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.ImageURL == "" {
				return mcp.ErrorResult("imageUrl is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteElements)
			if res != nil {
				return res, nil
			}

			if err := writeProjectCover(ctx, deps, owner, slug, in.ImageURL); err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}
			return mcp.TextResult("Set project cover"), nil
		},
	}
}

func generateProjectCover(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name:        "generate_project_cover",
			Description: "Generate a cover image from a prompt, store it, and set it as the project cover in one call.",
			InputSchema: schema(map[string]any{
				"project": projectProp(),
				"prompt":  prop("string", "Image generation prompt"),
				"profile": prop("string", "Optional provider profile"),
			}, "project", "prompt"),
		},
		perms: []auth.Permission{auth.PermGenerateImages},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project string `json:"project"`
				Prompt  string `json:"prompt"`
				Profile string `json:"profile"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Prompt == "" {
				return mcp.ErrorResult("prompt is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermGenerateImages)
			if res != nil {
				return res, nil
			}
			if _, err := rc.RequireProjectPermission(owner, slug, auth.PermWriteElements); err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}

			url, err := generateAndStore(ctx, deps, owner, slug, in.Prompt, in.Profile)
			if err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}
			if err := writeProjectCover(ctx, deps, owner, slug, url); err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}
			result := mcp.TextResult("Set generated project cover: " + url)
			result.StructuredContent = map[string]string{"url": url}
			return result, nil
		},
	}
}
