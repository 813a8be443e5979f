package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/mcp"
	"github.com/inkweld/mcp-server/internal/tree"
)

// optionalID turns a tool argument into the *string form the tree helpers
// take, where nil means the root.
func optionalID(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mutateElements runs a read-modify-write cycle against the element
// document: the whole array is read, transformed by fn, and written back in
// one transaction.
func mutateElements(ctx context.Context, deps Deps, owner, slug string,
	fn func(els []document.Element) ([]document.Element, error)) (*mcp.ToolResult, []document.Element) {

	docID := document.ElementsDoc(owner, slug)
	els, err := deps.Engine.Elements(ctx, docID)
	if err != nil {
		return mcp.ErrorResultf("read elements failed: %v", err), nil
	}
	next, err := fn(els)
	if err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}
	if err := deps.Engine.ReplaceElements(ctx, docID, next); err != nil {
		return mcp.ErrorResultf("write elements failed: %v", err), nil
	}
	return nil, next
}

func createElement(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "create_element",
			Description: "Create a new element. It is placed after afterSiblingId's subtree when given, " +
				"otherwise appended as the last child of parentId (or at the root).",
			InputSchema: schema(map[string]any{
				"project": projectProp(),
				"name":    prop("string", "Element name"),
				"type": map[string]any{
					"type":        "string",
					"description": "Element type",
					"enum":        []string{"FOLDER", "ITEM", "WORLDBUILDING"},
				},
				"parentId":       prop("string", "Parent element id. Omit for a root element."),
				"afterSiblingId": prop("string", "Sibling to insert after"),
				"schemaId":       prop("string", "Schema to attach, for typed elements"),
			}, "project", "name", "type"),
		},
		perms: []auth.Permission{auth.PermWriteElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project        string `json:"project"`
				Name           string `json:"name"`
				Type           string `json:"type"`
				ParentID       string `json:"parentId"`
				AfterSiblingID string `json:"afterSiblingId"`
				SchemaID       string `json:"schemaId"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Name == "" {
				return mcp.ErrorResult("name is required"), nil
			}
			typ := document.ElementType(in.Type)
			switch typ {
			case document.ElementTypeFolder, document.ElementTypeItem, document.ElementTypeWorldbuilding:
			default:
				return mcp.ErrorResultf("invalid element type %q", in.Type), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteElements)
			if res != nil {
				return res, nil
			}

			el := document.Element{
				ID:         uuid.NewString(),
				Name:       in.Name,
				Type:       typ,
				Expandable: typ == document.ElementTypeFolder,
				Version:    1,
				SchemaID:   optionalID(in.SchemaID),
			}
			errRes, _ := mutateElements(ctx, deps, owner, slug, func(els []document.Element) ([]document.Element, error) {
				return tree.Insert(els, el, optionalID(in.ParentID), optionalID(in.AfterSiblingID))
			})
			if errRes != nil {
				return errRes, nil
			}
			deps.Logger.Info("element created",
				zap.String("project", owner+"/"+slug),
				zap.String("element_id", el.ID),
				zap.String("type", in.Type))
			return mcp.TextResult(pretty(el)), nil
		},
	}
}

func replaceAllElements(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "replace_all_elements",
			Description: "Replace the entire element tree in one transaction. The array is normalized " +
				"before writing: order and parentId are recomputed from position and level. Destructive.",
			InputSchema: schema(map[string]any{
				"project": projectProp(),
				"elements": map[string]any{
					"type":        "array",
					"description": "The full element array in positional order",
					"items":       map[string]any{"type": "object"},
				},
			}, "project", "elements"),
		},
		perms: []auth.Permission{auth.PermWriteElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project  string             `json:"project"`
				Elements []document.Element `json:"elements"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return mcp.ErrorResult("invalid arguments: elements must be an array of element objects"), nil
			}
			if in.Elements == nil {
				return mcp.ErrorResult("elements is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteElements)
			if res != nil {
				return res, nil
			}

			next := tree.Normalize(in.Elements)
			if err := deps.Engine.ReplaceElements(ctx, document.ElementsDoc(owner, slug), next); err != nil {
				return mcp.ErrorResultf("write elements failed: %v", err), nil
			}
			return mcp.TextResult(fmt.Sprintf("Replaced element tree with %d elements", len(next))), nil
		},
	}
}

func updateElement(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name:        "update_element",
			Description: "Update an element's name, schema, or metadata fields. Omitted arguments are left unchanged.",
			InputSchema: schema(map[string]any{
				"project":   projectProp(),
				"elementId": prop("string", "The element to update"),
				"name":      prop("string", "New name"),
				"schemaId":  prop("string", "New schema id, or empty string to detach the schema"),
				"metadata": map[string]any{
					"type":        "object",
					"description": "Metadata fields to merge. A field with an empty value is removed.",
					"additionalProperties": map[string]any{
						"type": "string",
					},
				},
			}, "project", "elementId"),
		},
		perms: []auth.Permission{auth.PermWriteElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project   string            `json:"project"`
				ElementID string            `json:"elementId"`
				Name      *string           `json:"name"`
				SchemaID  *string           `json:"schemaId"`
				Metadata  map[string]string `json:"metadata"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.ElementID == "" {
				return mcp.ErrorResult("elementId is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteElements)
			if res != nil {
				return res, nil
			}

			var updated document.Element
			errRes, _ := mutateElements(ctx, deps, owner, slug, func(els []document.Element) ([]document.Element, error) {
				for i := range els {
					if els[i].ID != in.ElementID {
						continue
					}
					if in.Name != nil && *in.Name != "" {
						els[i].Name = *in.Name
					}
					if in.SchemaID != nil {
						els[i].SchemaID = optionalID(*in.SchemaID)
					}
					if len(in.Metadata) > 0 {
						if els[i].Metadata == nil {
							els[i].Metadata = map[string]string{}
						}
						for k, v := range in.Metadata {
							if v == "" {
								delete(els[i].Metadata, k)
							} else {
								els[i].Metadata[k] = v
							}
						}
					}
					els[i].Version++
					updated = els[i]
					return els, nil
				}
				return nil, fmt.Errorf("element %s not found", in.ElementID)
			})
			if errRes != nil {
				return errRes, nil
			}
			return mcp.TextResult(pretty(updated)), nil
		},
	}
}

func deleteElement(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name:        "delete_element",
			Description: "Delete an element and its whole subtree. Destructive.",
			InputSchema: schema(map[string]any{
				"project":   projectProp(),
				"elementId": prop("string", "The element to delete"),
			}, "project", "elementId"),
		},
		perms: []auth.Permission{auth.PermWriteElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project   string `json:"project"`
				ElementID string `json:"elementId"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.ElementID == "" {
				return mcp.ErrorResult("elementId is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteElements)
			if res != nil {
				return res, nil
			}

			errRes, _ := mutateElements(ctx, deps, owner, slug, func(els []document.Element) ([]document.Element, error) {
				return tree.Remove(els, in.ElementID)
			})
			if errRes != nil {
				return errRes, nil
			}
			return mcp.TextResult(fmt.Sprintf("Deleted element %s and its subtree", in.ElementID)), nil
		},
	}
}

func moveElements(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "move_elements",
			Description: "Move one or more elements (with their subtrees) under a new parent. " +
				"Moving an element into its own subtree is refused.",
			InputSchema: schema(map[string]any{
				"project": projectProp(),
				"elementIds": map[string]any{
					"type":        "array",
					"description": "Elements to move, in order",
					"items":       map[string]any{"type": "string"},
				},
				"newParentId":    prop("string", "Destination parent id. Omit to move to the root."),
				"afterSiblingId": prop("string", "Sibling to place the first moved element after"),
			}, "project", "elementIds"),
		},
		perms: []auth.Permission{auth.PermWriteElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project        string   `json:"project"`
				ElementIDs     []string `json:"elementIds"`
				NewParentID    string   `json:"newParentId"`
				AfterSiblingID string   `json:"afterSiblingId"`
			}
			if err := json.Unmarshal(args, &in); err != nil || len(in.ElementIDs) == 0 {
				return mcp.ErrorResult("elementIds is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteElements)
			if res != nil {
				return res, nil
			}

			errRes, _ := mutateElements(ctx, deps, owner, slug, func(els []document.Element) ([]document.Element, error) {
				after := optionalID(in.AfterSiblingID)
				for _, id := range in.ElementIDs {
					next, err := tree.Move(els, id, optionalID(in.NewParentID), after)
					if errors.Is(err, tree.ErrCycle) {
						return nil, fmt.Errorf("cannot move %s: %w", id, err)
					}
					if err != nil {
						return nil, err
					}
					els = next
					// Subsequent elements follow the one just moved.
					after = &id
				}
				return els, nil
			})
			if errRes != nil {
				return errRes, nil
			}
			return mcp.TextResult(fmt.Sprintf("Moved %d element(s)", len(in.ElementIDs))), nil
		},
	}
}

func reorderElement(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "reorder_element",
			Description: "Move an element to a new position among its siblings. " +
				"Position 0 is first; -1 or any position past the end means last.",
			InputSchema: schema(map[string]any{
				"project":   projectProp(),
				"elementId": prop("string", "The element to reorder"),
				"position":  prop("integer", "Target position among siblings"),
			}, "project", "elementId", "position"),
		},
		perms: []auth.Permission{auth.PermWriteElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project   string `json:"project"`
				ElementID string `json:"elementId"`
				Position  int    `json:"position"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.ElementID == "" {
				return mcp.ErrorResult("elementId is required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteElements)
			if res != nil {
				return res, nil
			}

			errRes, _ := mutateElements(ctx, deps, owner, slug, func(els []document.Element) ([]document.Element, error) {
				return tree.Reorder(els, in.ElementID, in.Position)
			})
			if errRes != nil {
				return errRes, nil
			}
			return mcp.TextResult(fmt.Sprintf("Reordered element %s", in.ElementID)), nil
		},
	}
}

func sortElements(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name: "sort_elements",
			Description: "Sort the children of a parent (or the root) by name. Folders can be kept " +
				"ahead of other elements; sorting can recurse into folders.",
			InputSchema: schema(map[string]any{
				"project":      projectProp(),
				"parentId":     prop("string", "Parent whose children to sort. Omit for the root level."),
				"foldersFirst": prop("boolean", "Place folders ahead of all other elements"),
				"descending":   prop("boolean", "Reverse the name comparison (folders-first still applies)"),
				"recursive":    prop("boolean", "Also sort inside every folder below the parent"),
			}, "project"),
		},
		perms: []auth.Permission{auth.PermWriteElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project      string `json:"project"`
				ParentID     string `json:"parentId"`
				FoldersFirst bool   `json:"foldersFirst"`
				Descending   bool   `json:"descending"`
				Recursive    bool   `json:"recursive"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return mcp.ErrorResult("invalid arguments"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteElements)
			if res != nil {
				return res, nil
			}

			errRes, _ := mutateElements(ctx, deps, owner, slug, func(els []document.Element) ([]document.Element, error) {
				return tree.SortChildren(els, optionalID(in.ParentID), tree.SortOptions{
					FoldersFirst: in.FoldersFirst,
					Descending:   in.Descending,
					Recursive:    in.Recursive,
				}), nil
			})
			if errRes != nil {
				return errRes, nil
			}
			return mcp.TextResult("Sorted"), nil
		},
	}
}

func tagElement(deps Deps) *tool {
	return &tool{
		desc: mcp.Tool{
			Name:        "tag_element",
			Description: "Set one metadata tag on an element. An empty value removes the tag.",
			InputSchema: schema(map[string]any{
				"project":   projectProp(),
				"elementId": prop("string", "The element to tag"),
				"key":       prop("string", "Tag key"),
				"value":     prop("string", "Tag value. Empty removes the tag."),
			}, "project", "elementId", "key"),
		},
		perms: []auth.Permission{auth.PermWriteElements},
		run: func(ctx context.Context, rc *auth.RequestContext, args json.RawMessage) (*mcp.ToolResult, error) {
			var in struct {
				Project   string `json:"project"`
				ElementID string `json:"elementId"`
				Key       string `json:"key"`
				Value     string `json:"value"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.ElementID == "" || in.Key == "" {
				return mcp.ErrorResult("elementId and key are required"), nil
			}
			owner, slug, res := requireProject(rc, in.Project, auth.PermWriteElements)
			if res != nil {
				return res, nil
			}

			errRes, _ := mutateElements(ctx, deps, owner, slug, func(els []document.Element) ([]document.Element, error) {
				for i := range els {
					if els[i].ID != in.ElementID {
						continue
					}
					if in.Value == "" {
						delete(els[i].Metadata, in.Key)
					} else {
						if els[i].Metadata == nil {
							els[i].Metadata = map[string]string{}
						}
						els[i].Metadata[in.Key] = in.Value
					}
					els[i].Version++
					return els, nil
				}
				return nil, fmt.Errorf("element %s not found", in.ElementID)
			})
			if errRes != nil {
				return errRes, nil
			}
			return mcp.TextResult(fmt.Sprintf("Tagged element %s", in.ElementID)), nil
		},
	}
}
