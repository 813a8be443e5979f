// Package document defines the workspace document model and the Engine
// interface the MCP tools use to read and mutate replicated documents.
//
// The engine itself (CRDT replication, merge, sync) lives outside this
// server; two implementations are provided here: a local SQLite-backed
// engine for single-node deployments and an HTTP client for a remote
// document service. Both expose the same transactional surface.
package document

import "time"

// ElementType enumerates the node kinds of a project tree.
type ElementType string

const (
	ElementTypeFolder        ElementType = "FOLDER"
	ElementTypeItem          ElementType = "ITEM"
	ElementTypeWorldbuilding ElementType = "WORLDBUILDING"
)

// Element is a node in a project's positional tree. The array holding
// elements encodes the hierarchy by position and level: a child appears
// immediately after its parent with level = parent.level + 1. ParentID is
// derived from position and kept consistent by the tree helpers.
type Element struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       ElementType       `json:"type"`
	ParentID   *string           `json:"parentId"`
	Order      int               `json:"order"`
	Level      int               `json:"level"`
	Expandable bool              `json:"expandable"`
	Version    int               `json:"version"`
	SchemaID   *string           `json:"schemaId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Relationship links two elements through a typed edge.
type Relationship struct {
	ID                 string    `json:"id"`
	SourceElementID    string    `json:"sourceElementId"`
	TargetElementID    string    `json:"targetElementId"`
	RelationshipTypeID string    `json:"relationshipTypeId"`
	Note               string    `json:"note,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Schema describes the metadata fields available to elements of a type.
type Schema struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Fields []SchemaField `json:"fields,omitempty"`
}

// SchemaField is one field definition within a schema.
type SchemaField struct {
	Key      string `json:"key"`
	Label    string `json:"label,omitempty"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// Snapshot is a named point-in-time marker recorded in the snapshots
// document. Restoring is a client concern; the server only appends.
type Snapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
}

// PublishPlan names an ordered selection of elements to export together.
type PublishPlan struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ElementIDs []string `json:"elementIds"`
	Format     string   `json:"format,omitempty"`
}

// Worldbuilding field namespaces. Description and image live in the
// identity namespace; every other custom field lives in the worldbuilding
// namespace.
const (
	NamespaceIdentity      = "identity"
	NamespaceWorldbuilding = "worldbuilding"
	NamespaceMetadata      = "metadata"
)
