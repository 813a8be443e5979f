package document

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a document or entry does not exist.
var ErrNotFound = errors.New("document not found")

// Engine is the transactional surface the tools consume. Every mutating
// call is atomic with respect to other clients of the same document:
// implementations apply the whole change in one transaction so replicas
// observe either the old or the new state, never a partial write.
type Engine interface {
	// Elements reads the full element array of a project.
	Elements(ctx context.Context, docID string) ([]Element, error)
	// ReplaceElements writes the full element array in one transaction.
	ReplaceElements(ctx context.Context, docID string, els []Element) error

	// Relationships reads the relationship list.
	Relationships(ctx context.Context, docID string) ([]Relationship, error)
	// AppendRelationship appends a single relationship without rewriting
	// the rest of the list.
	AppendRelationship(ctx context.Context, docID string, rel Relationship) error
	// DeleteRelationship removes one relationship by id. It returns
	// ErrNotFound when no relationship carries that id.
	DeleteRelationship(ctx context.Context, docID, relID string) error

	// Fields reads one namespace of a key/value document (worldbuilding
	// entries, project metadata).
	Fields(ctx context.Context, docID, namespace string) (map[string]string, error)
	// SetFields merges the given fields into one namespace in a single
	// transaction. A nil map value is not permitted; empty strings are
	// stored as-is.
	SetFields(ctx context.Context, docID, namespace string, fields map[string]string) error

	// Content reads a prose document's ProseMirror XML payload.
	Content(ctx context.Context, docID string) (string, error)

	// Schemas reads the element schema list.
	Schemas(ctx context.Context, docID string) ([]Schema, error)

	// Snapshots reads the snapshot list; AppendSnapshot adds one entry.
	Snapshots(ctx context.Context, docID string) ([]Snapshot, error)
	AppendSnapshot(ctx context.Context, docID string, snap Snapshot) error

	// PublishPlans reads the publish plan list.
	PublishPlans(ctx context.Context, docID string) ([]PublishPlan, error)
}

// Document id naming. A document id has the shape "{owner}:{slug}:{suffix}/".
// The trailing slash is part of the engine's room naming convention and is
// preserved everywhere.

func docID(owner, slug, suffix string) string {
	return fmt.Sprintf("%s:%s:%s/", owner, slug, suffix)
}

// ElementsDoc is the id of the element-tree document.
func ElementsDoc(owner, slug string) string { return docID(owner, slug, "elements") }

// RelationshipsDoc is the id of the relationship-list document.
func RelationshipsDoc(owner, slug string) string { return docID(owner, slug, "relationships") }

// MetadataDoc is the id of the project metadata document.
func MetadataDoc(owner, slug string) string { return docID(owner, slug, "metadata") }

// SchemasDoc is the id of the schema-list document.
func SchemasDoc(owner, slug string) string { return docID(owner, slug, "schemas") }

// SnapshotsDoc is the id of the snapshot-list document.
func SnapshotsDoc(owner, slug string) string { return docID(owner, slug, "snapshots") }

// PublishPlansDoc is the id of the publish-plan document.
func PublishPlansDoc(owner, slug string) string { return docID(owner, slug, "publish-plans") }

// ContentDoc is the id of one element's prose document.
func ContentDoc(owner, slug, elementID string) string {
	return docID(owner, slug, "doc:"+elementID)
}

// WorldbuildingDoc is the id of one worldbuilding element's field document.
func WorldbuildingDoc(owner, slug, elementID string) string {
	return docID(owner, slug, "wb:"+elementID)
}

type authTokenKey struct{}

// WithAuthToken returns a context carrying the caller's bearer token so a
// remote engine can forward it to the document service.
func WithAuthToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, authTokenKey{}, token)
}

// AuthToken extracts the token stored by WithAuthToken, or "".
func AuthToken(ctx context.Context) string {
	tok, _ := ctx.Value(authTokenKey{}).(string)
	return tok
}
