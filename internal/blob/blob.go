// Package blob abstracts the object storage layer used for generated
// images. Only the operations the tools consume are modeled; bucket
// lifecycle and cleanup belong to the storage deployment.
package blob

import "context"

// Store persists binary blobs and returns stable URLs for them. Documents
// reference blobs by URL only; image bytes are never embedded in a
// document.
type Store interface {
	// Put writes data under key and returns the public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get reads a blob back by key.
	Get(ctx context.Context, key string) ([]byte, error)
}
