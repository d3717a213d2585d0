package store

import "context"

// Key addresses one document in the store.
type Key struct {
	// Index is the index (table) holding the document.
	Index string

	// Type is the document type, normally the schema name.
	Type string

	// ID is the document id. Empty when asking the store to assign one.
	ID string
}

// Document is a document as returned by the store.
type Document struct {
	// ID is the store-assigned or caller-supplied id.
	ID string

	// Version is the store-managed version, bumped on every write.
	Version int64

	// Source holds the attribute fields plus created_at and updated_at,
	// in store representation.
	Source map[string]any
}

// Client performs the network calls against the document store.
//
// Implementations return ErrNotFound when the addressed document (or index) is
// absent and ErrVersionConflict when a version check rejects a write. Any other
// error is treated as a transport failure. Implementations must be safe for
// concurrent use.
type Client interface {
	// Get reads a document by id.
	Get(ctx context.Context, key Key) (*Document, error)

	// Index writes a whole document. If key.ID is empty the store assigns an id
	// and the write must not overwrite an existing document; otherwise the
	// document is created or replaced, keeping any stored created_at.
	Index(ctx context.Context, key Key, source map[string]any) (*Document, error)

	// Update merges fields into an existing document if its version still equals
	// expectedVersion. Fields not named are left untouched.
	Update(ctx context.Context, key Key, fields map[string]any, expectedVersion int64) (*Document, error)

	// Increment atomically adds by to a numeric field on the server, setting
	// fields in the same operation, and returns the document after the write.
	Increment(ctx context.Context, key Key, field string, by int64, fields map[string]any) (*Document, error)

	// Delete removes a document.
	Delete(ctx context.Context, key Key) error

	// IndexExists reports whether the named index exists.
	IndexExists(ctx context.Context, name string) (bool, error)

	// CreateIndex creates an index with the given settings and mapping.
	// Creating an index that already exists is not an error.
	CreateIndex(ctx context.Context, name string, settings, mapping map[string]any) error
}
