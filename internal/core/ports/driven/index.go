package driven

import "context"

// DocumentIndex is the external semantic index that rendered entry
// documents are uploaded into.
type DocumentIndex interface {
	// Ensure returns the index id, creating the index with a fixed
	// default name when none is configured.
	Ensure(ctx context.Context) (string, error)

	// Upload pushes a named document into the index and blocks until
	// the index reports the upload as fully processed, bounded by the
	// adapter's configured wait timeout. Returns the new stable
	// reference id for the uploaded document.
	Upload(ctx context.Context, filename string, content []byte) (string, error)

	// Delete removes a previously uploaded document by reference.
	// Best-effort from the caller's point of view: failing to delete
	// a stale copy never fails the sync of the new one.
	Delete(ctx context.Context, indexRef string) error

	// Close releases resources.
	Close() error
}
