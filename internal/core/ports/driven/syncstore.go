package driven

import (
	"context"

	"github.com/custodia-labs/kbsync/internal/core/domain"
)

// SyncStateStore persists sync progress.
type SyncStateStore interface {
	// Save stores or updates sync state.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves sync state for a source.
	Get(ctx context.Context, sourceID string) (*domain.SyncState, error)

	// Delete removes sync state for a source.
	Delete(ctx context.Context, sourceID string) error
}

// EntryStateStore persists per-entry sync status for sources whose own
// schema cannot hold it. It mirrors what WriteStatus would put on the
// source: hash, index ref, outcome, error, indexed-at.
type EntryStateStore interface {
	// Save stores or updates entry state.
	Save(ctx context.Context, state domain.EntryState) error

	// Get retrieves entry state. Returns ErrNotFound if absent.
	Get(ctx context.Context, sourceID, entryID string) (*domain.EntryState, error)

	// ListBySource returns all entry state for a source.
	ListBySource(ctx context.Context, sourceID string) ([]domain.EntryState, error)

	// Delete removes entry state.
	Delete(ctx context.Context, sourceID, entryID string) error
}
