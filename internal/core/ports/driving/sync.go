package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/kbsync/internal/core/domain"
)

// SyncOrchestrator coordinates entry synchronisation from sources into
// the document index.
type SyncOrchestrator interface {
	// Sync runs one pass over a single source.
	// Returns ErrSyncInProgress if a run is already in flight.
	Sync(ctx context.Context, sourceID string) (*domain.RunSummary, error)

	// SyncAll runs one pass over all configured sources.
	// Returns ErrSyncInProgress if a run is already in flight.
	SyncAll(ctx context.Context) (*domain.RunSummary, error)

	// Status reports the state of the current (or last) run.
	Status(ctx context.Context) (*RunStatus, error)
}

// RunStatus is a live snapshot of the orchestrator.
type RunStatus struct {
	// Running indicates a run is currently in progress.
	Running bool

	// RunID identifies the current or most recent run.
	RunID string

	// Processed, Uploaded, Skipped and Failed are the counters so far.
	Processed int
	Uploaded  int
	Skipped   int
	Failed    int

	// StartedAt is when the current or most recent run began.
	StartedAt time.Time
}
