package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kbsync/internal/core/domain"
	"github.com/custodia-labs/kbsync/internal/core/ports/driven"
	"github.com/custodia-labs/kbsync/internal/core/ports/driving"
	"github.com/custodia-labs/kbsync/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncOrchestrator coordinates entry synchronisation. Entries are
// processed strictly sequentially; a failure on one entry never aborts
// processing of subsequent entries.
type SyncOrchestrator struct {
	sourceStore driven.SourceStore
	syncStore   driven.SyncStateStore
	factory     driven.ConnectorFactory
	index       driven.DocumentIndex

	// Single-run guard. A trigger that arrives while a run is in
	// flight no-ops with ErrSyncInProgress instead of queueing.
	mu      sync.Mutex
	running bool
	status  driving.RunStatus
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(
	sourceStore driven.SourceStore,
	syncStore driven.SyncStateStore,
	factory driven.ConnectorFactory,
	index driven.DocumentIndex,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		sourceStore: sourceStore,
		syncStore:   syncStore,
		factory:     factory,
		index:       index,
	}
}

// Sync runs one pass over a single source.
func (o *SyncOrchestrator) Sync(ctx context.Context, sourceID string) (*domain.RunSummary, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	source, err := o.sourceStore.Get(ctx, sourceID)
	if err != nil {
		return o.summary(), fmt.Errorf("get source: %w", err)
	}

	err = o.syncSource(ctx, source)
	return o.summary(), err
}

// SyncAll runs one pass over all configured sources. A source-level
// failure (bad credentials, unreachable API) is recorded and the run
// moves on to the next source.
func (o *SyncOrchestrator) SyncAll(ctx context.Context) (*domain.RunSummary, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	sources, err := o.sourceStore.List(ctx)
	if err != nil {
		return o.summary(), fmt.Errorf("list sources: %w", err)
	}

	var errs []error
	for i := range sources {
		if err := o.syncSource(ctx, &sources[i]); err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", sources[i].ID, err))
		}
	}

	if len(errs) > 0 {
		return o.summary(), errors.Join(errs...)
	}
	return o.summary(), nil
}

// Status reports the state of the current (or last) run.
func (o *SyncOrchestrator) Status(_ context.Context) (*driving.RunStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot := o.status
	return &snapshot, nil
}

// begin acquires the single-run guard and resets the run counters.
func (o *SyncOrchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return domain.ErrSyncInProgress
	}
	o.running = true
	o.status = driving.RunStatus{
		Running:   true,
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	return nil
}

// end releases the single-run guard.
func (o *SyncOrchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
	o.status.Running = false
}

// bump applies a counter update under the guard mutex.
func (o *SyncOrchestrator) bump(fn func(*driving.RunStatus)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.status)
}

// summary materialises the current counters as a RunSummary.
func (o *SyncOrchestrator) summary() *domain.RunSummary {
	o.mu.Lock()
	defer o.mu.Unlock()

	return &domain.RunSummary{
		RunID:     o.status.RunID,
		Processed: o.status.Processed,
		Uploaded:  o.status.Uploaded,
		Skipped:   o.status.Skipped,
		Failed:    o.status.Failed,
		StartedAt: o.status.StartedAt,
		EndedAt:   time.Now(),
	}
}

// syncSource runs the pipeline for one source. The returned error is
// source-fatal (connector creation, validation, listing machinery);
// per-entry failures are absorbed into the counters.
func (o *SyncOrchestrator) syncSource(ctx context.Context, source *domain.Source) error {
	if o.factory == nil {
		return fmt.Errorf("create connector: connector factory not configured")
	}
	connector, err := o.factory.Create(ctx, *source)
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	defer connector.Close()

	caps := connector.Capabilities()
	if caps.SupportsValidation {
		if err := connector.Validate(ctx); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
		}
	}

	// Preflight the status schema once per run. A failed preflight is
	// not fatal: sync proceeds and status writes are skipped.
	schema, err := connector.Discover(ctx)
	if err != nil {
		logger.Warn("schema preflight failed for %s: %v", source.ID, err)
	} else if !schema.Writable() {
		logger.Debug("source %s has no writable status fields", source.ID)
	}

	since := o.changedSince(ctx, source, caps)

	startedAt := time.Now()
	logger.Info("Starting sync for source %s", source.ID)

	entriesCh, errsCh := connector.ListEntries(ctx, since)
	newCursor, err := o.processEntries(ctx, connector, entriesCh, errsCh)
	if err != nil {
		return err
	}

	newState := domain.SyncState{
		SourceID: source.ID,
		Cursor:   newCursor,
		LastSync: startedAt,
	}
	if err := o.syncStore.Save(ctx, newState); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}

	return nil
}

// changedSince resolves the optional listing filter. Only sources that
// opted into incremental listing and whose connector supports it get a
// since time; everything else lists in full so that unchanged entries
// are still counted as skipped.
func (o *SyncOrchestrator) changedSince(
	ctx context.Context,
	source *domain.Source,
	caps driven.ConnectorCapabilities,
) *time.Time {
	if !caps.SupportsChangedSince || !source.Incremental() {
		return nil
	}

	state, err := o.syncStore.Get(ctx, source.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("get sync state for %s: %v", source.ID, err)
		}
		return nil
	}
	if state.LastSync.IsZero() {
		return nil
	}
	since := state.LastSync
	return &since
}

// processEntries drains the listing channels, applying the per-entry
// state machine. Returns the new cursor from SyncComplete when the
// connector provides one.
func (o *SyncOrchestrator) processEntries(
	ctx context.Context,
	connector driven.Connector,
	entriesCh <-chan domain.Entry,
	errsCh <-chan error,
) (string, error) {
	var newCursor string

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			if sc, isComplete := driven.IsSyncComplete(err); isComplete {
				newCursor = sc.NewCursor
				continue
			}
			if ee, isEntry := driven.IsEntryError(err); isEntry {
				// Unrenderable entry: count it failed, record the
				// error on the source, keep listing.
				o.bump(func(s *driving.RunStatus) { s.Processed++; s.Failed++ })
				logger.Debug("Failed to render %s: %v", ee.Entry.ID, ee.Err)
				o.writeStatus(ctx, connector, &ee.Entry, domain.StatusPatch{
					Status: domain.SyncStatusError,
					Error:  ee.Err.Error(),
				})
				continue
			}
			if err != nil {
				return "", fmt.Errorf("connector error: %w", err)
			}

		case entry, ok := <-entriesCh:
			if !ok {
				return newCursor, nil // Done - channel closed
			}
			o.processEntry(ctx, connector, &entry)
		}
	}
}

// processEntry applies the PENDING -> {SKIPPED | UPLOADING -> INDEXED |
// FAILED} state machine to a single entry.
func (o *SyncOrchestrator) processEntry(
	ctx context.Context,
	connector driven.Connector,
	entry *domain.Entry,
) {
	o.bump(func(s *driving.RunStatus) { s.Processed++ })

	// Disabled entries are skipped outright: no upload, no status
	// write, hash and index ref left byte-identical.
	if !entry.SyncEnabled {
		o.bump(func(s *driving.RunStatus) { s.Skipped++ })
		logger.Debug("Skipping %s: sync disabled", entry.ID)
		return
	}

	fingerprint := entry.Fingerprint()
	if fingerprint == entry.ContentHash && entry.IndexRef != "" {
		o.bump(func(s *driving.RunStatus) { s.Skipped++ })
		logger.Debug("Skipping %s: unchanged", entry.ID)
		return
	}

	logger.Debug("Uploading %s as %s", entry.ID, entry.Filename())
	indexRef, err := o.index.Upload(ctx, entry.Filename(), renderDocument(entry))
	if err != nil {
		o.bump(func(s *driving.RunStatus) { s.Failed++ })
		logger.Debug("Failed to upload %s: %v", entry.ID, err)
		o.writeStatus(ctx, connector, entry, domain.StatusPatch{
			Status: domain.SyncStatusError,
			Error:  err.Error(),
		})
		return
	}

	// Delete the stale copy only after the new upload succeeded, so
	// there is never a window with zero indexed copies.
	if entry.IndexRef != "" && entry.IndexRef != indexRef {
		if err := o.index.Delete(ctx, entry.IndexRef); err != nil {
			logger.Warn("delete stale index ref %s for %s: %v", entry.IndexRef, entry.ID, err)
		}
	}

	o.bump(func(s *driving.RunStatus) { s.Uploaded++ })
	o.writeStatus(ctx, connector, entry, domain.StatusPatch{
		ContentHash: fingerprint,
		IndexRef:    indexRef,
		Status:      domain.SyncStatusOK,
		IndexedAt:   time.Now(),
	})
}

// writeStatus is the best-effort side-write: a failure here is logged
// and never changes the sync outcome already counted.
func (o *SyncOrchestrator) writeStatus(
	ctx context.Context,
	connector driven.Connector,
	entry *domain.Entry,
	patch domain.StatusPatch,
) {
	if err := connector.WriteStatus(ctx, entry, patch); err != nil {
		logger.Warn("status write for %s failed: %v", entry.ID, err)
	}
}

// renderDocument produces the uploaded document bytes for an entry:
// a title heading, the canonical source URL when known, then the body.
// Bodies that already open with a top-level heading keep it as the
// document title instead of getting a second one.
func renderDocument(entry *domain.Entry) []byte {
	doc := ""
	if !strings.HasPrefix(entry.Body, "# ") {
		doc = "# " + entry.Title + "\n\n"
	}
	if entry.SourceURL != "" {
		doc += "Source: " + entry.SourceURL + "\n\n"
	}
	doc += entry.Body
	if len(doc) > 0 && doc[len(doc)-1] != '\n' {
		doc += "\n"
	}
	return []byte(doc)
}
