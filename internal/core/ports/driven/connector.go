package driven

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/kbsync/internal/core/domain"
)

// Connector reads entries from a content source and writes sync status
// back onto them. Each source type (notion, filesystem) implements this.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// SourceID returns the configured source ID.
	SourceID() string

	// Capabilities returns what this connector supports.
	Capabilities() ConnectorCapabilities

	// Validate checks the connector is properly configured and
	// authenticated. For API connectors this makes a test call; for
	// filesystem it checks the root exists and is readable.
	Validate(ctx context.Context) error

	// Discover performs the once-per-run schema preflight and returns
	// which status fields the source can accept. The connector caches
	// the result and omits absent fields on subsequent WriteStatus
	// calls instead of failing the whole write.
	Discover(ctx context.Context) (domain.StatusSchema, error)

	// ListEntries produces every entry of the source, paginating
	// transparently. When since is non-nil and the connector supports
	// changed-since listing, only entries edited on or after that time
	// are produced. Entries whose body cannot be rendered are reported
	// as EntryError on the error channel and do not stop the listing.
	// A SyncComplete sentinel with the new cursor is sent on the error
	// channel when the listing finishes.
	ListEntries(ctx context.Context, since *time.Time) (<-chan domain.Entry, <-chan error)

	// WriteStatus writes the sync outcome onto an entry. Best-effort:
	// fields the discovered schema lacks are silently omitted.
	WriteStatus(ctx context.Context, entry *domain.Entry, patch domain.StatusPatch) error

	// Watch listens for entry changes and emits affected entry ids.
	// Only available if SupportsWatch is true.
	Watch(ctx context.Context) (<-chan string, error)

	// Close releases resources.
	Close() error
}

// ConnectorCapabilities describes what a connector supports.
type ConnectorCapabilities struct {
	// SupportsChangedSince indicates ListEntries honours the since
	// filter instead of always listing everything.
	SupportsChangedSince bool

	// SupportsStatusWriteback indicates the source schema can hold
	// status fields; false means status goes to local entry state.
	SupportsStatusWriteback bool

	// SupportsWatch indicates the connector can push change events.
	SupportsWatch bool

	// RequiresAuth indicates the connector needs credentials.
	RequiresAuth bool

	// SupportsValidation indicates Validate() performs a real check.
	SupportsValidation bool

	// SupportsRateLimiting indicates the connector throttles its own
	// API calls. Informational.
	SupportsRateLimiting bool

	// SupportsPagination indicates the connector pages through the
	// source API internally. Informational.
	SupportsPagination bool
}

// SyncComplete is sent on the error channel when listing completes.
// Carries the new cursor for changed-since listing.
type SyncComplete struct {
	NewCursor string
}

// Error implements the error interface so SyncComplete can travel on
// the error channel.
func (SyncComplete) Error() string {
	return "sync complete"
}

// IsSyncComplete checks if an error is actually a successful completion.
func IsSyncComplete(err error) (*SyncComplete, bool) {
	var sc *SyncComplete
	if errors.As(err, &sc) {
		return sc, true
	}
	return nil, false
}

// EntryError reports a per-entry failure during listing (typically an
// unrenderable body). It is non-fatal: the orchestrator counts the
// entry as failed and the listing continues. Entry carries as much of
// the record as the connector managed to build, always including ID,
// so that a best-effort error status can still be written back.
type EntryError struct {
	Entry domain.Entry
	Err   error
}

// Error implements the error interface.
func (e *EntryError) Error() string {
	return "entry " + e.Entry.ID + ": " + e.Err.Error()
}

// Unwrap exposes the underlying cause.
func (e *EntryError) Unwrap() error {
	return e.Err
}

// IsEntryError checks if an error is a non-fatal per-entry failure.
func IsEntryError(err error) (*EntryError, bool) {
	var ee *EntryError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
