package domain

import "time"

// Source represents a configured content source.
// Each source produces entries via a connector.
type Source struct {
	// ID is the unique identifier for the source.
	ID string

	// Type identifies the connector type (e.g., "notion", "filesystem").
	Type string

	// Name is the human-readable name for this source.
	Name string

	// Config contains connector-specific configuration.
	// For notion: "database_ids" (comma-separated), "incremental".
	// For filesystem: "root", "extensions".
	Config map[string]string

	// CreatedAt is when the source was created.
	CreatedAt time.Time

	// UpdatedAt is when the source was last updated.
	UpdatedAt time.Time
}

// Incremental reports whether this source opted into changed-since
// listing. Incremental sources only list entries edited after the last
// recorded sync, trading exact skip counts for fewer API calls.
func (s *Source) Incremental() bool {
	return s.Config["incremental"] == "true"
}

// SyncState tracks the synchronisation progress for a source.
type SyncState struct {
	// SourceID links to the Source being synced.
	SourceID string

	// Cursor is an opaque token for changed-since listing.
	Cursor string

	// LastSync is when the last successful sync completed.
	LastSync time.Time
}
