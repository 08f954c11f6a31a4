package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/kbsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/kbsync/internal/core/domain"
	"github.com/custodia-labs/kbsync/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all state store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.kbsync/data/state.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".kbsync", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "state.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SourceStore returns a SourceStore interface backed by this store.
func (s *Store) SourceStore() driven.SourceStore {
	return &sourceStore{store: s}
}

// SyncStateStore returns a SyncStateStore interface backed by this store.
func (s *Store) SyncStateStore() driven.SyncStateStore {
	return &syncStateStore{store: s}
}

// EntryStateStore returns an EntryStateStore interface backed by this store.
func (s *Store) EntryStateStore() driven.EntryStateStore {
	return &entryStateStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Source Store ====================

// sourceStore implements driven.SourceStore.
type sourceStore struct {
	store *Store
}

var _ driven.SourceStore = (*sourceStore)(nil)

// Save stores or updates a source.
func (s *sourceStore) Save(ctx context.Context, source domain.Source) error {
	configJSON, err := json.Marshal(source.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := time.Now().UTC()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sources (id, type, name, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			config = excluded.config,
			updated_at = excluded.updated_at
	`, source.ID, source.Type, source.Name, string(configJSON),
		source.CreatedAt, source.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

// Get retrieves a source by ID.
func (s *sourceStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, type, name, config, created_at, updated_at
		FROM sources WHERE id = ?
	`, id)

	source, err := scanSource(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return source, nil
}

// Delete removes a source.
func (s *sourceStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	return nil
}

// List returns all configured sources.
func (s *sourceStore) List(ctx context.Context) ([]domain.Source, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, type, name, config, created_at, updated_at
		FROM sources ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source //nolint:prealloc // size unknown from query
	for rows.Next() {
		source, err := scanSource(rows.Scan)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}

	return sources, nil
}

// scanSource scans one source row via the given Scan function.
func scanSource(scan func(...any) error) (*domain.Source, error) {
	var source domain.Source
	var configJSON string
	var createdAt, updatedAt sql.NullTime
	if err := scan(&source.ID, &source.Type, &source.Name, &configJSON,
		&createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning source: %w", err)
	}

	if err := json.Unmarshal([]byte(configJSON), &source.Config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if createdAt.Valid {
		source.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		source.UpdatedAt = updatedAt.Time
	}

	return &source, nil
}

// ==================== Sync State Store ====================

// syncStateStore implements driven.SyncStateStore.
type syncStateStore struct {
	store *Store
}

var _ driven.SyncStateStore = (*syncStateStore)(nil)

// Save stores or updates sync state.
func (s *syncStateStore) Save(ctx context.Context, state domain.SyncState) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_states (source_id, cursor, last_sync)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			cursor = excluded.cursor,
			last_sync = excluded.last_sync
	`, state.SourceID, state.Cursor, state.LastSync)

	if err != nil {
		return fmt.Errorf("saving sync state: %w", err)
	}
	return nil
}

// Get retrieves sync state for a source.
func (s *syncStateStore) Get(ctx context.Context, sourceID string) (*domain.SyncState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, cursor, last_sync
		FROM sync_states WHERE source_id = ?
	`, sourceID)

	var state domain.SyncState
	var lastSync sql.NullTime
	if err := row.Scan(&state.SourceID, &state.Cursor, &lastSync); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning sync state: %w", err)
	}

	if lastSync.Valid {
		state.LastSync = lastSync.Time
	}

	return &state, nil
}

// Delete removes sync state for a source.
func (s *syncStateStore) Delete(ctx context.Context, sourceID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sync_states WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("deleting sync state: %w", err)
	}
	return nil
}

// ==================== Entry State Store ====================

// entryStateStore implements driven.EntryStateStore.
type entryStateStore struct {
	store *Store
}

var _ driven.EntryStateStore = (*entryStateStore)(nil)

// Save stores or updates entry state.
func (s *entryStateStore) Save(ctx context.Context, state domain.EntryState) error {
	if state.SourceID == "" || state.EntryID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO entry_states (source_id, entry_id, content_hash, index_ref, status, error, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, entry_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			index_ref = excluded.index_ref,
			status = excluded.status,
			error = excluded.error,
			indexed_at = excluded.indexed_at
	`, state.SourceID, state.EntryID, state.ContentHash, state.IndexRef,
		string(state.Status), nullString(state.Error), formatNullableTime(state.IndexedAt))

	if err != nil {
		return fmt.Errorf("saving entry state: %w", err)
	}
	return nil
}

// Get retrieves entry state.
func (s *entryStateStore) Get(ctx context.Context, sourceID, entryID string) (*domain.EntryState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, entry_id, content_hash, index_ref, status, error, indexed_at
		FROM entry_states WHERE source_id = ? AND entry_id = ?
	`, sourceID, entryID)

	state, err := scanEntryState(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return state, nil
}

// ListBySource returns all entry state for a source.
func (s *entryStateStore) ListBySource(ctx context.Context, sourceID string) ([]domain.EntryState, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, entry_id, content_hash, index_ref, status, error, indexed_at
		FROM entry_states WHERE source_id = ? ORDER BY entry_id
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("querying entry states: %w", err)
	}
	defer rows.Close()

	var states []domain.EntryState //nolint:prealloc // size unknown from query
	for rows.Next() {
		state, err := scanEntryState(rows.Scan)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entry states: %w", err)
	}

	return states, nil
}

// Delete removes entry state.
func (s *entryStateStore) Delete(ctx context.Context, sourceID, entryID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM entry_states WHERE source_id = ? AND entry_id = ?", sourceID, entryID)
	if err != nil {
		return fmt.Errorf("deleting entry state: %w", err)
	}
	return nil
}

// scanEntryState scans one entry state row via the given Scan function.
func scanEntryState(scan func(...any) error) (*domain.EntryState, error) {
	var state domain.EntryState
	var status string
	var errMsg, indexedAt sql.NullString
	if err := scan(&state.SourceID, &state.EntryID, &state.ContentHash,
		&state.IndexRef, &status, &errMsg, &indexedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning entry state: %w", err)
	}

	state.Status = domain.SyncStatus(status)
	if errMsg.Valid {
		state.Error = errMsg.String
	}
	state.IndexedAt = parseNullableTime(indexedAt)

	return &state, nil
}
