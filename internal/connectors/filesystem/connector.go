// Package filesystem implements a connector for a local knowledge
// directory. Markdown and plain-text files become entries; a file whose
// name starts with "." or "_" is treated as a draft and excluded from
// sync. Because files carry no writable status schema, sync status lives
// in the local entry state store instead.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/kbsync/internal/core/domain"
	"github.com/custodia-labs/kbsync/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// defaultExtensions are the file types treated as entries.
var defaultExtensions = []string{".md", ".txt", ".csv"}

// Connector reads entries from a directory tree.
type Connector struct {
	sourceID   string
	rootPath   string
	extensions []string
	states     driven.EntryStateStore

	watcher *watcher
}

// New creates a filesystem connector. The source config requires "root";
// "extensions" optionally overrides the default file types as a
// comma-separated list.
func New(source domain.Source, states driven.EntryStateStore) (*Connector, error) {
	root := source.Config["root"]
	if root == "" {
		return nil, fmt.Errorf("%w: source %s has no root", domain.ErrInvalidInput, source.ID)
	}

	extensions := defaultExtensions
	if raw := source.Config["extensions"]; raw != "" {
		extensions = nil
		for _, ext := range strings.Split(raw, ",") {
			ext = strings.TrimSpace(strings.ToLower(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			extensions = append(extensions, ext)
		}
	}

	return &Connector{
		sourceID:   source.ID,
		rootPath:   filepath.Clean(root),
		extensions: extensions,
		states:     states,
	}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return "filesystem"
}

// SourceID returns the source identifier.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsChangedSince:    true,
		SupportsStatusWriteback: true, // Via local entry state
		SupportsWatch:           true,
		RequiresAuth:            false,
		SupportsValidation:      true,
		SupportsRateLimiting:    false,
		SupportsPagination:      false,
	}
}

// Validate checks the root directory exists and is readable.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("root %s does not exist", c.rootPath)
		}
		return fmt.Errorf("stat root %s: %w", c.rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", c.rootPath)
	}
	return nil
}

// Discover reports a full schema: the local entry state store accepts
// every status field.
func (c *Connector) Discover(_ context.Context) (domain.StatusSchema, error) {
	return domain.StatusSchema{
		HasContentHash: true,
		HasIndexRef:    true,
		HasStatus:      true,
		HasError:       true,
		HasIndexedAt:   true,
	}, nil
}

// ListEntries walks the root directory and produces one entry per
// matching file. Unreadable files are reported as EntryError and do not
// stop the walk.
func (c *Connector) ListEntries(ctx context.Context, since *time.Time) (<-chan domain.Entry, <-chan error) {
	entriesCh := make(chan domain.Entry)
	errsCh := make(chan error, 16)

	go func() {
		defer close(entriesCh)
		defer close(errsCh)

		walkErr := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			base := d.Name()
			if d.IsDir() {
				// Hidden directories are not traversed at all.
				if path != c.rootPath && strings.HasPrefix(base, ".") {
					return filepath.SkipDir
				}
				return nil
			}

			if !c.matchesExtension(base) {
				return nil
			}

			if since != nil {
				info, err := d.Info()
				if err != nil {
					return nil
				}
				if info.ModTime().Before(*since) {
					return nil
				}
			}

			entry, err := c.buildEntry(ctx, path, base)
			if err != nil {
				errsCh <- &driven.EntryError{Entry: *entry, Err: err}
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case entriesCh <- *entry:
			}
			return nil
		})

		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				walkErr = fmt.Errorf("root %s does not exist", c.rootPath)
			}
			errsCh <- walkErr
			return
		}

		errsCh <- &driven.SyncComplete{}
	}()

	return entriesCh, errsCh
}

// buildEntry reads one file into an entry, merging locally stored sync
// state so change detection works across runs.
func (c *Connector) buildEntry(ctx context.Context, path, base string) (*domain.Entry, error) {
	relPath, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)

	entry := &domain.Entry{
		ID:          relPath,
		SourceID:    c.sourceID,
		Collection:  filepath.ToSlash(filepath.Dir(relPath)),
		Title:       strings.TrimSuffix(base, filepath.Ext(base)),
		SourceURL:   "file://" + path,
		SyncEnabled: !strings.HasPrefix(base, ".") && !strings.HasPrefix(base, "_"),
	}

	if c.states != nil {
		if state, err := c.states.Get(ctx, c.sourceID, entry.ID); err == nil {
			entry.ContentHash = state.ContentHash
			entry.IndexRef = state.IndexRef
			entry.LastSyncStatus = state.Status
			entry.LastSyncError = state.Error
			entry.LastIndexedAt = state.IndexedAt
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return entry, fmt.Errorf("read %s: %w", relPath, err)
	}
	entry.Body = string(content)
	return entry, nil
}

// WriteStatus persists the sync outcome in the local entry state store.
func (c *Connector) WriteStatus(ctx context.Context, entry *domain.Entry, patch domain.StatusPatch) error {
	if c.states == nil {
		return nil
	}

	state := domain.EntryState{
		SourceID: c.sourceID,
		EntryID:  entry.ID,
		Status:   patch.Status,
		Error:    patch.Error,
	}
	// Carry forward what the patch leaves unchanged.
	if prev, err := c.states.Get(ctx, c.sourceID, entry.ID); err == nil {
		state.ContentHash = prev.ContentHash
		state.IndexRef = prev.IndexRef
		state.IndexedAt = prev.IndexedAt
	}
	if patch.ContentHash != "" {
		state.ContentHash = patch.ContentHash
	}
	if patch.IndexRef != "" {
		state.IndexRef = patch.IndexRef
	}
	if !patch.IndexedAt.IsZero() {
		state.IndexedAt = patch.IndexedAt
	}

	return c.states.Save(ctx, state)
}

// Close stops the watcher if one is running.
func (c *Connector) Close() error {
	if c.watcher != nil {
		return c.watcher.close()
	}
	return nil
}

// matchesExtension checks the file type against the configured list.
func (c *Connector) matchesExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range c.extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
