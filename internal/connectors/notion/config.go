package notion

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/kbsync/internal/core/domain"
)

// Default property names for the logical fields. Overridable per source.
const (
	DefaultFieldTitle       = "Name"
	DefaultFieldSyncEnabled = "Publish"
	DefaultFieldTags        = "Tags"
	DefaultFieldVersion     = "Version"
	DefaultFieldSourceURL   = "URL"
	DefaultFieldContentHash = "Content Hash"
	DefaultFieldIndexRef    = "Index Ref"
	DefaultFieldStatus      = "Last Sync Status"
	DefaultFieldError       = "Last Sync Error"
	DefaultFieldIndexedAt   = "Last Indexed At"
)

// FieldMap maps kbsync's logical entry fields onto the actual property
// names of the Notion database.
type FieldMap struct {
	Title       string
	SyncEnabled string
	Tags        string
	Version     string
	SourceURL   string
	ContentHash string
	IndexRef    string
	Status      string
	Error       string
	IndexedAt   string
}

// DefaultFieldMap returns the conventional property names.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		Title:       DefaultFieldTitle,
		SyncEnabled: DefaultFieldSyncEnabled,
		Tags:        DefaultFieldTags,
		Version:     DefaultFieldVersion,
		SourceURL:   DefaultFieldSourceURL,
		ContentHash: DefaultFieldContentHash,
		IndexRef:    DefaultFieldIndexRef,
		Status:      DefaultFieldStatus,
		Error:       DefaultFieldError,
		IndexedAt:   DefaultFieldIndexedAt,
	}
}

// Config holds the parsed configuration for a Notion source.
type Config struct {
	// Token is the integration token.
	Token string

	// DatabaseIDs are the databases to sync.
	DatabaseIDs []string

	// Fields maps logical fields to property names.
	Fields FieldMap
}

// ParseConfig parses a source's config map into a Config struct.
// Token and at least one database id are required.
func ParseConfig(source domain.Source) (*Config, error) {
	cfg := &Config{
		Token:  source.Config["token"],
		Fields: DefaultFieldMap(),
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: notion token for source %s", domain.ErrMissingCredentials, source.ID)
	}

	for _, id := range strings.Split(source.Config["database_ids"], ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			cfg.DatabaseIDs = append(cfg.DatabaseIDs, id)
		}
	}
	if len(cfg.DatabaseIDs) == 0 {
		return nil, fmt.Errorf("%w: source %s has no database_ids", domain.ErrInvalidInput, source.ID)
	}

	overrides := map[string]*string{
		"field_title":        &cfg.Fields.Title,
		"field_sync_enabled": &cfg.Fields.SyncEnabled,
		"field_tags":         &cfg.Fields.Tags,
		"field_version":      &cfg.Fields.Version,
		"field_source_url":   &cfg.Fields.SourceURL,
		"field_content_hash": &cfg.Fields.ContentHash,
		"field_index_ref":    &cfg.Fields.IndexRef,
		"field_status":       &cfg.Fields.Status,
		"field_error":        &cfg.Fields.Error,
		"field_indexed_at":   &cfg.Fields.IndexedAt,
	}
	for key, target := range overrides {
		if v, ok := source.Config[key]; ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}

	return cfg, nil
}
