package notion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbsync/internal/core/domain"
)

func TestParseConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := ParseConfig(domain.Source{
			ID:   "kb",
			Type: "notion",
			Config: map[string]string{
				"token":        "secret_abc",
				"database_ids": "db-1",
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "secret_abc", cfg.Token)
		assert.Equal(t, []string{"db-1"}, cfg.DatabaseIDs)
		assert.Equal(t, DefaultFieldMap(), cfg.Fields)
	})

	t.Run("multiple databases", func(t *testing.T) {
		cfg, err := ParseConfig(domain.Source{
			ID:   "kb",
			Type: "notion",
			Config: map[string]string{
				"token":        "secret_abc",
				"database_ids": "db-1, db-2 ,,db-3",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"db-1", "db-2", "db-3"}, cfg.DatabaseIDs)
	})

	t.Run("field overrides", func(t *testing.T) {
		cfg, err := ParseConfig(domain.Source{
			ID:   "kb",
			Type: "notion",
			Config: map[string]string{
				"token":              "secret_abc",
				"database_ids":       "db-1",
				"field_sync_enabled": "Ingest",
				"field_content_hash": "Sync Hash",
				"field_title":        "  Page  ",
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "Ingest", cfg.Fields.SyncEnabled)
		assert.Equal(t, "Sync Hash", cfg.Fields.ContentHash)
		assert.Equal(t, "Page", cfg.Fields.Title, "override values are trimmed")
		assert.Equal(t, DefaultFieldTags, cfg.Fields.Tags, "untouched fields keep defaults")
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := ParseConfig(domain.Source{
			ID:     "kb",
			Type:   "notion",
			Config: map[string]string{"database_ids": "db-1"},
		})
		assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	})

	t.Run("missing database ids", func(t *testing.T) {
		_, err := ParseConfig(domain.Source{
			ID:     "kb",
			Type:   "notion",
			Config: map[string]string{"token": "secret_abc", "database_ids": " , "},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
