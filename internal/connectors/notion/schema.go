package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/custodia-labs/kbsync/internal/core/domain"
)

// discoverSchema checks which status properties the configured databases
// actually have. With multiple databases the result is the intersection:
// a field is only considered writable when every database carries it, so
// a status write can never fail on one database for a field another one
// has.
func discoverSchema(ctx context.Context, client *notionapi.Client, cfg *Config) (domain.StatusSchema, error) {
	schema := domain.StatusSchema{
		HasContentHash: true,
		HasIndexRef:    true,
		HasStatus:      true,
		HasError:       true,
		HasIndexedAt:   true,
	}

	for _, id := range cfg.DatabaseIDs {
		db, err := client.Database.Get(ctx, notionapi.DatabaseID(id))
		if err != nil {
			return domain.StatusSchema{}, fmt.Errorf("get database %s: %w", id, err)
		}

		schema.HasContentHash = schema.HasContentHash && hasProperty(db, cfg.Fields.ContentHash, notionapi.PropertyConfigTypeRichText)
		schema.HasIndexRef = schema.HasIndexRef && hasProperty(db, cfg.Fields.IndexRef, notionapi.PropertyConfigTypeRichText)
		schema.HasStatus = schema.HasStatus && hasProperty(db, cfg.Fields.Status, notionapi.PropertyConfigTypeRichText, notionapi.PropertyConfigTypeSelect)
		schema.HasError = schema.HasError && hasProperty(db, cfg.Fields.Error, notionapi.PropertyConfigTypeRichText)
		schema.HasIndexedAt = schema.HasIndexedAt && hasProperty(db, cfg.Fields.IndexedAt, notionapi.PropertyConfigTypeDate)
	}

	return schema, nil
}

// hasProperty reports whether the database has the named property with
// one of the accepted types.
func hasProperty(db *notionapi.Database, name string, accepted ...notionapi.PropertyConfigType) bool {
	prop, ok := db.Properties[name]
	if !ok {
		return false
	}
	for _, t := range accepted {
		if prop.GetType() == t {
			return true
		}
	}
	return false
}
