package notion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jomei/notionapi"

	"github.com/custodia-labs/kbsync/internal/core/domain"
	"github.com/custodia-labs/kbsync/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// queryPageSize is the Notion API maximum.
const queryPageSize = 100

// Connector reads entries from Notion databases and writes sync status
// back onto the pages.
type Connector struct {
	sourceID string
	config   *Config
	client   *notionapi.Client
	renderer *renderer

	mu     sync.Mutex
	schema *domain.StatusSchema
	closed bool
}

// New creates a Notion connector for the given source.
func New(source domain.Source) (driven.Connector, error) {
	cfg, err := ParseConfig(source)
	if err != nil {
		return nil, err
	}

	client := notionapi.NewClient(
		notionapi.Token(cfg.Token),
		notionapi.WithHTTPClient(newThrottledClient()),
	)

	return &Connector{
		sourceID: source.ID,
		config:   cfg,
		client:   client,
		renderer: &renderer{client: client},
	}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return "notion"
}

// SourceID returns the source identifier.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsChangedSince:    true,
		SupportsStatusWriteback: true,
		SupportsWatch:           false, // No webhooks for integrations
		RequiresAuth:            true,
		SupportsValidation:      true,
		SupportsRateLimiting:    true,
		SupportsPagination:      true,
	}
}

// Validate checks the token and database access with a metadata call
// against the first configured database.
func (c *Connector) Validate(ctx context.Context) error {
	_, err := c.client.Database.Get(ctx, notionapi.DatabaseID(c.config.DatabaseIDs[0]))
	if err != nil {
		return fmt.Errorf("validate notion source %s: %w", c.sourceID, err)
	}
	return nil
}

// Discover performs the schema preflight and caches the result for
// subsequent WriteStatus calls.
func (c *Connector) Discover(ctx context.Context) (domain.StatusSchema, error) {
	schema, err := discoverSchema(ctx, c.client, c.config)
	if err != nil {
		return domain.StatusSchema{}, err
	}

	c.mu.Lock()
	c.schema = &schema
	c.mu.Unlock()
	return schema, nil
}

// ListEntries lists every page of every configured database. Pages whose
// body cannot be rendered are reported as EntryError and do not stop the
// listing.
func (c *Connector) ListEntries(ctx context.Context, since *time.Time) (<-chan domain.Entry, <-chan error) {
	entriesCh := make(chan domain.Entry)
	errsCh := make(chan error, 16)

	go func() {
		defer close(entriesCh)
		defer close(errsCh)

		for _, dbID := range c.config.DatabaseIDs {
			if err := c.listDatabase(ctx, dbID, since, entriesCh, errsCh); err != nil {
				errsCh <- err
				return
			}
		}

		errsCh <- &driven.SyncComplete{}
	}()

	return entriesCh, errsCh
}

// listDatabase pages through one database's query results.
func (c *Connector) listDatabase(
	ctx context.Context,
	dbID string,
	since *time.Time,
	entriesCh chan<- domain.Entry,
	errsCh chan<- error,
) error {
	req := &notionapi.DatabaseQueryRequest{PageSize: queryPageSize}
	if since != nil {
		req.Filter = changedSinceFilter(since)
	}

	for {
		resp, err := c.client.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
		if err != nil {
			return fmt.Errorf("query database %s: %w", dbID, err)
		}

		for i := range resp.Results {
			entry, err := c.buildEntry(ctx, dbID, &resp.Results[i])
			if err != nil {
				errsCh <- &driven.EntryError{Entry: *entry, Err: err}
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case entriesCh <- *entry:
			}
		}

		if !resp.HasMore {
			return nil
		}
		req.StartCursor = resp.NextCursor
	}
}

// changedSinceFilter builds the query filter for incremental listing:
// only pages edited on or after the given time.
func changedSinceFilter(since *time.Time) *notionapi.TimestampFilter {
	return &notionapi.TimestampFilter{
		Timestamp: notionapi.TimestampLastEdited,
		LastEditedTime: &notionapi.DateFilterCondition{
			OnOrAfter: (*notionapi.Date)(since),
		},
	}
}

// buildEntry converts a page into a domain entry. On render failure the
// partially built entry is returned alongside the error so a best-effort
// error status can still be written.
func (c *Connector) buildEntry(ctx context.Context, dbID string, page *notionapi.Page) (*domain.Entry, error) {
	fields := c.config.Fields
	entry := &domain.Entry{
		ID:          string(page.ID),
		SourceID:    c.sourceID,
		Collection:  dbID,
		Title:       titleText(page, fields.Title),
		Tags:        multiSelectValues(page, fields.Tags),
		Version:     anyText(page, fields.Version),
		SourceURL:   urlText(page, fields.SourceURL),
		SyncEnabled: checkboxValue(page, fields.SyncEnabled),
		ContentHash: richTextValue(page, fields.ContentHash),
		IndexRef:    richTextValue(page, fields.IndexRef),
	}
	if entry.SourceURL == "" {
		entry.SourceURL = page.URL
	}
	entry.LastSyncStatus = domain.SyncStatus(anyText(page, fields.Status))
	entry.LastSyncError = richTextValue(page, fields.Error)
	entry.LastIndexedAt = dateValue(page, fields.IndexedAt)
	entry.Attachments = fileAttachments(page)

	body, err := c.renderer.renderPage(ctx, string(page.ID))
	if err != nil {
		return entry, fmt.Errorf("render page %s: %w", page.ID, err)
	}
	entry.Body = body
	return entry, nil
}

// WriteStatus writes the sync outcome onto the page, omitting fields the
// discovered schema lacks.
func (c *Connector) WriteStatus(ctx context.Context, entry *domain.Entry, patch domain.StatusPatch) error {
	schema := c.currentSchema()
	fields := c.config.Fields

	props := notionapi.Properties{}
	if schema.HasContentHash && patch.ContentHash != "" {
		props[fields.ContentHash] = richTextProperty(patch.ContentHash)
	}
	if schema.HasIndexRef && patch.IndexRef != "" {
		props[fields.IndexRef] = richTextProperty(patch.IndexRef)
	}
	if schema.HasStatus && patch.Status != "" {
		props[fields.Status] = richTextProperty(string(patch.Status))
	}
	if schema.HasError {
		props[fields.Error] = richTextProperty(patch.Error)
	}
	if schema.HasIndexedAt && !patch.IndexedAt.IsZero() {
		indexedAt := notionapi.Date(patch.IndexedAt)
		props[fields.IndexedAt] = notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &indexedAt},
		}
	}

	if len(props) == 0 {
		return nil // Nothing writable
	}

	_, err := c.client.Page.Update(ctx, notionapi.PageID(entry.ID), &notionapi.PageUpdateRequest{
		Properties: props,
	})
	if err != nil {
		return fmt.Errorf("update page %s: %w", entry.ID, err)
	}
	return nil
}

// Watch is not supported: Notion offers no change push for integrations.
func (c *Connector) Watch(_ context.Context) (<-chan string, error) {
	return nil, domain.ErrNotImplemented
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// currentSchema returns the discovered schema, or all-fields when no
// preflight ran (the write then surfaces any schema mismatch itself).
func (c *Connector) currentSchema() domain.StatusSchema {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.schema != nil {
		return *c.schema
	}
	return domain.StatusSchema{
		HasContentHash: true,
		HasIndexRef:    true,
		HasStatus:      true,
		HasError:       true,
		HasIndexedAt:   true,
	}
}

// richTextProperty builds a plain rich text property value.
func richTextProperty(value string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type: notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: value}},
		},
	}
}
