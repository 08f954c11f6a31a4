// Package notion implements a connector for Notion databases.
//
// The connector lists every page of one or more databases, renders each
// page's block tree to markdown, and writes sync status fields back onto
// the page after an upload attempt.
//
// # Configuration
//
// Source configuration accepts the following keys:
//
//   - token: Notion integration token (secret_... / ntn_...). Required.
//
//   - database_ids: comma-separated list of database ids to sync. Required.
//
//   - field_title, field_sync_enabled, field_tags, field_version,
//     field_source_url, field_content_hash, field_index_ref, field_status,
//     field_error, field_indexed_at: overrides mapping logical fields onto
//     the database's actual property names. Defaults match a conventional
//     knowledge-base schema ("Name", "Publish", "Tags", ...).
//
// # Status writeback
//
// Status properties are optional. A preflight schema check discovers which
// of them each database actually has; writes then omit absent fields
// instead of failing. A database with none of them still syncs, it just
// loses change detection between runs.
//
// # Rendering
//
// Page bodies come from the Blocks API. Headings keep their level as
// markdown # prefixes, bulleted and numbered list items keep their
// markers, nested children are indented under their parent. Block types
// with no textual representation are silently omitted.
//
// # Rate limiting
//
// Notion allows an average of three requests per second per integration.
// All API calls go through a token-bucket throttled HTTP transport that
// also honours Retry-After on 429 responses.
package notion
