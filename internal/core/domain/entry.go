package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"time"
)

// SyncStatus is the outcome of the last sync attempt for an entry.
type SyncStatus string

const (
	// SyncStatusOK indicates the entry was uploaded and indexed.
	SyncStatusOK SyncStatus = "ok"

	// SyncStatusSkipped indicates the entry was unchanged or disabled.
	SyncStatusSkipped SyncStatus = "skipped"

	// SyncStatusError indicates the last sync attempt failed.
	SyncStatusError SyncStatus = "error"
)

// Attachment is an external file reference attached to an entry.
type Attachment struct {
	// Name is the declared file name.
	Name string

	// URL is the external location of the file.
	URL string
}

// Identity returns the string that participates in the content fingerprint.
// A renamed or re-uploaded attachment changes the identity and therefore
// triggers a re-index of the owning entry.
func (a Attachment) Identity() string {
	return a.Name + "|" + a.URL
}

// Entry is one content record from a source database.
// Entries are created and edited externally; kbsync only reads them and
// annotates them with sync status.
type Entry struct {
	// ID is the opaque stable identifier assigned by the source.
	ID string

	// SourceID links to the Source that produced this entry.
	SourceID string

	// Collection identifies the database/folder within the source
	// that holds this entry.
	Collection string

	// Title is the display name; the uploaded document's filename
	// is derived from it.
	Title string

	// Body is the entry content rendered to markdown.
	Body string

	// Attachments are external file references, identity-hashed only.
	Attachments []Attachment

	// Tags are free-text labels. Order-irrelevant; not hashed.
	Tags []string

	// Version is an optional explicit version marker from the source.
	Version string

	// SourceURL is the entry's canonical URL at the source, if any.
	SourceURL string

	// SyncEnabled controls whether this entry participates in sync.
	SyncEnabled bool

	// ContentHash is the last-recorded fingerprint, read back from
	// the source (or local state for sources without writable schema).
	ContentHash string

	// IndexRef is the external index's id for the currently indexed
	// document version, empty if never indexed.
	IndexRef string

	// LastSyncStatus is the recorded outcome of the previous sync.
	LastSyncStatus SyncStatus

	// LastSyncError is the recorded error message, empty unless
	// LastSyncStatus is "error".
	LastSyncError string

	// LastIndexedAt is when the entry was last successfully indexed.
	LastIndexedAt time.Time
}

// Fingerprint computes the deterministic content hash for the entry.
// It covers the body and the identity of every attachment; attachment
// order in the source does not affect the result. Equal inputs always
// produce equal fingerprints, which is what makes re-sync idempotent.
func (e *Entry) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(e.Body))

	identities := make([]string, 0, len(e.Attachments))
	for _, a := range e.Attachments {
		identities = append(identities, a.Identity())
	}
	sort.Strings(identities)
	for _, id := range identities {
		h.Write([]byte{0})
		h.Write([]byte(id))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// nonWord matches every run of characters that is not a letter or digit.
var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// Filename derives the uploaded document's filename from the title.
// Non-word characters collapse to "-", the result is case-folded, and an
// explicit source version is appended when present. Distinct titles can
// collide after sanitisation; the index keeps last-writer-wins semantics
// for filename lookups, refs stay keyed by entry id.
func (e *Entry) Filename() string {
	slug := nonWord.ReplaceAllString(strings.ToLower(e.Title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "untitled"
	}
	if e.Version != "" {
		slug += "-v" + strings.Trim(nonWord.ReplaceAllString(strings.ToLower(e.Version), "-"), "-")
	}
	return slug + ".md"
}

// StatusPatch is the set of status fields written back to the source
// after a sync attempt. Fields missing from the source's discovered
// schema are omitted by the connector.
type StatusPatch struct {
	// ContentHash is the new fingerprint. Empty means leave unchanged.
	ContentHash string

	// IndexRef is the new index reference. Empty means leave unchanged.
	IndexRef string

	// Status is the sync outcome.
	Status SyncStatus

	// Error is the failure message, empty for ok/skipped.
	Error string

	// IndexedAt is the successful index time, zero unless Status is ok.
	IndexedAt time.Time
}

// StatusSchema records which status fields the source schema actually
// has. It is discovered once per run via a preflight check so that
// writes can omit absent fields instead of failing.
type StatusSchema struct {
	HasContentHash bool
	HasIndexRef    bool
	HasStatus      bool
	HasError       bool
	HasIndexedAt   bool
}

// Writable reports whether any status field can be written at all.
func (s StatusSchema) Writable() bool {
	return s.HasContentHash || s.HasIndexRef || s.HasStatus || s.HasError || s.HasIndexedAt
}

// EntryState is locally persisted sync state for one entry. It stands in
// for the writable status fields on sources that have no schema of their
// own (the filesystem source).
type EntryState struct {
	SourceID    string
	EntryID     string
	ContentHash string
	IndexRef    string
	Status      SyncStatus
	Error       string
	IndexedAt   time.Time
}
