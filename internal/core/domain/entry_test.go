package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestEntry_Fingerprint_Deterministic verifies equal inputs hash equal.
func TestEntry_Fingerprint_Deterministic(t *testing.T) {
	e := Entry{
		Body: "# Heading\n\nSome body text.",
		Attachments: []Attachment{
			{Name: "spec.pdf", URL: "https://example.com/spec.pdf"},
		},
	}

	assert.Equal(t, e.Fingerprint(), e.Fingerprint())
}

// TestEntry_Fingerprint_BodyChange verifies a one-character body edit
// changes the fingerprint.
func TestEntry_Fingerprint_BodyChange(t *testing.T) {
	a := Entry{Body: "hello world"}
	b := Entry{Body: "hello worle"}

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

// TestEntry_Fingerprint_AttachmentOrder verifies attachment listing
// order does not affect the fingerprint.
func TestEntry_Fingerprint_AttachmentOrder(t *testing.T) {
	a := Entry{
		Body: "same",
		Attachments: []Attachment{
			{Name: "a.png", URL: "https://x/a.png"},
			{Name: "b.png", URL: "https://x/b.png"},
		},
	}
	b := Entry{
		Body: "same",
		Attachments: []Attachment{
			{Name: "b.png", URL: "https://x/b.png"},
			{Name: "a.png", URL: "https://x/a.png"},
		},
	}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

// TestEntry_Fingerprint_AttachmentIdentity verifies renaming an
// attachment changes the fingerprint while tags do not.
func TestEntry_Fingerprint_AttachmentIdentity(t *testing.T) {
	a := Entry{
		Body:        "same",
		Attachments: []Attachment{{Name: "old.pdf", URL: "https://x/f.pdf"}},
		Tags:        []string{"one"},
	}
	b := Entry{
		Body:        "same",
		Attachments: []Attachment{{Name: "new.pdf", URL: "https://x/f.pdf"}},
		Tags:        []string{"two", "three"},
	}
	c := Entry{
		Body:        "same",
		Attachments: []Attachment{{Name: "old.pdf", URL: "https://x/f.pdf"}},
		Tags:        []string{"completely", "different"},
	}

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), c.Fingerprint())
}

func TestEntry_Filename(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		version string
		want    string
	}{
		{"simple title", "Getting Started", "", "getting-started.md"},
		{"punctuation collapses", "FAQ: Returns & Refunds!", "", "faq-returns-refunds.md"},
		{"case folded", "UPPER Case", "", "upper-case.md"},
		{"leading trailing stripped", "  --Spaced--  ", "", "spaced.md"},
		{"empty title", "!!!", "", "untitled.md"},
		{"version suffix", "Pricing Guide", "2.1", "pricing-guide-v2-1.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entry{Title: tt.title, Version: tt.version}
			assert.Equal(t, tt.want, e.Filename())
		})
	}
}

func TestStatusSchema_Writable(t *testing.T) {
	assert.False(t, StatusSchema{}.Writable())
	assert.True(t, StatusSchema{HasStatus: true}.Writable())
	assert.True(t, StatusSchema{HasContentHash: true, HasIndexedAt: true}.Writable())
}

func TestRunSummary_Add(t *testing.T) {
	total := RunSummary{RunID: "run-1", StartedAt: time.Now()}
	total.Add(&RunSummary{Processed: 3, Uploaded: 2, Skipped: 1})
	total.Add(&RunSummary{Processed: 2, Failed: 2})

	assert.Equal(t, 5, total.Processed)
	assert.Equal(t, 2, total.Uploaded)
	assert.Equal(t, 1, total.Skipped)
	assert.Equal(t, 2, total.Failed)
}
