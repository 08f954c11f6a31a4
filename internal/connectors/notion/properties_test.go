package notion

import (
	"net/http"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/kbsync/internal/core/domain"
)

func testPage() *notionapi.Page {
	indexed := notionapi.Date(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	return &notionapi.Page{
		ID:  "page-1",
		URL: "https://www.notion.so/page-1",
		Properties: notionapi.Properties{
			"Name": &notionapi.TitleProperty{
				Title: []notionapi.RichText{{PlainText: "Care "}, {PlainText: "Guide"}},
			},
			"Publish": &notionapi.CheckboxProperty{Checkbox: true},
			"Tags": &notionapi.MultiSelectProperty{
				MultiSelect: []notionapi.Option{{Name: "howto"}, {Name: "faq"}},
			},
			"Version": &notionapi.SelectProperty{Select: notionapi.Option{Name: "2"}},
			"Content Hash": &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: "abc123"}},
			},
			"Last Indexed At": &notionapi.DateProperty{
				Date: &notionapi.DateObject{Start: &indexed},
			},
			"Files": &notionapi.FilesProperty{
				Files: []notionapi.File{
					{
						Name: "sheet.pdf",
						File: &notionapi.FileObject{URL: "https://files.notion.so/sheet.pdf?X-Sig=expires-soon"},
					},
					{
						Name:     "logo.png",
						External: &notionapi.FileObject{URL: "https://cdn.example.com/logo.png"},
					},
				},
			},
		},
	}
}

func TestPropertyReaders(t *testing.T) {
	page := testPage()

	assert.Equal(t, "Care Guide", titleText(page, "Name"))
	assert.True(t, checkboxValue(page, "Publish"))
	assert.Equal(t, []string{"howto", "faq"}, multiSelectValues(page, "Tags"))
	assert.Equal(t, "2", anyText(page, "Version"))
	assert.Equal(t, "abc123", richTextValue(page, "Content Hash"))
	assert.Equal(t,
		time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		dateValue(page, "Last Indexed At"))
}

func TestPropertyReaders_MissingOrMistyped(t *testing.T) {
	page := testPage()

	assert.Empty(t, titleText(page, "No Such Column"))
	assert.Empty(t, richTextValue(page, "Publish"), "wrong type degrades to zero value")
	assert.False(t, checkboxValue(page, "Name"))
	assert.Nil(t, multiSelectValues(page, "Version"))
	assert.True(t, dateValue(page, "Tags").IsZero())
}

func TestFileAttachments(t *testing.T) {
	attachments := fileAttachments(testPage())

	assert.Len(t, attachments, 2)
	assert.Contains(t, attachments, domain.Attachment{
		Name: "sheet.pdf",
		URL:  "https://files.notion.so/sheet.pdf",
	}, "hosted file URLs lose their expiring signature")
	assert.Contains(t, attachments, domain.Attachment{
		Name: "logo.png",
		URL:  "https://cdn.example.com/logo.png",
	})
}

func TestRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Zero(t, retryAfter(resp))

	resp.Header.Set(HeaderRetryAfter, "3")
	assert.Equal(t, 3*time.Second, retryAfter(resp))

	resp.Header.Set(HeaderRetryAfter, "soon")
	assert.Zero(t, retryAfter(resp))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "a b", plainText([]notionapi.RichText{
		{PlainText: "a "}, {PlainText: "b "},
	}))
	assert.Empty(t, plainText(nil))
}
