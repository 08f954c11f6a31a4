package notion

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/custodia-labs/kbsync/internal/core/domain"
)

// Property readers. All of them tolerate a missing or differently-typed
// property by returning the zero value: source databases evolve
// independently of this tool and a renamed column must degrade, not
// crash.

func titleText(page *notionapi.Page, name string) string {
	if prop, ok := page.Properties[name].(*notionapi.TitleProperty); ok {
		return plainText(prop.Title)
	}
	return ""
}

func richTextValue(page *notionapi.Page, name string) string {
	if prop, ok := page.Properties[name].(*notionapi.RichTextProperty); ok {
		return plainText(prop.RichText)
	}
	return ""
}

// anyText reads a property that may be rich text or select.
func anyText(page *notionapi.Page, name string) string {
	switch prop := page.Properties[name].(type) {
	case *notionapi.RichTextProperty:
		return plainText(prop.RichText)
	case *notionapi.SelectProperty:
		return prop.Select.Name
	default:
		return ""
	}
}

func checkboxValue(page *notionapi.Page, name string) bool {
	if prop, ok := page.Properties[name].(*notionapi.CheckboxProperty); ok {
		return prop.Checkbox
	}
	return false
}

func multiSelectValues(page *notionapi.Page, name string) []string {
	prop, ok := page.Properties[name].(*notionapi.MultiSelectProperty)
	if !ok || len(prop.MultiSelect) == 0 {
		return nil
	}
	values := make([]string, 0, len(prop.MultiSelect))
	for _, opt := range prop.MultiSelect {
		values = append(values, opt.Name)
	}
	return values
}

func urlText(page *notionapi.Page, name string) string {
	if prop, ok := page.Properties[name].(*notionapi.URLProperty); ok {
		return prop.URL
	}
	return ""
}

func dateValue(page *notionapi.Page, name string) time.Time {
	prop, ok := page.Properties[name].(*notionapi.DateProperty)
	if !ok || prop.Date == nil || prop.Date.Start == nil {
		return time.Time{}
	}
	return time.Time(*prop.Date.Start)
}

// fileAttachments collects every files-type property on the page.
// Attachment identity (name + URL) participates in the content
// fingerprint; the bytes themselves are never fetched.
func fileAttachments(page *notionapi.Page) []domain.Attachment {
	var attachments []domain.Attachment
	for _, raw := range page.Properties {
		prop, ok := raw.(*notionapi.FilesProperty)
		if !ok {
			continue
		}
		for _, f := range prop.Files {
			url := ""
			switch {
			case f.External != nil:
				url = f.External.URL
			case f.File != nil:
				// Notion-hosted URLs carry an expiring signature in the
				// query string; strip it so the identity is stable
				// across runs.
				url, _, _ = strings.Cut(f.File.URL, "?")
			}
			if f.Name == "" && url == "" {
				continue
			}
			attachments = append(attachments, domain.Attachment{Name: f.Name, URL: url})
		}
	}
	return attachments
}
