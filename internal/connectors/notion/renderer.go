package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
)

// maxRenderDepth bounds block recursion. Notion itself caps UI nesting
// well below this.
const maxRenderDepth = 10

// renderer walks a page's block tree and flattens it to markdown.
// Headings keep their level, list items keep their markers, nested
// children are indented under their parent, and block types with no
// textual representation are omitted.
type renderer struct {
	client *notionapi.Client
}

// renderPage renders a page body to markdown.
func (r *renderer) renderPage(ctx context.Context, pageID string) (string, error) {
	var b strings.Builder
	if err := r.renderChildren(ctx, notionapi.BlockID(pageID), 0, &b); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

// renderChildren renders all child blocks of the given block, paginating
// through the Blocks API.
func (r *renderer) renderChildren(ctx context.Context, blockID notionapi.BlockID, depth int, b *strings.Builder) error {
	if depth > maxRenderDepth {
		return nil
	}

	var cursor notionapi.Cursor
	numbered := 0
	for {
		resp, err := r.client.Block.GetChildren(ctx, blockID, &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    100,
		})
		if err != nil {
			return fmt.Errorf("get children of %s: %w", blockID, err)
		}

		for _, block := range resp.Results {
			if block.GetType() == notionapi.BlockTypeNumberedListItem {
				numbered++
			} else {
				numbered = 0
			}
			if err := r.renderBlock(ctx, block, depth, numbered, b); err != nil {
				return err
			}
		}

		if !resp.HasMore {
			return nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}

// renderBlock renders a single block and recurses into its children.
func (r *renderer) renderBlock(ctx context.Context, block notionapi.Block, depth, numbered int, b *strings.Builder) error {
	indent := strings.Repeat("  ", depth)

	switch block := block.(type) {
	case *notionapi.ParagraphBlock:
		if text := plainText(block.Paragraph.RichText); text != "" {
			b.WriteString(indent + text + "\n\n")
		}

	case *notionapi.Heading1Block:
		b.WriteString(indent + "# " + plainText(block.Heading1.RichText) + "\n\n")

	case *notionapi.Heading2Block:
		b.WriteString(indent + "## " + plainText(block.Heading2.RichText) + "\n\n")

	case *notionapi.Heading3Block:
		b.WriteString(indent + "### " + plainText(block.Heading3.RichText) + "\n\n")

	case *notionapi.BulletedListItemBlock:
		b.WriteString(indent + "- " + plainText(block.BulletedListItem.RichText) + "\n")

	case *notionapi.NumberedListItemBlock:
		b.WriteString(fmt.Sprintf("%s%d. %s\n", indent, numbered, plainText(block.NumberedListItem.RichText)))

	case *notionapi.ToDoBlock:
		marker := "- [ ] "
		if block.ToDo.Checked {
			marker = "- [x] "
		}
		b.WriteString(indent + marker + plainText(block.ToDo.RichText) + "\n")

	case *notionapi.QuoteBlock:
		b.WriteString(indent + "> " + plainText(block.Quote.RichText) + "\n\n")

	case *notionapi.CodeBlock:
		b.WriteString(indent + "```" + block.Code.Language + "\n")
		b.WriteString(plainText(block.Code.RichText) + "\n")
		b.WriteString(indent + "```\n\n")

	case *notionapi.ToggleBlock:
		if text := plainText(block.Toggle.RichText); text != "" {
			b.WriteString(indent + text + "\n\n")
		}

	default:
		// Unrecognised block types are omitted.
		return nil
	}

	if block.GetHasChildren() {
		return r.renderChildren(ctx, notionapi.BlockID(block.GetID()), depth+1, b)
	}
	return nil
}

// plainText concatenates the plain-text runs of a rich text field.
func plainText(richText []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range richText {
		b.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(b.String())
}
