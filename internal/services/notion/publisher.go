package notion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	// BatchSize is the most children Notion accepts in one append call
	BatchSize = 100

	// maxTextLength is Notion's limit for a single rich text content
	maxTextLength = 2000

	pageIcon = "📊"
)

// Publisher creates Notion pages from markdown reports
type Publisher struct {
	client *notionapi.Client
	md     goldmark.Markdown
	logger arbor.ILogger
}

func NewPublisher(token string, logger arbor.ILogger, opts ...notionapi.ClientOption) *Publisher {
	return &Publisher{
		client: notionapi.NewClient(notionapi.Token(token), opts...),
		md:     goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
		logger: logger,
	}
}

// PublishFile publishes the markdown file at path as a child of parentID.
// The file stem is the title when the document has no level-1 heading.
func (p *Publisher) PublishFile(ctx context.Context, path, parentID string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p.Publish(ctx, string(content), stem, parentID)
}

// Publish creates the page and appends its blocks, returning the page URL
func (p *Publisher) Publish(ctx context.Context, markdown, fallbackTitle, parentID string) (string, error) {
	if parentID == "" {
		return "", fmt.Errorf("notion parent page id is required")
	}

	title, blocks := p.Blocks(markdown)
	if title == "" {
		title = fallbackTitle
	}

	emoji := notionapi.Emoji(pageIcon)
	page, err := p.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: notionapi.PageID(parentID),
		},
		Icon: &notionapi.Icon{Type: "emoji", Emoji: &emoji},
		Properties: notionapi.Properties{
			"title": notionapi.TitleProperty{Title: []notionapi.RichText{plain(title)}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create notion page: %w", err)
	}

	for start := 0; start < len(blocks); start += BatchSize {
		end := start + BatchSize
		if end > len(blocks) {
			end = len(blocks)
		}
		_, err := p.client.Block.AppendChildren(ctx, notionapi.BlockID(page.ID), &notionapi.AppendBlockChildrenRequest{
			Children: blocks[start:end],
		})
		if err != nil {
			return "", fmt.Errorf("failed to append blocks %d-%d: %w", start, end, err)
		}
	}

	p.logger.Info().
		Str("title", title).
		Str("page_id", string(page.ID)).
		Int("blocks", len(blocks)).
		Msg("Published report to Notion")

	return page.URL, nil
}

// Blocks converts markdown into Notion blocks. The first level-1 heading
// is returned as the title and is also kept as a heading block.
func (p *Publisher) Blocks(markdown string) (string, []notionapi.Block) {
	source := []byte(markdown)
	doc := p.md.Parser().Parse(text.NewReader(source))

	c := &converter{source: source}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		c.block(n)
	}
	return c.title, c.blocks
}

type converter struct {
	source []byte
	title  string
	blocks []notionapi.Block
}

func basic(blockType string) notionapi.BasicBlock {
	return notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockType(blockType)}
}

func (c *converter) block(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		rt := c.inline(node)
		if node.Level == 1 && c.title == "" {
			c.title = plainText(rt)
		}
		c.blocks = append(c.blocks, heading(node.Level, rt))

	case *ast.Paragraph:
		if img, ok := soleImage(node); ok {
			if b := c.image(img); b != nil {
				c.blocks = append(c.blocks, b)
			}
			return
		}
		c.blocks = append(c.blocks, &notionapi.ParagraphBlock{
			BasicBlock: basic("paragraph"),
			Paragraph:  notionapi.Paragraph{RichText: c.inline(node)},
		})

	case *ast.Blockquote:
		var rt []notionapi.RichText
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if len(rt) > 0 {
				rt = append(rt, plain("\n"))
			}
			rt = append(rt, c.inline(child)...)
		}
		c.blocks = append(c.blocks, &notionapi.QuoteBlock{
			BasicBlock: basic("quote"),
			Quote:      notionapi.Quote{RichText: rt},
		})

	case *ast.ThematicBreak:
		c.blocks = append(c.blocks, &notionapi.DividerBlock{BasicBlock: basic("divider")})

	case *ast.List:
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			var rt []notionapi.RichText
			for child := item.FirstChild(); child != nil; child = child.NextSibling() {
				rt = append(rt, c.inline(child)...)
			}
			if node.IsOrdered() {
				c.blocks = append(c.blocks, &notionapi.NumberedListItemBlock{
					BasicBlock:       basic("numbered_list_item"),
					NumberedListItem: notionapi.ListItem{RichText: rt},
				})
			} else {
				c.blocks = append(c.blocks, &notionapi.BulletedListItemBlock{
					BasicBlock:       basic("bulleted_list_item"),
					BulletedListItem: notionapi.ListItem{RichText: rt},
				})
			}
		}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(c.source))
		}
		c.blocks = append(c.blocks, &notionapi.CodeBlock{
			BasicBlock: basic("code"),
			Code: notionapi.Code{
				RichText: split(strings.TrimRight(b.String(), "\n"), nil, ""),
				Language: "plain text",
			},
		})

	case *extast.Table:
		c.table(node)
	}
}

func heading(level int, rt []notionapi.RichText) notionapi.Block {
	h := notionapi.Heading{RichText: rt}
	switch level {
	case 1:
		return &notionapi.Heading1Block{BasicBlock: basic("heading_1"), Heading1: h}
	case 2:
		return &notionapi.Heading2Block{BasicBlock: basic("heading_2"), Heading2: h}
	default:
		return &notionapi.Heading3Block{BasicBlock: basic("heading_3"), Heading3: h}
	}
}

func (c *converter) table(t *extast.Table) {
	var rows []notionapi.Block
	width := 0
	var cells [][][]notionapi.RichText
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var rowCells [][]notionapi.RichText
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			rowCells = append(rowCells, c.inline(cell))
		}
		if len(rowCells) > width {
			width = len(rowCells)
		}
		cells = append(cells, rowCells)
	}
	if width == 0 {
		return
	}
	for _, rowCells := range cells {
		for len(rowCells) < width {
			rowCells = append(rowCells, []notionapi.RichText{plain("")})
		}
		rows = append(rows, &notionapi.TableRowBlock{
			BasicBlock: basic("table_row"),
			TableRow:   notionapi.TableRow{Cells: rowCells},
		})
	}
	c.blocks = append(c.blocks, &notionapi.TableBlock{
		BasicBlock: basic("table"),
		Table: notionapi.Table{
			TableWidth:      width,
			HasColumnHeader: true,
			Children:        rows,
		},
	})
}

// image keeps only absolute URLs; Notion cannot fetch relative paths
func (c *converter) image(img *ast.Image) notionapi.Block {
	dest := string(img.Destination)
	if !isAbsoluteURL(dest) {
		return nil
	}
	block := &notionapi.ImageBlock{
		BasicBlock: basic("image"),
		Image: notionapi.Image{
			Type:     notionapi.FileTypeExternal,
			External: &notionapi.FileObject{URL: dest},
		},
	}
	if alt := string(img.Text(c.source)); alt != "" {
		block.Image.Caption = []notionapi.RichText{plain(alt)}
	}
	return block
}

func soleImage(p *ast.Paragraph) (*ast.Image, bool) {
	if p.ChildCount() != 1 {
		return nil, false
	}
	img, ok := p.FirstChild().(*ast.Image)
	return img, ok
}

type inlineStyle struct {
	bold, italic, strike, code bool
	link                       string
}

// inline flattens the inline children of n into rich text runs
func (c *converter) inline(n ast.Node) []notionapi.RichText {
	var out []notionapi.RichText
	var walk func(node ast.Node, style inlineStyle)
	walk = func(node ast.Node, style inlineStyle) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch v := child.(type) {
			case *ast.Text:
				content := string(v.Segment.Value(c.source))
				if v.HardLineBreak() {
					content += "\n"
				} else if v.SoftLineBreak() {
					content += " "
				}
				out = append(out, styled(content, style)...)
			case *ast.String:
				out = append(out, styled(string(v.Value), style)...)
			case *ast.CodeSpan:
				s := style
				s.code = true
				out = append(out, styled(string(v.Text(c.source)), s)...)
			case *ast.Emphasis:
				s := style
				if v.Level == 2 {
					s.bold = true
				} else {
					s.italic = true
				}
				walk(v, s)
			case *extast.Strikethrough:
				s := style
				s.strike = true
				walk(v, s)
			case *ast.Link:
				s := style
				if dest := string(v.Destination); isAbsoluteURL(dest) {
					s.link = dest
				}
				walk(v, s)
			case *ast.AutoLink:
				s := style
				if u := string(v.URL(c.source)); isAbsoluteURL(u) {
					s.link = u
				}
				out = append(out, styled(string(v.Label(c.source)), s)...)
			case *ast.Image:
				out = append(out, styled(string(v.Text(c.source)), style)...)
			default:
				walk(child, style)
			}
		}
	}
	walk(n, inlineStyle{})
	return merge(out)
}

func styled(content string, style inlineStyle) []notionapi.RichText {
	if content == "" {
		return nil
	}
	var annotations *notionapi.Annotations
	if style.bold || style.italic || style.strike || style.code {
		annotations = &notionapi.Annotations{
			Bold:          style.bold,
			Italic:        style.italic,
			Strikethrough: style.strike,
			Code:          style.code,
			Color:         notionapi.ColorDefault,
		}
	}
	return split(content, annotations, style.link)
}

// split breaks content into runs no longer than Notion's text limit
func split(content string, annotations *notionapi.Annotations, link string) []notionapi.RichText {
	runes := []rune(content)
	var out []notionapi.RichText
	for len(runes) > 0 {
		n := len(runes)
		if n > maxTextLength {
			n = maxTextLength
		}
		rt := notionapi.RichText{
			Type:        notionapi.ObjectTypeText,
			Text:        &notionapi.Text{Content: string(runes[:n])},
			Annotations: annotations,
		}
		if link != "" {
			rt.Text.Link = &notionapi.Link{Url: link}
		}
		out = append(out, rt)
		runes = runes[n:]
	}
	return out
}

// merge joins adjacent runs that share styling
func merge(runs []notionapi.RichText) []notionapi.RichText {
	var out []notionapi.RichText
	for _, rt := range runs {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if sameStyle(*last, rt) && len([]rune(last.Text.Content))+len([]rune(rt.Text.Content)) <= maxTextLength {
				last.Text.Content += rt.Text.Content
				continue
			}
		}
		out = append(out, rt)
	}
	return out
}

func sameStyle(a, b notionapi.RichText) bool {
	if (a.Text.Link == nil) != (b.Text.Link == nil) {
		return false
	}
	if a.Text.Link != nil && a.Text.Link.Url != b.Text.Link.Url {
		return false
	}
	if (a.Annotations == nil) != (b.Annotations == nil) {
		return false
	}
	return a.Annotations == nil || *a.Annotations == *b.Annotations
}

func plain(content string) notionapi.RichText {
	return notionapi.RichText{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: content}}
}

func plainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, r := range rt {
		if r.Text != nil {
			b.WriteString(r.Text.Content)
		}
	}
	return b.String()
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
