package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pageWidth  = 190.0 // A4 less 10mm margins
	pageBottom = 297.0 - 12.0
	bodySize   = 9.0
	lineHeight = 4.5
	fontFamily = "Helvetica"
)

// Exporter renders markdown reports as A4 PDFs
type Exporter struct {
	logger arbor.ILogger
	md     goldmark.Markdown
}

func NewExporter(logger arbor.ILogger) *Exporter {
	return &Exporter{
		logger: logger,
		md:     goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
	}
}

// Export converts markdown to PDF bytes. Images are replaced by their alt text.
func (e *Exporter) Export(markdown, title string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetCreator("indepth", true)
	doc.SetMargins(10, 10, 10)
	doc.SetAutoPageBreak(true, 12)
	doc.AddPage()
	doc.SetFont(fontFamily, "", bodySize)

	source := []byte(markdown)
	r := &pdfRenderer{
		pdf:    doc,
		source: source,
		tr:     doc.UnicodeTranslatorFromDescriptor(""),
	}
	if err := ast.Walk(e.md.Parser().Parse(text.NewReader(source)), r.walk); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to build PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	e.logger.Debug().Str("title", title).Int("bytes", buf.Len()).Msg("Exported PDF")
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	tr        func(string) string
	size      float64
	bold      bool
	italic    bool
	quote     int
	listDepth int
}

func (r *pdfRenderer) setFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic || r.quote > 0 {
		style += "I"
	}
	size := r.size
	if size == 0 {
		size = bodySize
	}
	r.pdf.SetFont(fontFamily, style, size)
}

func (r *pdfRenderer) write(s string) {
	r.pdf.Write(lineHeight, r.tr(s))
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			r.size = map[int]float64{1: 15, 2: 12.5, 3: 10.5}[node.Level]
			r.bold = true
		} else {
			r.size, r.bold = 0, false
			r.pdf.Ln(lineHeight + 1.5)
		}
		r.setFont()

	case *ast.Paragraph:
		if !entering {
			r.pdf.Ln(lineHeight + 1.5)
		}

	case *ast.TextBlock:
		if !entering {
			r.pdf.Ln(lineHeight)
		}

	case *ast.Blockquote:
		if entering {
			r.quote++
			r.pdf.SetLeftMargin(10 + 4*float64(r.quote))
			r.pdf.SetX(10 + 4*float64(r.quote))
		} else {
			r.quote--
			r.pdf.SetLeftMargin(10 + 4*float64(r.quote))
		}
		r.setFont()

	case *ast.List:
		if entering {
			r.listDepth++
		} else {
			r.listDepth--
			if r.listDepth == 0 {
				r.pdf.Ln(1.5)
			}
		}

	case *ast.ListItem:
		if entering {
			r.pdf.SetX(10 + 5*float64(r.listDepth))
			r.write("- ")
		}

	case *ast.Text:
		if entering {
			r.write(string(node.Segment.Value(r.source)))
			if node.SoftLineBreak() {
				r.write(" ")
			}
			if node.HardLineBreak() {
				r.pdf.Ln(lineHeight)
			}
		}

	case *ast.String:
		if entering {
			r.write(string(node.Value))
		}

	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.setFont()

	case *ast.CodeSpan:
		if entering {
			r.pdf.SetFont("Courier", "", bodySize)
			r.write(string(node.Text(r.source)))
			r.setFont()
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			r.codeBlock(n.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.Image:
		if entering {
			r.write("[" + string(node.Text(r.source)) + "]")
		}
		return ast.WalkSkipChildren, nil

	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			y := r.pdf.GetY()
			r.pdf.SetDrawColor(180, 180, 180)
			r.pdf.Line(10, y, 10+pageWidth, y)
			r.pdf.Ln(3)
		}

	case *extast.Table:
		if entering {
			r.table(tableRows(node, r.source))
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) codeBlock(lines *text.Segments) {
	r.pdf.SetFont("Courier", "", bodySize-1)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		r.pdf.MultiCell(0, lineHeight, r.tr(strings.TrimRight(string(seg.Value(r.source)), "\n")), "", "L", true)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.pdf.Ln(2)
	r.setFont()
}

func tableRows(t *extast.Table, source []byte) [][]string {
	var rows [][]string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(string(cell.Text(source))))
		}
		rows = append(rows, cells)
	}
	return rows
}

// table draws rows with the first as a shaded header. Column widths follow
// content width, capped at a third of the page and scaled to fit.
func (r *pdfRenderer) table(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	const size, lh = 8.0, 4.0
	cols := len(rows[0])

	widths := make([]float64, cols)
	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		r.pdf.SetFont(fontFamily, style, size)
		for j := 0; j < cols && j < len(row); j++ {
			if w := r.pdf.GetStringWidth(r.tr(row[j])) + 4; w > widths[j] {
				widths[j] = w
			}
		}
	}
	total := 0.0
	for j := range widths {
		if widths[j] < 12 {
			widths[j] = 12
		}
		if widths[j] > pageWidth/3 {
			widths[j] = pageWidth / 3
		}
		total += widths[j]
	}
	if total > pageWidth {
		for j := range widths {
			widths[j] *= pageWidth / total
		}
	}

	r.pdf.Ln(1)
	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
			r.pdf.SetFillColor(230, 230, 230)
		}
		r.pdf.SetFont(fontFamily, style, size)

		lines := make([][]string, cols)
		height := 1
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = r.tr(row[j])
			}
			lines[j] = r.pdf.SplitText(cell, widths[j]-2)
			if len(lines[j]) > height {
				height = len(lines[j])
			}
		}
		rowHeight := float64(height)*lh + 1

		x, y := r.pdf.GetX(), r.pdf.GetY()
		if y+rowHeight > pageBottom {
			r.pdf.AddPage()
			x, y = r.pdf.GetX(), r.pdf.GetY()
		}
		cx := x
		for j := 0; j < cols; j++ {
			fill := "D"
			if i == 0 {
				fill = "FD"
			}
			r.pdf.Rect(cx, y, widths[j], rowHeight, fill)
			for k, line := range lines[j] {
				r.pdf.SetXY(cx+1, y+0.5+float64(k)*lh)
				r.pdf.CellFormat(widths[j]-2, lh, line, "", 0, "L", false, 0, "")
			}
			cx += widths[j]
		}
		r.pdf.SetXY(x, y+rowHeight)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.pdf.Ln(3)
	r.setFont()
}
