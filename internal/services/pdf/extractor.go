package pdf

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/interfaces"
)

// MethodContentStream identifies text recovered from page content streams
const MethodContentStream = "pdfcpu"

// Extractor implements the PDFExtractor interface using pdfcpu
type Extractor struct {
	logger arbor.ILogger
}

var _ interfaces.PDFExtractor = (*Extractor)(nil)

func NewExtractor(logger arbor.ILogger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractPages reads the text of every page in the PDF at path.
// Pages without text are left out, FullText joins the rest with a blank line.
func (e *Extractor) ExtractPages(ctx context.Context, path string) (*interfaces.PDFExtractionResult, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF %s: %w", path, err)
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, fmt.Errorf("invalid PDF %s: %w", path, err)
	}

	result := &interfaces.PDFExtractionResult{
		PageCount: pdfCtx.PageCount,
		Pages:     make([]interfaces.PDFPageContent, 0, pdfCtx.PageCount),
		Method:    MethodContentStream,
	}

	texts := make([]string, 0, pdfCtx.PageCount)
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil {
			e.logger.Warn().Err(err).Str("path", path).Int("page", pageNr).Msg("Failed to read page content")
			continue
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			e.logger.Warn().Err(err).Str("path", path).Int("page", pageNr).Msg("Failed to read page content")
			continue
		}

		text := strings.TrimSpace(TextFromContent(content))
		if text == "" {
			continue
		}
		result.Pages = append(result.Pages, interfaces.PDFPageContent{PageNumber: pageNr, Text: text})
		texts = append(texts, text)
	}

	result.FullText = strings.Join(texts, "\n\n")
	if len(result.Pages) == 0 {
		e.logger.Warn().Str("path", path).Msg("No text extracted")
	}

	e.logger.Debug().
		Str("path", path).
		Int("page_count", result.PageCount).
		Int("text_pages", len(result.Pages)).
		Msg("Extracted PDF text")

	return result, nil
}
