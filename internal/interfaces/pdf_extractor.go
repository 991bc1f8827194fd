package interfaces

import (
	"context"
)

// PDFPageContent is the text of one page. PageNumber is 1-indexed.
type PDFPageContent struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// PDFExtractionResult contains per-page text and the page texts joined by a blank line.
// Pages without text are omitted.
type PDFExtractionResult struct {
	PageCount int              `json:"page_count"`
	Pages     []PDFPageContent `json:"pages"`
	FullText  string           `json:"full_text"`
	Method    string           `json:"method"`
}

// PDFExtractor extracts text content from PDF files on disk
type PDFExtractor interface {
	ExtractPages(ctx context.Context, path string) (*PDFExtractionResult, error)
}
