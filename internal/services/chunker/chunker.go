// Package chunker splits extracted report text into token-bounded chunks
// that track the pages they came from.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ternarybob/indepth/internal/models"
)

// CharsPerToken is the rough characters-per-token ratio used for estimates.
// It sits between Korean (~3) and English (~4) prose.
const CharsPerToken = 3.5

// pageSeparator joins page texts into the full text
const pageSeparator = "\n\n"

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	columnGap      = regexp.MustCompile(`\s{3,}`)
)

// Options are the token budgets for a chunk
type Options struct {
	TargetTokens int
	MinTokens    int
	MaxTokens    int
}

// DefaultOptions returns the 320/256/384 budget
func DefaultOptions() Options {
	return Options{TargetTokens: 320, MinTokens: 256, MaxTokens: 384}
}

// Chunker is stateless and safe for concurrent use
type Chunker struct {
	opts Options
}

// New creates a Chunker. Zero budgets fall back to DefaultOptions.
func New(opts Options) *Chunker {
	def := DefaultOptions()
	if opts.TargetTokens <= 0 {
		opts.TargetTokens = def.TargetTokens
	}
	if opts.MinTokens <= 0 {
		opts.MinTokens = def.MinTokens
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = def.MaxTokens
	}
	return &Chunker{opts: opts}
}

// EstimateTokens returns max(1, floor(runes/3.5))
func EstimateTokens(text string) int {
	n := int(float64(utf8.RuneCountInString(text)) / CharsPerToken)
	if n < 1 {
		return 1
	}
	return n
}

type builder struct {
	reportID    string
	pageOffsets []int
	chunks      []*models.Chunk
}

// Chunk splits fullText (the page texts joined by a blank line) into chunks.
// Paragraphs are packed greedily up to MaxTokens. A paragraph that alone
// exceeds MaxTokens is split by sentence, then by line, then into fixed
// windows. A short trailing chunk is folded into its predecessor. pages may
// be empty, in which case chunks carry no page range.
func (c *Chunker) Chunk(reportID, fullText string, pages []string) []*models.Chunk {
	b := &builder{reportID: reportID, chunks: []*models.Chunk{}}

	offset := 0
	for _, page := range pages {
		offset += utf8.RuneCountInString(page) + len(pageSeparator)
		b.pageOffsets = append(b.pageOffsets, offset)
	}

	var paragraphs []string
	for _, p := range paragraphBreak.Split(fullText, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	maxTokens := c.opts.MaxTokens
	current := ""
	currentStart := 0
	textOffset := 0

	for _, para := range paragraphs {
		paraLen := utf8.RuneCountInString(para)

		if EstimateTokens(para) > maxTokens {
			if strings.TrimSpace(current) != "" {
				b.add(strings.TrimSpace(current), currentStart)
				current = ""
			}
			for _, piece := range splitLargeBlock(para, maxTokens) {
				b.add(piece, textOffset)
			}
			textOffset += paraLen + len(pageSeparator)
			currentStart = textOffset
			continue
		}

		if EstimateTokens(current+pageSeparator+para) > maxTokens && strings.TrimSpace(current) != "" {
			b.add(strings.TrimSpace(current), currentStart)
			current = para
			currentStart = textOffset
		} else if current != "" {
			current += pageSeparator + para
		} else {
			current = para
			currentStart = textOffset
		}

		textOffset += paraLen + len(pageSeparator)
	}

	if strings.TrimSpace(current) != "" {
		b.add(strings.TrimSpace(current), currentStart)
	}

	c.mergeTail(b)
	return b.chunks
}

func (c *Chunker) mergeTail(b *builder) {
	n := len(b.chunks)
	if n < 2 {
		return
	}
	last, prev := b.chunks[n-1], b.chunks[n-2]
	if last.TokenCount >= c.opts.MinTokens {
		return
	}
	merged := prev.Content + pageSeparator + last.Content
	if float64(EstimateTokens(merged)) > float64(c.opts.MaxTokens)*1.5 {
		return
	}
	prev.Content = merged
	prev.TokenCount = EstimateTokens(merged)
	prev.PageEnd = last.PageEnd
	b.chunks = b.chunks[:n-1]
}

func (b *builder) add(text string, startOffset int) {
	chunk := &models.Chunk{
		ReportID:   b.reportID,
		ChunkIndex: len(b.chunks),
		Content:    text,
		TokenCount: EstimateTokens(text),
		IsTable:    isTableBlock(text),
	}
	if len(b.pageOffsets) > 0 {
		start := findPage(startOffset, b.pageOffsets) + 1
		end := findPage(startOffset+utf8.RuneCountInString(text), b.pageOffsets) + 1
		chunk.PageStart = &start
		chunk.PageEnd = &end
	}
	b.chunks = append(b.chunks, chunk)
}

// findPage returns the 0-indexed page containing offset
func findPage(offset int, pageOffsets []int) int {
	for i, end := range pageOffsets {
		if offset < end {
			return i
		}
	}
	return len(pageOffsets) - 1
}

// isTableBlock reports whether more than half of the lines look columnar
func isTableBlock(text string) bool {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return false
	}
	columnar := 0
	for _, line := range lines {
		if strings.ContainsAny(line, "\t|") || len(columnGap.FindAllStringIndex(line, -1)) >= 2 {
			columnar++
		}
	}
	return float64(columnar)/float64(len(lines)) > 0.5
}

func splitLargeBlock(text string, maxTokens int) []string {
	sentences := splitSentences(text)
	if len(sentences) <= 1 {
		sentences = strings.Split(text, "\n")
	}
	if len(sentences) <= 1 {
		return windows(text, int(float64(maxTokens)*CharsPerToken))
	}

	var result []string
	current := ""
	for _, s := range sentences {
		if EstimateTokens(current+" "+s) > maxTokens && current != "" {
			result = append(result, strings.TrimSpace(current))
			current = s
		} else if current != "" {
			current = strings.TrimSpace(current + " " + s)
		} else {
			current = s
		}
	}
	if strings.TrimSpace(current) != "" {
		result = append(result, strings.TrimSpace(current))
	}
	return result
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '。'
}

// splitSentences cuts at whitespace runs that follow sentence-ending punctuation.
// The whitespace is dropped and the punctuation stays with its sentence.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		out = append(out, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	return append(out, string(runes[start:]))
}

// windows splits text into consecutive pieces of size runes
func windows(text string, size int) []string {
	if size < 1 {
		size = 1
	}
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}
