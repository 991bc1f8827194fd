package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/indepth/internal/models"
)

func assertContiguous(t *testing.T, chunks []*models.Chunk) {
	t.Helper()
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"abcdefg", 2},
		{strings.Repeat("x", 35), 10},
		{strings.Repeat("한", 7), 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.text), "%q", tt.text)
	}
}

func TestChunk_Empty(t *testing.T) {
	c := New(DefaultOptions())
	assert.Empty(t, c.Chunk("r1", "", nil))
	assert.Empty(t, c.Chunk("r1", "  \n\n  \n ", nil))
	assert.NotNil(t, c.Chunk("r1", "", nil))
}

func TestChunk_SinglePage(t *testing.T) {
	text := "Just one short page of text."
	chunks := New(DefaultOptions()).Chunk("r1", text, []string{text})

	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, "r1", c.ReportID)
	assert.Equal(t, text, c.Content)
	assert.Equal(t, 8, c.TokenCount)
	assert.Equal(t, 1, *c.PageStart)
	assert.Equal(t, 1, *c.PageEnd)
	assert.False(t, c.IsTable)
}

func TestChunk_PacksParagraphs(t *testing.T) {
	var paras []string
	for i := 0; i < 6; i++ {
		paras = append(paras, fmt.Sprintf("Para%d ", i)+strings.TrimSpace(strings.Repeat("lorem ipsum dolor sit amet ", 20)))
	}
	text := strings.Join(paras, "\n\n")

	chunks := New(DefaultOptions()).Chunk("r1", text, nil)

	require.Len(t, chunks, 3)
	assertContiguous(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, 312, c.TokenCount)
		assert.Equal(t, paras[2*i]+"\n\n"+paras[2*i+1], c.Content)
		assert.Nil(t, c.PageStart)
		assert.Nil(t, c.PageEnd)
	}
}

func TestChunk_OversizedMiddleParagraph(t *testing.T) {
	var sentences []string
	for i := 0; i < 80; i++ {
		sentences = append(sentences, fmt.Sprintf("Sentence number %d talks about inflation.", i))
	}
	text := strings.Join([]string{
		"Intro paragraph about rates.",
		strings.Join(sentences, " "),
		"Closing remarks.",
	}, "\n\n")

	chunks := New(DefaultOptions()).Chunk("r1", text, nil)

	require.Len(t, chunks, 4)
	assertContiguous(t, chunks)
	assert.Equal(t, "Intro paragraph about rates.", chunks[0].Content)
	assert.Equal(t, 380, chunks[1].TokenCount)
	assert.Equal(t, 383, chunks[2].TokenCount)
	assert.True(t, strings.HasPrefix(chunks[1].Content, "Sentence number 0 talks"))
	assert.True(t, strings.HasPrefix(chunks[2].Content, "Sentence number 32 talks"))

	// The short closing paragraph is folded into the last sentence chunk
	assert.True(t, strings.HasSuffix(chunks[3].Content, "inflation.\n\nClosing remarks."))
	assert.Len(t, chunks[3].Content, 689)

	// Every word survives in order
	var joined []string
	for _, c := range chunks {
		joined = append(joined, c.Content)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(joined, " ")))
}

func TestChunk_PageTracking(t *testing.T) {
	p1 := strings.Repeat("a", 30)
	p2 := strings.Repeat("b", 30)

	chunks := New(Options{TargetTokens: 8, MinTokens: 1, MaxTokens: 10}).Chunk("r1", p1+"\n\n"+p2, []string{p1, p2})

	require.Len(t, chunks, 2)
	assert.Equal(t, 1, *chunks[0].PageStart)
	assert.Equal(t, 1, *chunks[0].PageEnd)
	assert.Equal(t, 2, *chunks[1].PageStart)
	assert.Equal(t, 2, *chunks[1].PageEnd)
}

func TestChunk_MergesShortTail(t *testing.T) {
	text := strings.Repeat("x", 1200) + "\n\n" + strings.Repeat("y", 100)

	chunks := New(DefaultOptions()).Chunk("r1", text, nil)

	require.Len(t, chunks, 1)
	assert.Equal(t, 372, chunks[0].TokenCount)
	assert.Equal(t, text, chunks[0].Content)
}

func TestChunk_TailTooLargeToMerge(t *testing.T) {
	// 380 + 200 tokens merged would exceed 1.5 x 384
	text := strings.Repeat("x", 1330) + "\n\n" + strings.Repeat("y", 700)

	chunks := New(DefaultOptions()).Chunk("r1", text, nil)
	require.Len(t, chunks, 2)
	assert.Equal(t, 200, chunks[1].TokenCount)
}

func TestChunk_ForcedWindows(t *testing.T) {
	text := strings.Repeat("z", 2000)

	pieces := splitLargeBlock(text, 384)
	require.Len(t, pieces, 2)
	assert.Len(t, pieces[0], 1344)
	assert.Len(t, pieces[1], 656)

	// The 187-token second window is merged back (572 <= 576)
	chunks := New(DefaultOptions()).Chunk("r1", text, []string{text})
	require.Len(t, chunks, 1)
	assert.Equal(t, 572, chunks[0].TokenCount)
	assert.Equal(t, 1, *chunks[0].PageStart)
}

func TestChunk_Multibyte(t *testing.T) {
	text := strings.Repeat("가", 2000)
	pieces := splitLargeBlock(text, 384)
	require.Len(t, pieces, 2)
	assert.Equal(t, 1344, len([]rune(pieces[0])))
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"One. Two! Three? Four", []string{"One.", "Two!", "Three?", "Four"}},
		{"금리 인상。  다음 문장", []string{"금리 인상。", "다음 문장"}},
		{"v1.2 is out", []string{"v1.2 is out"}},
		{"No punctuation here", []string{"No punctuation here"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitSentences(tt.text))
	}
}

func TestSplitLargeBlock_LineFallback(t *testing.T) {
	line := strings.Repeat("w", 700)
	pieces := splitLargeBlock(line+"\n"+line+"\n"+line, 384)
	// Two lines joined would be 400 tokens
	assert.Equal(t, []string{line, line, line}, pieces)
}

func TestIsTableBlock(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"pipes", "Name | Value\nA | 1\nB | 2", true},
		{"tabs", "a\tb\nc\td", true},
		{"space columns", "Revenue    2023    2024\nCost    10    20\nnote", true},
		{"single line", "a | b", false},
		{"prose", "Rates rose.\nMarkets fell.\nA | b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTableBlock(tt.text))
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, DefaultOptions(), c.opts)
}
