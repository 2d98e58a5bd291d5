package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunksShortText(t *testing.T) {
	chunks := SplitChunks("One short sentence.", 1024)
	require.Len(t, chunks, 1)
	assert.Equal(t, "One short sentence.", chunks[0])
}

func TestSplitChunksEmptyText(t *testing.T) {
	assert.Nil(t, SplitChunks("", 1024))
	assert.Nil(t, SplitChunks("   \n\t  ", 1024))
}

func TestSplitChunksSentenceBoundaries(t *testing.T) {
	text := "First sentence here. Second sentence here. Third sentence here."
	chunks := SplitChunks(text, 45)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 45)
	}
	// Nothing lost, nothing duplicated.
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestSplitChunksNoMidWordBreaks(t *testing.T) {
	text := strings.Repeat("somewhat lengthy words appear throughout this passage ", 20)
	chunks := SplitChunks(text, 64)

	original := strings.Fields(text)
	var reassembled []string
	for _, chunk := range chunks {
		reassembled = append(reassembled, strings.Fields(chunk)...)
	}
	assert.Equal(t, original, reassembled, "every word must survive intact")
}

func TestSplitChunksOversizedSentence(t *testing.T) {
	// One sentence far longer than the cap, no terminal punctuation inside.
	text := strings.Repeat("word ", 100)
	chunks := SplitChunks(text, 32)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 32)
	}
}

func TestSplitChunksNormalizesWhitespace(t *testing.T) {
	chunks := SplitChunks("Spaced    out.\n\nNext   line.", 1024)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Spaced out. Next line.", chunks[0])
}
