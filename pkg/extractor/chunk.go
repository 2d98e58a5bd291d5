package extractor

import (
	"strings"

	"github.com/rufuslabs/rufus/pkg/utils"
)

// SplitChunks divides text into contiguous chunks of at most maxSize
// characters, preferring sentence boundaries and never breaking mid-word.
func SplitChunks(text string, maxSize int) []string {
	text = utils.CleanText(text)
	if text == "" {
		return nil
	}
	if maxSize <= 0 || len(text) <= maxSize {
		return []string{text}
	}

	sentences := splitSentences(text)

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			currentLen = 0
		}
	}

	for _, sentence := range sentences {
		// A single sentence longer than the cap is split on word boundaries.
		if len(sentence) > maxSize {
			flush()
			for _, piece := range splitWords(sentence, maxSize) {
				chunks = append(chunks, piece)
			}
			continue
		}

		if currentLen+len(sentence)+1 > maxSize {
			flush()
		}
		current = append(current, sentence)
		currentLen += len(sentence) + 1
	}
	flush()

	return chunks
}

// splitSentences breaks text after terminal punctuation followed by a space.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(text[start:i+1]))
			start = i + 2
		}
	}
	if start < len(text) {
		if tail := strings.TrimSpace(text[start:]); tail != "" {
			sentences = append(sentences, tail)
		}
	}

	return sentences
}

// splitWords packs words into pieces of at most maxSize characters. A
// single word longer than maxSize becomes its own piece rather than being
// cut in the middle.
func splitWords(text string, maxSize int) []string {
	words := strings.Fields(text)

	var pieces []string
	var current []string
	currentLen := 0

	for _, word := range words {
		if currentLen > 0 && currentLen+len(word)+1 > maxSize {
			pieces = append(pieces, strings.Join(current, " "))
			current = current[:0]
			currentLen = 0
		}
		current = append(current, word)
		currentLen += len(word) + 1
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(current, " "))
	}

	return pieces
}
