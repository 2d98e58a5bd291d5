// Package scorer provides the relevance-scoring capability used by the
// content extractor: score(instruction, chunk) -> float in [0,1]. Two
// implementations ship by default, a deterministic lexical scorer and an
// LLM-backed scorer.
package scorer

import (
	"context"
	"math"

	"github.com/rufuslabs/rufus/pkg/utils"
)

// Scorer rates how relevant a text chunk is to an instruction. Scores are
// in [0,1] and deterministic for identical inputs.
type Scorer interface {
	Score(ctx context.Context, instruction, chunk string) (float64, error)
}

// Summarizer condenses a piece of text. Optional capability; callers fall
// back to truncation when it is absent or fails.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Lexical scores by cosine similarity of term-frequency vectors after stop
// word removal. No network access; useful as the default and in tests.
type Lexical struct{}

// NewLexical creates a lexical scorer.
func NewLexical() *Lexical { return &Lexical{} }

// Score implements Scorer.
func (l *Lexical) Score(_ context.Context, instruction, chunk string) (float64, error) {
	a := termFrequencies(instruction)
	b := termFrequencies(chunk)
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}

	var dot, normA, normB float64
	for term, fa := range a {
		normA += fa * fa
		if fb, ok := b[term]; ok {
			dot += fa * fb
		}
	}
	for _, fb := range b {
		normB += fb * fb
	}

	if dot == 0 {
		return 0, nil
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Min(1, math.Max(0, score)), nil
}

func termFrequencies(text string) map[string]float64 {
	freq := make(map[string]float64)
	for _, token := range utils.Tokenize(text) {
		freq[token]++
	}
	return freq
}
