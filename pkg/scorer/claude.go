package scorer

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rufuslabs/rufus/pkg/utils"
)

const defaultClaudeModel = "claude-3-5-haiku-latest"

const scoreSystemPrompt = "You rate how relevant a text passage is to an instruction. " +
	"Reply with a single decimal number between 0.0 and 1.0 and nothing else."

const summarySystemPrompt = "Summarize the following text in at most three sentences. " +
	"Reply with the summary only."

// Claude scores relevance and produces summaries via the Anthropic API.
// It implements both Scorer and Summarizer.
type Claude struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClaude creates a Claude-backed scorer. An empty model selects a
// default small model suited to scoring.
func NewClaude(apiKey, model string) *Claude {
	if model == "" {
		model = defaultClaudeModel
	}
	return &Claude{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: 256,
	}
}

// Score implements Scorer. The model is asked for a bare decimal; anything
// unparseable is an error so the extractor can skip the page.
func (c *Claude) Score(ctx context.Context, instruction, chunk string) (float64, error) {
	prompt := fmt.Sprintf("Instruction: %s\n\nPassage:\n%s", instruction, utils.TruncateText(chunk, 4000))

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 16,
		System:    []anthropic.TextBlockParam{{Text: scoreSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("claude scoring failed: %w", err)
	}

	reply := firstText(msg)
	score, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, fmt.Errorf("claude returned non-numeric score %q: %w", reply, err)
	}

	return math.Min(1, math.Max(0, score)), nil
}

// Summarize implements Summarizer.
func (c *Claude) Summarize(ctx context.Context, text string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: summarySystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(utils.TruncateText(text, 8000))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude summarization failed: %w", err)
	}

	summary := strings.TrimSpace(firstText(msg))
	if summary == "" {
		return "", fmt.Errorf("claude returned an empty summary")
	}
	return summary, nil
}

func firstText(msg *anthropic.Message) string {
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}
