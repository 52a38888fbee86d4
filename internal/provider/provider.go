// Package provider implements the LLM provider gateway: given a model, a
// system prompt, and an ordered message list, it returns generated text plus
// token usage.
package provider

import (
	"context"

	"github.com/parleylabs/parley/internal/domain"
)

// Completion is the result of one provider call.
type Completion struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// TotalTokens returns input + output tokens.
func (c *Completion) TotalTokens() int64 {
	return c.InputTokens + c.OutputTokens
}

// Gateway is the capability the agent core depends on. Generate carries
// conversational framing; GenerateOnce is the single-shot variant used for
// overhead calls (summarization, fact extraction).
type Gateway interface {
	Generate(ctx context.Context, modelID, systemPrompt string, messages []domain.Message) (*Completion, error)
	GenerateOnce(ctx context.Context, modelID, instruction, prompt string) (*Completion, error)
}
