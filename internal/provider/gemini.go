package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/parleylabs/parley/internal/domain"
)

// GeminiClient serves registry entries backed by the Google GenAI API.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini-backed gateway client.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Generate sends the conversation history with the system prompt attached
// as a system instruction.
func (c *GeminiClient) Generate(ctx context.Context, modelID, systemPrompt string, messages []domain.Message) (*Completion, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	var cfg *genai.GenerateContentConfig
	if systemPrompt != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, modelID, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return completionFromGenAI(resp, modelID)
}

// GenerateOnce sends a single prompt with the instruction as the system
// instruction and no chat framing.
func (c *GeminiClient) GenerateOnce(ctx context.Context, modelID, instruction, prompt string) (*Completion, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
	}
	resp, err := c.client.Models.GenerateContent(ctx, modelID, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate once: %w", err)
	}
	return completionFromGenAI(resp, modelID)
}

func completionFromGenAI(resp *genai.GenerateContentResponse, modelID string) (*Completion, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates for model %s", modelID)
	}
	out := &Completion{Text: resp.Candidates[0].Content.Parts[0].Text}
	if resp.UsageMetadata != nil {
		out.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}
