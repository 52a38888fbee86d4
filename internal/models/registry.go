// Package models holds the static model registry consulted when a chat
// request names a model identifier.
package models

// Provider identifies which gateway client serves a model.
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderDeepSeek   Provider = "deepseek"
	ProviderGemini     Provider = "gemini"
)

// Pricing is USD per one million tokens.
type Pricing struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// Config describes one selectable model.
type Config struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	Tier          string   `json:"tier"` // weak | medium | strong
	Provider      Provider `json:"provider"`
	Pricing       Pricing  `json:"pricing"`
	ContextWindow int      `json:"contextWindow"`
}

// Registry is the static table of known models, ordered for display.
var Registry = []Config{
	{
		ID:            "google/gemma-3n-e2b-it:free",
		Label:         "Gemma 3n 2B (Overflow Demo)",
		Tier:          "weak",
		Provider:      ProviderOpenRouter,
		Pricing:       Pricing{Input: 0, Output: 0},
		ContextWindow: 8_192,
	},
	{
		ID:            "arcee-ai/trinity-mini:free",
		Label:         "Arcee Trinity Mini 3B (Weak)",
		Tier:          "weak",
		Provider:      ProviderOpenRouter,
		Pricing:       Pricing{Input: 0, Output: 0},
		ContextWindow: 131_072,
	},
	{
		ID:            "nvidia/nemotron-3-nano-30b-a3b:free",
		Label:         "NVIDIA Nemotron Nano 3B (Medium)",
		Tier:          "medium",
		Provider:      ProviderOpenRouter,
		Pricing:       Pricing{Input: 0, Output: 0},
		ContextWindow: 262_144,
	},
	{
		ID:            "stepfun/step-3.5-flash:free",
		Label:         "StepFun Step 3.5 Flash (Strong)",
		Tier:          "strong",
		Provider:      ProviderOpenRouter,
		Pricing:       Pricing{Input: 0, Output: 0},
		ContextWindow: 262_144,
	},
	{
		ID:            "gemini-2.0-flash",
		Label:         "Gemini 2.0 Flash (Medium)",
		Tier:          "medium",
		Provider:      ProviderGemini,
		Pricing:       Pricing{Input: 0.10, Output: 0.40},
		ContextWindow: 1_048_576,
	},
	{
		ID:            "deepseek-chat",
		Label:         "DeepSeek Chat (Paid)",
		Tier:          "strong",
		Provider:      ProviderDeepSeek,
		Pricing:       Pricing{Input: 0.28, Output: 0.42},
		ContextWindow: 128_000,
	},
}

// DefaultModelID is used when a request names no model or an unknown one.
const DefaultModelID = "nvidia/nemotron-3-nano-30b-a3b:free"

// Lookup returns the config for id, falling back to the default entry when
// the identifier is absent from the registry.
func Lookup(id string) Config {
	for _, m := range Registry {
		if m.ID == id {
			return m
		}
	}
	return Default()
}

// Known reports whether id names a registry entry.
func Known(id string) bool {
	for _, m := range Registry {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Default returns the fallback model config.
func Default() Config {
	for _, m := range Registry {
		if m.ID == DefaultModelID {
			return m
		}
	}
	return Registry[0]
}
