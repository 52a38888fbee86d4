package strategy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FactsInstruction is the fixed system instruction for fact-extraction
// overhead calls. It demands a bare JSON object so the response can be
// parsed mechanically.
const FactsInstruction = "You maintain a table of durable facts about a conversation. " +
	"Given the current fact table and the user's latest message, return the updated table " +
	"as a bare JSON object mapping short labels to short string values. " +
	"Return ONLY the JSON object: no markdown fences, no explanation, no surrounding text."

// SummaryInstruction is the fixed system instruction for summarization
// overhead calls.
const SummaryInstruction = "Summarize the following conversation excerpt in a few sentences. " +
	"Preserve names, decisions, and any concrete details a future reply would need. " +
	"Return only the summary text."

// RenderFactsPrompt builds the single-shot prompt for a fact-extraction
// call from the current table and the new user message.
func RenderFactsPrompt(facts map[string]string, userMessage string) string {
	current := "(no facts yet)"
	if len(facts) > 0 {
		current = RenderFactsBlock(facts)
	}
	return fmt.Sprintf("Current fact table:\n%s\n\nNew user message:\n%s", current, userMessage)
}

// ParseFacts parses a fact-extraction response into a label->value table.
// The result is explicit: a parse failure returns a nil map and the error,
// and callers keep their previous table. Markdown fences are tolerated
// because models add them despite instructions; anything else malformed is
// a failure.
func ParseFacts(text string) (map[string]string, error) {
	trimmed := stripFences(strings.TrimSpace(text))
	if trimmed == "" {
		return nil, fmt.Errorf("empty extraction response")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("parse facts object: %w", err)
	}

	facts := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("fact %q is not a string value", k)
		}
		facts[k] = s
	}
	return facts, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
