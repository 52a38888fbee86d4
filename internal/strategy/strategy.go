// Package strategy computes, per turn, the exact message list sent to the
// model. Everything in this package is a pure function of conversation
// state and configuration; overhead model calls (summarization, fact
// extraction) are orchestrated by the agent, not here.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/parleylabs/parley/internal/domain"
)

// Kind tags a strategy configuration variant.
type Kind string

const (
	KindSlidingWindow Kind = "sliding-window"
	KindStickyFacts   Kind = "sticky-facts"
	KindBranching     Kind = "branching"
	KindSummarization Kind = "summarization"
)

// Config is a closed set of strategy variants. Exactly one is active per
// agent; switching does not erase history, only how outbound lists are
// derived from it.
type Config interface {
	Kind() Kind
	// sealed prevents implementations outside this package, so a type
	// switch over Config variants is exhaustive.
	sealed()
}

// SlidingWindow sends only the last WindowSize messages.
type SlidingWindow struct {
	WindowSize int
}

// StickyFacts prepends an extracted-facts block to a sliding window.
type StickyFacts struct {
	WindowSize int
}

// Branching sends the full active-branch history untruncated.
type Branching struct{}

// Summarization compresses old history into summaries and prepends them.
type Summarization struct {
	RecentWindowSize int
	SummaryBatchSize int
	Enabled          bool
}

func (SlidingWindow) Kind() Kind { return KindSlidingWindow }
func (StickyFacts) Kind() Kind   { return KindStickyFacts }
func (Branching) Kind() Kind     { return KindBranching }
func (Summarization) Kind() Kind { return KindSummarization }

func (SlidingWindow) sealed() {}
func (StickyFacts) sealed()   {}
func (Branching) sealed()     {}
func (Summarization) sealed() {}

// State carries the strategy side-state that some variants fold into the
// outbound list.
type State struct {
	Facts     map[string]string
	Summaries []string
}

// BuildOutbound computes the message list for the next model call. It never
// mutates history and performs no clamping of configured sizes; callers are
// responsible for validating configuration before it reaches here.
func BuildOutbound(history []domain.Message, cfg Config, st State) []domain.Message {
	switch c := cfg.(type) {
	case SlidingWindow:
		return lastN(history, c.WindowSize)
	case StickyFacts:
		window := lastN(history, c.WindowSize)
		out := make([]domain.Message, 0, len(window)+2)
		out = append(out,
			domain.Message{Role: domain.RoleUser, Content: RenderFactsBlock(st.Facts)},
			domain.Message{Role: domain.RoleAssistant, Content: factsAck},
		)
		return append(out, window...)
	case Branching:
		return domain.CopyMessages(history)
	case Summarization:
		if len(st.Summaries) == 0 {
			return domain.CopyMessages(history)
		}
		out := make([]domain.Message, 0, len(history)+2)
		out = append(out,
			domain.Message{Role: domain.RoleUser, Content: RenderSummaryBlock(st.Summaries)},
			domain.Message{Role: domain.RoleAssistant, Content: summaryAck},
		)
		return append(out, history...)
	default:
		// Unreachable: Config is sealed.
		return domain.CopyMessages(history)
	}
}

// lastN returns the trailing n messages, oldest-first, or the whole history
// when it is shorter than n.
func lastN(history []domain.Message, n int) []domain.Message {
	if n >= len(history) {
		return domain.CopyMessages(history)
	}
	return domain.CopyMessages(history[len(history)-n:])
}

// Fixed acknowledgement stand-ins so the provider sees coherent turn pairs
// before real history resumes.
const (
	factsAck   = "Understood. I will keep these facts in mind for the rest of the conversation."
	summaryAck = "Got it. I will continue the conversation from that summary."
)

// RenderFactsBlock serializes the facts table as a labeled block, keys
// sorted for deterministic output.
func RenderFactsBlock(facts map[string]string) string {
	var b strings.Builder
	b.WriteString("Here are facts established earlier in this conversation:\n")
	if len(facts) == 0 {
		b.WriteString("(no facts recorded yet)")
		return b.String()
	}
	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, facts[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderSummaryBlock concatenates all summaries produced so far, labeled in
// order.
func RenderSummaryBlock(summaries []string) string {
	var b strings.Builder
	b.WriteString("Summaries of earlier parts of this conversation, oldest first:\n")
	for i, s := range summaries {
		fmt.Fprintf(&b, "\n[Summary %d]\n%s\n", i+1, s)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderBatch renders a batch of messages as "role: content" blocks joined
// by blank lines, the input format for summarization calls.
func RenderBatch(batch []domain.Message) string {
	lines := make([]string, 0, len(batch))
	for _, m := range batch {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n\n")
}
