package strategy

import (
	"fmt"
)

// Defaults applied when a request omits a tunable.
const (
	DefaultWindowSize       = 10
	DefaultRecentWindowSize = 6
	DefaultSummaryBatchSize = 6

	// minWindowSize is the smallest usable window: one full user/assistant
	// exchange. The engine itself never clamps; this is enforced here, at
	// the configuration boundary.
	minWindowSize = 2
)

// Request is the wire form of a strategy configuration as received by the
// route layer.
type Request struct {
	Type             string `json:"type"`
	WindowSize       int    `json:"windowSize,omitempty"`
	RecentWindowSize int    `json:"recentWindowSize,omitempty"`
	SummaryBatchSize int    `json:"summaryBatchSize,omitempty"`
	Enabled          *bool  `json:"enabled,omitempty"`
}

// Parse validates a wire request and produces a Config variant. Unknown
// types are an error; omitted sizes take defaults; window sizes are clamped
// to the minimum here so the engine can trust its inputs.
func Parse(req Request) (Config, error) {
	switch Kind(req.Type) {
	case KindSlidingWindow:
		return SlidingWindow{WindowSize: clampWindow(req.WindowSize, DefaultWindowSize)}, nil
	case KindStickyFacts:
		return StickyFacts{WindowSize: clampWindow(req.WindowSize, DefaultWindowSize)}, nil
	case KindBranching:
		return Branching{}, nil
	case KindSummarization:
		enabled := true
		if req.Enabled != nil {
			enabled = *req.Enabled
		}
		return Summarization{
			RecentWindowSize: clampWindow(req.RecentWindowSize, DefaultRecentWindowSize),
			SummaryBatchSize: clampWindow(req.SummaryBatchSize, DefaultSummaryBatchSize),
			Enabled:          enabled,
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy type %q", req.Type)
	}
}

// Default is the strategy used when a session specifies none.
func Default() Config {
	return SlidingWindow{WindowSize: DefaultWindowSize}
}

func clampWindow(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	if v < minWindowSize {
		return minWindowSize
	}
	return v
}
