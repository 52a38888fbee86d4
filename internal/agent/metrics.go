package agent

import "github.com/parleylabs/parley/internal/models"

// Metrics accumulates per-session token and cost counters. Every field is
// monotone non-decreasing for the life of the agent; counters reset only
// when the session is deleted.
type Metrics struct {
	InputTokens    int64   `json:"inputTokens"`
	OutputTokens   int64   `json:"outputTokens"`
	OverheadTokens int64   `json:"overheadTokens"`
	Exchanges      int64   `json:"exchanges"`
	Cost           float64 `json:"cost"`
}

// RecordTurn adds one completed exchange and returns a snapshot. Cost is
// priced with the model active at the moment of the turn; a later model
// switch never reprices earlier turns.
func (m *Metrics) RecordTurn(input, output, overhead int64, pricing models.Pricing) Metrics {
	m.InputTokens += input
	m.OutputTokens += output
	m.OverheadTokens += overhead
	m.Exchanges++
	m.Cost += float64(input)/1e6*pricing.Input + float64(output)/1e6*pricing.Output
	return *m
}
