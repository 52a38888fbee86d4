// Package agent implements the conversational agent core: per-session turn
// state, the context strategy pipeline, and token/cost accounting.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/parleylabs/parley/internal/domain"
	"github.com/parleylabs/parley/internal/models"
	"github.com/parleylabs/parley/internal/provider"
	"github.com/parleylabs/parley/internal/store"
	"github.com/parleylabs/parley/internal/strategy"
)

// DefaultSystemPrompt is used when a session does not supply one.
const DefaultSystemPrompt = "You must ALWAYS respond in English. Never use Chinese. " +
	"If input is English, output must be English only."

// maxCompressionPasses caps summarization calls within a single turn so a
// large overflow cannot trigger runaway overhead calls.
const maxCompressionPasses = 4

// Agent is the aggregate root for one session: model selection, system
// prompt, strategy configuration, turn history (or branch set), strategy
// side-state, and cumulative metrics. The mutex serializes turns so at most
// one is in flight per session.
type Agent struct {
	mu sync.Mutex

	sessionID    string
	model        models.Config
	systemPrompt string
	strategy     strategy.Config

	history        []domain.Message
	branches       []*Branch
	activeBranchID string

	facts     map[string]string
	summaries []string
	metrics   Metrics

	gateway provider.Gateway
	repo    store.Repository
}

// Options configures a new agent. Zero values take documented defaults.
type Options struct {
	ModelID      string
	SystemPrompt string
	Strategy     strategy.Config
	History      []domain.Message
}

// New creates an agent for a session. An unknown or empty model id resolves
// to the registry default; History seeds restored turn history (summaries,
// facts, and branches are in-memory only and never restored).
func New(sessionID string, gateway provider.Gateway, repo store.Repository, opts Options) *Agent {
	cfg := opts.Strategy
	if cfg == nil {
		cfg = strategy.Default()
	}
	prompt := opts.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	return &Agent{
		sessionID:    sessionID,
		model:        models.Lookup(opts.ModelID),
		systemPrompt: prompt,
		strategy:     cfg,
		history:      domain.CopyMessages(opts.History),
		facts:        make(map[string]string),
		gateway:      gateway,
		repo:         repo,
	}
}

// TurnResult reports one completed exchange.
type TurnResult struct {
	Reply          string        `json:"reply"`
	Model          string        `json:"model"`
	Tier           string        `json:"tier"`
	InputTokens    int64         `json:"inputTokens"`
	OutputTokens   int64         `json:"outputTokens"`
	OverheadTokens int64         `json:"overheadTokens"`
	Cost           float64       `json:"cost"`
	Elapsed        time.Duration `json:"-"`
	ResponseTimeMs int64         `json:"responseTime"`
	Session        Metrics       `json:"session"`
	UserMessageID  int64         `json:"-"`
}

// Chat runs one full turn: append the user message, run any strategy
// overhead call, build the outbound list, invoke the provider, commit the
// assistant response, and update metrics.
//
// The user message is appended to in-memory history before the outbound
// call and is not rolled back on failure; a retry reuses the same history.
// Durable persistence of both the user and assistant rows happens only
// after a successful generation, so a failed turn leaves persisted history
// untouched.
func (a *Agent) Chat(ctx context.Context, userMessage string) (*TurnResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	model := a.model
	start := time.Now()

	a.appendActive(domain.Message{Role: domain.RoleUser, Content: userMessage})

	overhead, err := a.runOverhead(ctx, userMessage)
	if err != nil {
		return nil, err
	}

	outbound := strategy.BuildOutbound(a.activeHistory(), a.strategy, strategy.State{
		Facts:     a.facts,
		Summaries: a.summaries,
	})

	slog.Info("dispatching turn",
		"session_id", a.sessionID,
		"model", model.ID,
		"tier", model.Tier,
		"strategy", a.strategy.Kind(),
		"history", len(a.activeHistory()),
		"outbound", len(outbound))

	comp, err := a.gateway.Generate(ctx, model.ID, a.systemPrompt, outbound)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}

	a.appendActive(domain.Message{Role: domain.RoleAssistant, Content: comp.Text})
	userMsgID := a.persistTurn(ctx, userMessage, comp.Text, model.ID)

	session := a.metrics.RecordTurn(comp.InputTokens, comp.OutputTokens, overhead, model.Pricing)
	elapsed := time.Since(start)
	turnCost := float64(comp.InputTokens)/1e6*model.Pricing.Input +
		float64(comp.OutputTokens)/1e6*model.Pricing.Output

	slog.Info("turn complete",
		"session_id", a.sessionID,
		"elapsed", elapsed,
		"input_tokens", comp.InputTokens,
		"output_tokens", comp.OutputTokens,
		"overhead_tokens", overhead,
		"cost", turnCost)

	return &TurnResult{
		Reply:          comp.Text,
		Model:          model.ID,
		Tier:           model.Tier,
		InputTokens:    comp.InputTokens,
		OutputTokens:   comp.OutputTokens,
		OverheadTokens: overhead,
		Cost:           turnCost,
		Elapsed:        elapsed,
		ResponseTimeMs: elapsed.Milliseconds(),
		Session:        session,
		UserMessageID:  userMsgID,
	}, nil
}

// runOverhead performs the strategy's auxiliary model call for this turn,
// if any, and returns the overhead token count. Callers must hold a.mu.
func (a *Agent) runOverhead(ctx context.Context, userMessage string) (int64, error) {
	switch cfg := a.strategy.(type) {
	case strategy.Summarization:
		if !cfg.Enabled {
			return 0, nil
		}
		return a.compress(ctx, cfg)
	case strategy.StickyFacts:
		return a.extractFacts(ctx, userMessage)
	default:
		return 0, nil
	}
}

// compress consumes oldest-first batches of the active history into the
// summary log while the overflow condition holds, capped per turn.
func (a *Agent) compress(ctx context.Context, cfg strategy.Summarization) (int64, error) {
	var overhead int64
	for pass := 0; pass < maxCompressionPasses; pass++ {
		history := a.activeHistory()
		if len(history)-cfg.RecentWindowSize < cfg.SummaryBatchSize {
			break
		}
		batch := history[:cfg.SummaryBatchSize]

		comp, err := a.gateway.GenerateOnce(ctx, a.model.ID, strategy.SummaryInstruction, strategy.RenderBatch(batch))
		if err != nil {
			return overhead, fmt.Errorf("summarize batch: %w", err)
		}
		overhead += comp.TotalTokens()

		a.summaries = append(a.summaries, comp.Text)
		a.setActiveHistory(domain.CopyMessages(history[cfg.SummaryBatchSize:]))

		slog.Info("history batch compressed",
			"session_id", a.sessionID,
			"batch", cfg.SummaryBatchSize,
			"remaining", len(history)-cfg.SummaryBatchSize,
			"summaries", len(a.summaries))
	}
	return overhead, nil
}

// extractFacts replaces the facts table with the extraction result. A
// well-formed JSON object replaces the table wholesale; any parse failure
// retains the previous table, logged but never surfaced to the end user.
func (a *Agent) extractFacts(ctx context.Context, userMessage string) (int64, error) {
	comp, err := a.gateway.GenerateOnce(ctx, a.model.ID, strategy.FactsInstruction,
		strategy.RenderFactsPrompt(a.facts, userMessage))
	if err != nil {
		return 0, fmt.Errorf("extract facts: %w", err)
	}

	facts, parseErr := strategy.ParseFacts(comp.Text)
	if parseErr != nil {
		slog.Warn("fact extraction unparsable, keeping previous table",
			"session_id", a.sessionID,
			"error", parseErr)
		return comp.TotalTokens(), nil
	}

	a.facts = facts
	return comp.TotalTokens(), nil
}

// persistTurn writes the completed exchange to the durable store and
// returns the user message row id. Persistence failures are logged and do
// not fail the turn: the response is already committed to session state.
func (a *Agent) persistTurn(ctx context.Context, userMessage, reply, modelID string) int64 {
	if a.repo == nil {
		return 0
	}
	userID, err := a.repo.AppendMessage(ctx, a.sessionID, domain.RoleUser, userMessage, modelID)
	if err != nil {
		slog.Error("persist user message failed", "session_id", a.sessionID, "error", err)
		return 0
	}
	if _, err := a.repo.AppendMessage(ctx, a.sessionID, domain.RoleAssistant, reply, modelID); err != nil {
		slog.Error("persist assistant message failed", "session_id", a.sessionID, "error", err)
	}
	return userID
}

// activeHistory returns the message list turns currently append to: the
// active branch when one exists, the base history otherwise. Callers must
// hold a.mu.
func (a *Agent) activeHistory() []domain.Message {
	if b := a.activeBranch(); b != nil {
		return b.Messages
	}
	return a.history
}

func (a *Agent) setActiveHistory(msgs []domain.Message) {
	if b := a.activeBranch(); b != nil {
		b.Messages = msgs
		return
	}
	a.history = msgs
}

func (a *Agent) appendActive(msg domain.Message) {
	if b := a.activeBranch(); b != nil {
		b.Messages = append(b.Messages, msg)
		return
	}
	a.history = append(a.history, msg)
}

// History returns a copy of the active turn history.
func (a *Agent) History() []domain.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.CopyMessages(a.activeHistory())
}

// SessionID returns the owning session identifier.
func (a *Agent) SessionID() string {
	return a.sessionID
}

// Model returns the currently selected model config.
func (a *Agent) Model() models.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

// SetModel switches the active model. Unknown identifiers keep the current
// model; earlier turns are never repriced.
func (a *Agent) SetModel(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !models.Known(id) {
		slog.Warn("ignoring unknown model id", "session_id", a.sessionID, "model", id)
		return
	}
	a.model = models.Lookup(id)
}

// SetStrategy switches the active strategy. Turn history is preserved; only
// the derivation of future outbound lists changes.
func (a *Agent) SetStrategy(cfg strategy.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.strategy = cfg
}

// Strategy returns the active strategy configuration.
func (a *Agent) Strategy() strategy.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.strategy
}

// MetricsSnapshot returns the cumulative session metrics.
func (a *Agent) MetricsSnapshot() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metrics
}

// Facts returns a copy of the current facts table.
func (a *Agent) Facts() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, len(a.facts))
	for k, v := range a.facts {
		out[k] = v
	}
	return out
}

// Summaries returns a copy of the summary log.
func (a *Agent) Summaries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.summaries))
	copy(out, a.summaries)
	return out
}
