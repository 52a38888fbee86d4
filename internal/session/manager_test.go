package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/parleylabs/parley/internal/domain"
	"github.com/parleylabs/parley/internal/provider"
	"github.com/parleylabs/parley/internal/store"
	"github.com/parleylabs/parley/internal/strategy"
)

type fakeGateway struct{}

func (fakeGateway) Generate(context.Context, string, string, []domain.Message) (*provider.Completion, error) {
	return &provider.Completion{Text: "ok", InputTokens: 10, OutputTokens: 5}, nil
}

func (fakeGateway) GenerateOnce(context.Context, string, string, string) (*provider.Completion, error) {
	return &provider.Completion{Text: "ok"}, nil
}

func newTestManager(t *testing.T) (*Manager, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return NewManager(repo, fakeGateway{}, ""), repo
}

func TestResolveOrCreateMintsSessionID(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	a, id, err := m.ResolveOrCreate(context.Background(), "", "", nil)
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated session id")
	}
	if a == nil || a.SessionID() != id {
		t.Errorf("agent not bound to session id")
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 registered agent, got %d", m.Len())
	}
}

func TestResolveOrCreateReturnsLiveAgent(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	ctx := context.Background()

	a1, id, err := m.ResolveOrCreate(ctx, "", "", nil)
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	a2, id2, err := m.ResolveOrCreate(ctx, id, "", nil)
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if a1 != a2 || id != id2 {
		t.Error("expected the same live agent for a known session id")
	}
}

func TestResolveOrCreateAppliesOverrides(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	ctx := context.Background()

	_, id, err := m.ResolveOrCreate(ctx, "", "", nil)
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}

	a, _, err := m.ResolveOrCreate(ctx, id, "deepseek-chat", strategy.StickyFacts{WindowSize: 4})
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if a.Model().ID != "deepseek-chat" {
		t.Errorf("model override not applied: %q", a.Model().ID)
	}
	if a.Strategy().Kind() != strategy.KindStickyFacts {
		t.Errorf("strategy override not applied: %v", a.Strategy().Kind())
	}
}

// interposeRepo is an empty Repository whose ListMessages runs a callback
// once, letting a test interleave a competing request inside the window
// between the registry miss and the registration.
type interposeRepo struct {
	once     bool
	onListFn func(ctx context.Context, sessionID string)
}

func (r *interposeRepo) ListMessages(ctx context.Context, sessionID string) ([]domain.StoredMessage, error) {
	if !r.once && r.onListFn != nil {
		r.once = true
		r.onListFn(ctx, sessionID)
	}
	return nil, nil
}

func (r *interposeRepo) AppendMessage(context.Context, string, string, string, string) (int64, error) {
	return 0, nil
}

func (r *interposeRepo) ListMessagesWithFiles(context.Context, string) ([]store.MessageWithFiles, error) {
	return nil, nil
}

func (r *interposeRepo) AppendFile(context.Context, int64, string, string, string, []byte) (int64, error) {
	return 0, nil
}

func (r *interposeRepo) GetFile(context.Context, int64) (*domain.File, error) { return nil, nil }

func (r *interposeRepo) ListMessageFiles(context.Context, int64) ([]domain.FileInfo, error) {
	return nil, nil
}

func (r *interposeRepo) DeleteSession(context.Context, string) error { return nil }
func (r *interposeRepo) Ping(context.Context) error                  { return nil }
func (r *interposeRepo) Close() error                                { return nil }

func TestResolveOrCreateLosingRacerStillAppliesOverrides(t *testing.T) {
	t.Parallel()

	repo := &interposeRepo{}
	m := NewManager(repo, fakeGateway{}, "")
	// While the first request restores history, a second request registers
	// the same session with no overrides.
	repo.onListFn = func(ctx context.Context, sessionID string) {
		if _, _, err := m.ResolveOrCreate(ctx, sessionID, "", nil); err != nil {
			t.Errorf("competing ResolveOrCreate failed: %v", err)
		}
	}

	a, _, err := m.ResolveOrCreate(context.Background(), "sess-contended", "deepseek-chat", strategy.StickyFacts{WindowSize: 4})
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}

	if m.Len() != 1 {
		t.Fatalf("expected 1 registered agent, got %d", m.Len())
	}
	if a != m.Get("sess-contended") {
		t.Error("expected the already-registered agent to win")
	}
	// The losing request's overrides still land on the surviving agent.
	if a.Model().ID != "deepseek-chat" {
		t.Errorf("model override lost: %q", a.Model().ID)
	}
	if a.Strategy().Kind() != strategy.KindStickyFacts {
		t.Errorf("strategy override lost: %v", a.Strategy().Kind())
	}
}

func TestRestoreHistoryFromStore(t *testing.T) {
	t.Parallel()

	m, repo := newTestManager(t)
	ctx := context.Background()

	a, id, err := m.ResolveOrCreate(ctx, "", "", nil)
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if _, err := a.Chat(ctx, "remember me"); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	before := a.History()

	// Simulate a process restart: fresh registry, same store.
	m2 := NewManager(repo, fakeGateway{}, "")
	restored, _, err := m2.ResolveOrCreate(ctx, id, "", nil)
	if err != nil {
		t.Fatalf("ResolveOrCreate after restart failed: %v", err)
	}

	after := restored.History()
	if len(after) != len(before) {
		t.Fatalf("restored history length %d, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("position %d: restored %+v, want %+v", i, after[i], before[i])
		}
	}
}

func TestDeleteRemovesAgentAndDurableHistory(t *testing.T) {
	t.Parallel()

	m, repo := newTestManager(t)
	ctx := context.Background()

	a, id, err := m.ResolveOrCreate(ctx, "", "", nil)
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if _, err := a.Chat(ctx, "hello"); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if err := m.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if m.Get(id) != nil {
		t.Error("agent still registered after delete")
	}
	messages, err := repo.ListMessages(ctx, id)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("durable history not cleared: %d rows", len(messages))
	}

	// A new agent under the same id starts empty; metrics reset with it.
	fresh, _, err := m.ResolveOrCreate(ctx, id, "", nil)
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if len(fresh.History()) != 0 {
		t.Errorf("expected empty history after delete, got %d", len(fresh.History()))
	}
	if fresh.MetricsSnapshot().Exchanges != 0 {
		t.Errorf("expected reset metrics after delete")
	}
}
