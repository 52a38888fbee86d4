// Package session owns the in-memory registry of active conversational
// agents keyed by session identifier.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/parleylabs/parley/internal/agent"
	"github.com/parleylabs/parley/internal/domain"
	"github.com/parleylabs/parley/internal/provider"
	"github.com/parleylabs/parley/internal/store"
	"github.com/parleylabs/parley/internal/strategy"
)

// Manager is an explicitly owned registry of live agents. It is constructed
// at process start and handed to request handlers; its lifetime equals the
// process lifetime, and agents are never evicted except by Delete.
type Manager struct {
	mu           sync.RWMutex
	agents       map[string]*agent.Agent
	repo         store.Repository
	gateway      provider.Gateway
	systemPrompt string
}

// NewManager creates an empty session registry. systemPrompt seeds new
// agents; empty means the agent default.
func NewManager(repo store.Repository, gateway provider.Gateway, systemPrompt string) *Manager {
	return &Manager{
		agents:       make(map[string]*agent.Agent),
		repo:         repo,
		gateway:      gateway,
		systemPrompt: systemPrompt,
	}
}

// ResolveOrCreate returns the live agent for sessionID, applying any model
// or strategy overrides. When no live agent exists it mints an identifier
// if needed, restores durable turn history from the store (summaries,
// facts, and branches are in-memory only and lost across restarts),
// constructs the agent, and registers it.
func (m *Manager) ResolveOrCreate(ctx context.Context, sessionID, modelID string, cfg strategy.Config) (*agent.Agent, string, error) {
	if sessionID != "" {
		m.mu.RLock()
		a, ok := m.agents[sessionID]
		m.mu.RUnlock()
		if ok {
			if modelID != "" {
				a.SetModel(modelID)
			}
			if cfg != nil {
				a.SetStrategy(cfg)
			}
			return a, sessionID, nil
		}
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history, err := m.restoreHistory(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	a := agent.New(sessionID, m.gateway, m.repo, agent.Options{
		ModelID:      modelID,
		SystemPrompt: m.systemPrompt,
		Strategy:     cfg,
		History:      history,
	})

	m.mu.Lock()
	// Another request may have raced the creation; keep the registered one,
	// but still apply this request's overrides to it.
	if existing, ok := m.agents[sessionID]; ok {
		m.mu.Unlock()
		if modelID != "" {
			existing.SetModel(modelID)
		}
		if cfg != nil {
			existing.SetStrategy(cfg)
		}
		return existing, sessionID, nil
	}
	m.agents[sessionID] = a
	m.mu.Unlock()

	if len(history) > 0 {
		slog.Info("session restored from store", "session_id", sessionID, "messages", len(history))
	} else {
		slog.Info("session created", "session_id", sessionID)
	}
	return a, sessionID, nil
}

// Get returns the live agent for sessionID, or nil when none is registered.
func (m *Manager) Get(sessionID string) *agent.Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.agents[sessionID]
}

// Delete removes a session from the registry and drops its durable history.
// This is the only way a session leaves the registry.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.agents, sessionID)
	m.mu.Unlock()

	if m.repo != nil {
		if err := m.repo.DeleteSession(ctx, sessionID); err != nil {
			return fmt.Errorf("delete session state: %w", err)
		}
	}
	slog.Info("session deleted", "session_id", sessionID)
	return nil
}

// Len returns the number of live agents.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents)
}

func (m *Manager) restoreHistory(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if m.repo == nil {
		return nil, nil
	}
	stored, err := m.repo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("restore session history: %w", err)
	}
	history := make([]domain.Message, 0, len(stored))
	for _, s := range stored {
		history = append(history, domain.Message{Role: s.Role, Content: s.Content})
	}
	return history, nil
}
