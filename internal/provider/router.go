package provider

import (
	"context"
	"fmt"

	"github.com/parleylabs/parley/internal/domain"
	"github.com/parleylabs/parley/internal/models"
)

// Router dispatches gateway calls to the client registered for the model's
// provider. It is itself a Gateway, so the agent core stays unaware of how
// many upstream providers exist.
type Router struct {
	clients map[models.Provider]Gateway
}

// NewRouter creates an empty provider router.
func NewRouter() *Router {
	return &Router{clients: make(map[models.Provider]Gateway)}
}

// Register installs the client for a provider, replacing any previous one.
func (r *Router) Register(p models.Provider, g Gateway) {
	r.clients[p] = g
}

func (r *Router) resolve(modelID string) (Gateway, error) {
	cfg := models.Lookup(modelID)
	g, ok := r.clients[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("no gateway client registered for provider %q (model %s)", cfg.Provider, modelID)
	}
	return g, nil
}

// Generate implements Gateway.
func (r *Router) Generate(ctx context.Context, modelID, systemPrompt string, messages []domain.Message) (*Completion, error) {
	g, err := r.resolve(modelID)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, modelID, systemPrompt, messages)
}

// GenerateOnce implements Gateway.
func (r *Router) GenerateOnce(ctx context.Context, modelID, instruction, prompt string) (*Completion, error) {
	g, err := r.resolve(modelID)
	if err != nil {
		return nil, err
	}
	return g.GenerateOnce(ctx, modelID, instruction, prompt)
}
