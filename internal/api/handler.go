// Package api provides HTTP handlers for the chat API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parleylabs/parley/internal/session"
	"github.com/parleylabs/parley/internal/store"
)

// Handler serves the chat API routes.
type Handler struct {
	sessions      *session.Manager
	repo          store.Repository
	maxUploadSize int64
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(sessions *session.Manager, repo store.Repository, maxUploadSize int64) *Handler {
	return &Handler{
		sessions:      sessions,
		repo:          repo,
		maxUploadSize: maxUploadSize,
	}
}

// RegisterRoutes registers the chat API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/models", h.HandleListModels)
		r.Post("/chat", h.HandleChat)
		r.Get("/chat/{sessionID}", h.HandleGetMessages)
		r.Post("/chat/actions", h.HandleActions)
		r.Get("/files/{fileID}", h.HandleGetFile)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
