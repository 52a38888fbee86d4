package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/parleylabs/parley/internal/agent"
)

var errInvalidBody = errors.New("invalid request body")

// ActionRequest is the JSON body of POST /api/chat/actions.
type ActionRequest struct {
	SessionID string `json:"sessionId"`
	Action    string `json:"action"`
	BranchID  string `json:"branchId,omitempty"`
}

// HandleActions handles POST /api/chat/actions: session-level actions that
// are not conversational turns (new-chat, checkpoint, switch-branch).
func (h *Handler) HandleActions(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, errInvalidBody.Error())
		return
	}
	if req.SessionID == "" {
		Error(w, http.StatusBadRequest, "sessionId required")
		return
	}

	if req.Action == "new-chat" {
		if err := h.sessions.Delete(r.Context(), req.SessionID); err != nil {
			slog.Error("delete session failed", "session_id", req.SessionID, "error", err)
			Error(w, http.StatusInternalServerError, "failed to delete session")
			return
		}
		JSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	ag, _, err := h.sessions.ResolveOrCreate(r.Context(), req.SessionID, "", nil)
	if err != nil {
		slog.Error("resolve session failed", "session_id", req.SessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to resolve session")
		return
	}

	switch req.Action {
	case "checkpoint":
		branches := ag.Checkpoint()
		JSON(w, http.StatusOK, map[string]interface{}{"branches": branches})
	case "switch-branch":
		if req.BranchID == "" {
			Error(w, http.StatusBadRequest, "branchId required")
			return
		}
		messages, activeID, err := ag.SwitchBranch(req.BranchID)
		if err != nil {
			if errors.Is(err, agent.ErrBranchNotFound) {
				Error(w, http.StatusNotFound, "branch not found")
				return
			}
			slog.Error("switch branch failed", "session_id", req.SessionID, "error", err)
			Error(w, http.StatusInternalServerError, "failed to switch branch")
			return
		}
		JSON(w, http.StatusOK, map[string]interface{}{
			"messages":       messages,
			"activeBranchId": activeID,
		})
	default:
		Error(w, http.StatusBadRequest, "unknown action: "+req.Action)
	}
}
