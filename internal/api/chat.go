package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/parleylabs/parley/internal/models"
	"github.com/parleylabs/parley/internal/strategy"
)

// ChatRequest is the JSON body of POST /api/chat. Multipart requests carry
// the same fields as form values plus file parts under "files".
type ChatRequest struct {
	SessionID string            `json:"sessionId,omitempty"`
	Message   string            `json:"message"`
	Model     string            `json:"model,omitempty"`
	Strategy  *strategy.Request `json:"strategy,omitempty"`
}

type chatUpload struct {
	filename  string
	mediaType string
	data      []byte
}

// HandleChat handles POST /api/chat: one full conversational turn.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	req, uploads, err := h.parseChatRequest(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	var cfg strategy.Config
	if req.Strategy != nil {
		cfg, err = strategy.Parse(*req.Strategy)
		if err != nil {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	agent, sessionID, err := h.sessions.ResolveOrCreate(r.Context(), req.SessionID, req.Model, cfg)
	if err != nil {
		slog.Error("resolve session failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to resolve session")
		return
	}

	result, err := agent.Chat(r.Context(), req.Message)
	if err != nil {
		slog.Error("turn failed", "session_id", sessionID, "error", err)
		Error(w, http.StatusBadGateway, "model request failed")
		return
	}

	h.saveUploads(r, sessionID, result.UserMessageID, uploads)

	JSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": sessionID,
		"reply":     result.Reply,
		"metrics":   result,
	})
}

// HandleGetMessages handles GET /api/chat/{sessionID}: the persisted
// history with attachment metadata.
func (h *Handler) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		Error(w, http.StatusBadRequest, "sessionID required")
		return
	}

	messages, err := h.repo.ListMessagesWithFiles(r.Context(), sessionID)
	if err != nil {
		slog.Error("list messages failed", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// HandleListModels handles GET /api/models.
func (h *Handler) HandleListModels(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"models":  models.Registry,
		"default": models.DefaultModelID,
	})
}

func (h *Handler) parseChatRequest(r *http.Request) (ChatRequest, []chatUpload, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType != "multipart/form-data" {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return ChatRequest{}, nil, errInvalidBody
		}
		return req, nil, nil
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		return ChatRequest{}, nil, errInvalidBody
	}

	req := ChatRequest{
		SessionID: r.FormValue("sessionId"),
		Message:   r.FormValue("message"),
		Model:     r.FormValue("model"),
	}
	if raw := r.FormValue("strategy"); raw != "" {
		var sr strategy.Request
		if err := json.Unmarshal([]byte(raw), &sr); err != nil {
			return ChatRequest{}, nil, errInvalidBody
		}
		req.Strategy = &sr
	}

	var uploads []chatUpload
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["files"] {
			upload, err := readUpload(fh)
			if err != nil {
				return ChatRequest{}, nil, err
			}
			uploads = append(uploads, upload)
		}
	}
	return req, uploads, nil
}

func readUpload(fh *multipart.FileHeader) (chatUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return chatUpload{}, errInvalidBody
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return chatUpload{}, errInvalidBody
	}

	mediaType := fh.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return chatUpload{filename: fh.Filename, mediaType: mediaType, data: data}, nil
}

// saveUploads attaches uploaded files to the persisted user message. Files
// for a turn that never persisted its user row are dropped with a warning.
func (h *Handler) saveUploads(r *http.Request, sessionID string, userMessageID int64, uploads []chatUpload) {
	if len(uploads) == 0 {
		return
	}
	if userMessageID == 0 {
		slog.Warn("dropping uploads, user message was not persisted", "session_id", sessionID)
		return
	}
	for _, u := range uploads {
		if _, err := h.repo.AppendFile(r.Context(), userMessageID, sessionID, u.filename, u.mediaType, u.data); err != nil {
			slog.Error("persist upload failed",
				"session_id", sessionID,
				"filename", u.filename,
				"error", err)
		}
	}
}
