package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// HandleGetFile handles GET /api/files/{fileID}: serves a stored blob.
func (h *Handler) HandleGetFile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "fileID"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid file id")
		return
	}

	file, err := h.repo.GetFile(r.Context(), id)
	if err != nil {
		slog.Error("get file failed", "file_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load file")
		return
	}
	if file == nil {
		Error(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", file.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := w.Write(file.Data); err != nil {
		slog.Warn("write file response failed", "file_id", id, "error", err)
	}
}
