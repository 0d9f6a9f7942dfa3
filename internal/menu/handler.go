package menu

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/neurocanteen/canteen-go/internal/domain"
)

// Lister is the read surface the handler needs from the repository.
type Lister interface {
	ListAvailable(ctx context.Context) ([]domain.MenuItem, error)
}

type Handler struct {
	repo   Lister
	logger *slog.Logger
}

func NewHandler(repo Lister, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListAvailable(r.Context())
	if err != nil {
		h.logger.Error("failed to list menu items", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("menu items listed", "count", len(items))
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
