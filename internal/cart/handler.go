package cart

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/neurocanteen/canteen-go/internal/auth"
	"github.com/neurocanteen/canteen-go/internal/domain"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

type cartResponse struct {
	Items      domain.Cart `json:"items"`
	TotalItems int         `json:"total_items"`
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	cart, err := h.store.Load(r.Context(), identity.Subject)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "user", identity.Subject)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, cartResponse{Items: cart, TotalItems: cart.TotalItems()})
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.store.Add)
}

func (h *Handler) HandleIncrease(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.store.Increase)
}

func (h *Handler) HandleDecrease(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.store.Decrease)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	if err := h.store.Clear(r.Context(), identity.Subject); err != nil {
		h.logger.Error("failed to clear cart", "error", err, "user", identity.Subject)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart cleared", "user", identity.Subject)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID string, itemID int64) (domain.Cart, error)) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	itemID, err := strconv.ParseInt(r.PathValue("itemId"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	cart, err := op(r.Context(), identity.Subject, itemID)
	if err != nil {
		h.logger.Error("failed to update cart", "error", err, "user", identity.Subject, "item_id", itemID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart updated", "user", identity.Subject, "item_id", itemID, "total_items", cart.TotalItems())
	h.writeJSON(w, http.StatusOK, cartResponse{Items: cart, TotalItems: cart.TotalItems()})
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
