package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/neurocanteen/canteen-go/internal/auth"
	"github.com/neurocanteen/canteen-go/internal/domain"
)

// Submitter persists write-once order records.
type Submitter interface {
	Submit(ctx context.Context, rec *domain.OrderRecord) (string, error)
	ListByUser(ctx context.Context, userID string) ([]domain.OrderRecord, error)
}

type Handler struct {
	repo   Submitter
	logger *slog.Logger
}

func NewHandler(repo Submitter, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// HandleCreate accepts a raw order record submission. The buyer fields
// are taken from the session, never from the payload.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	var rec domain.OrderRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec.BuyerUserID = identity.Subject
	rec.BuyerRole = identity.Role
	if rec.OrderDateTime.IsZero() {
		rec.OrderDateTime = time.Now().UTC()
	}

	orderID, err := h.repo.Submit(r.Context(), &rec)
	if err != nil {
		h.logger.Error("failed to submit order", "error", err, "user", identity.Subject)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("order submitted", "order_id", orderID, "user", identity.Subject, "payment_type", rec.PaymentType)
	h.writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	records, err := h.repo.ListByUser(r.Context(), identity.Subject)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user", identity.Subject)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "user", identity.Subject, "count", len(records))
	h.writeJSON(w, http.StatusOK, records)
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
