package checkout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/neurocanteen/canteen-go/internal/auth"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type quoteRequest struct {
	Tip string `json:"tip"`
}

func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	totals, err := h.service.Quote(r.Context(), identity, req.Tip)
	if err != nil {
		h.logger.Error("failed to quote checkout", "error", err, "user", identity.Subject)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, totals)
}

type codRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Tip     string `json:"tip"`
}

type codResponse struct {
	OrderID   string `json:"order_id"`
	BuyerID   string `json:"ordered_user_id"`
	BuyerRole string `json:"ordered_role"`
	Totals    Totals `json:"totals"`
}

func (h *Handler) HandleSubmitCOD(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	var req codRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	details := DeliveryDetails{Name: req.Name, Phone: req.Phone, Address: req.Address}
	orderID, totals, err := h.service.SubmitCOD(r.Context(), identity, details, req.Tip)
	if err != nil {
		var verr ValidationError
		switch {
		case errors.As(err, &verr):
			h.writeError(w, http.StatusBadRequest, verr.Error())
		case errors.Is(err, ErrEmptyCart):
			h.writeError(w, http.StatusBadRequest, "cart is empty")
		case errors.Is(err, ErrSubmissionInFlight):
			h.writeError(w, http.StatusConflict, "a submission is already in flight")
		default:
			h.logger.Error("failed to submit cod order", "error", err, "user", identity.Subject)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, codResponse{
		OrderID:   orderID,
		BuyerID:   identity.Subject,
		BuyerRole: identity.Role,
		Totals:    totals,
	})
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
