package payment

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/neurocanteen/canteen-go/internal/auth"
	"github.com/neurocanteen/canteen-go/internal/checkout"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type createOrderRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Tip     string `json:"tip"`
}

type createOrderResponse struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	State   string `json:"state"`
}

// HandleCreateOrder opens a gateway order for the priced cart and
// reserves the payment intent. The client takes the gateway order id
// into the payment widget.
func (h *Handler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	details := checkout.DeliveryDetails{Name: req.Name, Phone: req.Phone, Address: req.Address}
	order, err := h.service.CreateOrder(r.Context(), identity, details, req.Tip)
	if err != nil {
		var verr checkout.ValidationError
		switch {
		case errors.As(err, &verr):
			h.writeError(w, http.StatusBadRequest, verr.Error())
		case errors.Is(err, checkout.ErrEmptyCart):
			h.writeError(w, http.StatusBadRequest, "cart is empty")
		default:
			h.logger.Error("failed to create gateway order", "error", err, "user", identity.Subject)
			h.writeError(w, http.StatusBadGateway, "payment gateway unavailable")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, createOrderResponse{
		OrderID: order.ID,
		Amount:  order.Amount,
		State:   string(StateAwaitingGateway),
	})
}

type verifyRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

type verifyResponse struct {
	OrderID string `json:"order_id"`
	State   string `json:"state"`
}

// HandleVerify checks the gateway callback signature server-side and
// settles the payment into an order record.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		h.writeError(w, http.StatusBadRequest, "order_id, payment_id and signature are required")
		return
	}

	orderID, err := h.service.Verify(r.Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownIntent):
			h.writeError(w, http.StatusNotFound, "unknown gateway order")
		case errors.Is(err, ErrVerificationFailed):
			h.writeError(w, http.StatusPaymentRequired, "signature verification failed")
		case errors.Is(err, ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, "payment not in a verifiable state")
		default:
			h.logger.Error("failed to verify payment", "error", err, "gateway_order_id", req.OrderID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, verifyResponse{OrderID: orderID, State: string(StateSubmitted)})
}

type cancelRequest struct {
	OrderID string `json:"order_id"`
}

// HandleCancel records a dismissed gateway checkout. Nothing was
// charged, so nothing is written beyond the intent status.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" {
		h.writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	if err := h.service.Cancel(r.Context(), req.OrderID); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			h.writeError(w, http.StatusConflict, "payment already settled")
			return
		}
		h.logger.Error("failed to cancel payment", "error", err, "gateway_order_id", req.OrderID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
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
