package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/neurocanteen/canteen-go/internal/domain"
)

// PatientLookup resolves UHIDs against the patient registry.
type PatientLookup interface {
	Exists(ctx context.Context, uhid string) (bool, error)
}

type Handler struct {
	tm       *TokenManager
	patients PatientLookup
	logger   *slog.Logger
}

func NewHandler(tm *TokenManager, patients PatientLookup, logger *slog.Logger) *Handler {
	return &Handler{
		tm:       tm,
		patients: patients,
		logger:   logger,
	}
}

type authenticateRequest struct {
	UHID string `json:"uhid"`
}

type authenticateResponse struct {
	JWT string `json:"jwt"`
}

// HandleAuthenticatePatient exchanges a UHID for a patient session
// token. An unknown UHID is a 401; the caller re-prompts rather than
// aborting the checkout.
func (h *Handler) HandleAuthenticatePatient(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	uhid := strings.TrimSpace(req.UHID)
	if uhid == "" {
		h.writeError(w, http.StatusBadRequest, "uhid is required")
		return
	}

	found, err := h.patients.Exists(r.Context(), uhid)
	if err != nil {
		h.logger.Error("failed to look up patient", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		h.writeError(w, http.StatusUnauthorized, "invalid uhid")
		return
	}

	token, err := h.tm.Issue(uhid, domain.RolePatient)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("patient authenticated", "uhid", uhid)
	h.writeJSON(w, http.StatusOK, authenticateResponse{JWT: token})
}

// HandleAuthenticateGuest issues an anonymous browsing session.
func (h *Handler) HandleAuthenticateGuest(w http.ResponseWriter, r *http.Request) {
	token, err := h.tm.IssueGuest()
	if err != nil {
		h.logger.Error("failed to issue guest token", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, authenticateResponse{JWT: token})
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
