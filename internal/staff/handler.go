package staff

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
)

// Records is the persistence surface the handler depends on.
type Records interface {
	List(ctx context.Context) ([]Record, error)
	Create(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type Handler struct {
	repo   Records
	logger *slog.Logger
}

func NewHandler(repo Records, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list staff", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("staff listed", "count", len(records))
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := Validate(&rec); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.Create(r.Context(), &rec); err != nil {
		if errors.Is(err, ErrDuplicateEmployeeID) {
			h.writeError(w, http.StatusConflict, "employee id already exists")
			return
		}
		h.logger.Error("failed to create staff record", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("staff record created", "id", rec.ID, "employee_id", rec.EmployeeID)
	h.writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid staff id")
		return
	}

	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec.ID = id

	if err := Validate(&rec); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	found, err := h.repo.Update(r.Context(), &rec)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmployeeID) {
			h.writeError(w, http.StatusConflict, "employee id already exists")
			return
		}
		h.logger.Error("failed to update staff record", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "staff record not found")
		return
	}

	h.logger.Info("staff record updated", "id", id)
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid staff id")
		return
	}

	found, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete staff record", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "staff record not found")
		return
	}

	h.logger.Info("staff record deleted", "id", id)
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
