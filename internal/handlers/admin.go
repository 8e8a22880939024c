package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"recognition-backend/internal/models"
)

const (
	defaultUserPageLimit = 50
	maxUserPageLimit     = 500
)

type adminUserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, int, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role string) (bool, error)
}

type AdminHandler struct {
	userRepo adminUserRepo
}

func NewAdminHandler(userRepo adminUserRepo) *AdminHandler {
	return &AdminHandler{userRepo: userRepo}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	fields := make(map[string]string)
	limit := queryInt(r, "limit", defaultUserPageLimit, fields)
	offset := queryInt(r, "offset", 0, fields)
	if _, bad := fields["limit"]; !bad && (limit < 1 || limit > maxUserPageLimit) {
		fields["limit"] = "Must be between 1 and 500"
	}
	if _, bad := fields["offset"]; !bad && offset < 0 {
		fields["offset"] = "Must not be negative"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	users, total, err := h.userRepo.List(r.Context(), limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list users", r))
		return
	}

	writeJSON(w, http.StatusOK, models.UserPage{Rows: users, Total: total, Limit: limit, Offset: offset})
}

func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user ID", r))
		return
	}

	var req models.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !models.ValidRole(req.Role) {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"role": "Must be user or admin"}, r))
		return
	}

	found, err := h.userRepo.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update role", r))
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	writeJSON(w, http.StatusOK, user)
}
