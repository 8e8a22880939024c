package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"recognition-backend/internal/middleware"
	"recognition-backend/internal/models"
)

type statsRepo interface {
	Stats(ctx context.Context, userID uuid.UUID) (*models.DashboardStats, error)
}

type DashboardHandler struct {
	stats statsRepo
}

func NewDashboardHandler(stats statsRepo) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load stats", r))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
