package handlers

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"recognition-backend/internal/middleware"
	"recognition-backend/internal/models"
)

const (
	defaultHistoryLimit = 100
	exportHistoryLimit  = 10000
	dateOnlyLayout      = "2006-01-02"
)

var historyDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", dateOnlyLayout}

type historyRepo interface {
	ListByUser(ctx context.Context, userID uuid.UUID, f models.HistoryFilter) ([]models.HistoryEntry, error)
	ClearByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type HistoryHandler struct {
	historyRepo historyRepo
}

func NewHistoryHandler(historyRepo historyRepo) *HistoryHandler {
	return &HistoryHandler{historyRepo: historyRepo}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, fields := parseHistoryFilter(r, defaultHistoryLimit)
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	rows, err := h.historyRepo.ListByUser(r.Context(), middleware.GetUserID(r.Context()), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load history", r))
		return
	}

	writeJSON(w, http.StatusOK, models.HistoryPage{Rows: rows, Count: len(rows)})
}

func (h *HistoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, fields := parseHistoryFilter(r, exportHistoryLimit)
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	rows, err := h.historyRepo.ListByUser(r.Context(), middleware.GetUserID(r.Context()), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load history", r))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="prediction_history.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	cw.Write([]string{"timestamp", "filename", "top_label", "top_confidence", "source"})
	for _, row := range rows {
		cw.Write([]string{
			row.Timestamp.UTC().Format(time.RFC3339),
			row.Filename,
			row.TopLabel,
			strconv.FormatFloat(row.TopConfidence, 'f', 2, 64),
			row.Source,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Warn("history export write failed", slog.Any("error", err))
	}
}

func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.historyRepo.ClearByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to clear history", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

func parseHistoryFilter(r *http.Request, defaultLimit int) (models.HistoryFilter, map[string]string) {
	fields := make(map[string]string)
	filter := models.HistoryFilter{Limit: queryInt(r, "limit", defaultLimit, fields)}
	if _, bad := fields["limit"]; !bad && filter.Limit < 1 {
		fields["limit"] = "Must be at least 1"
	}

	q := r.URL.Query()
	if raw := q.Get("date_from"); raw != "" {
		from, _, err := parseHistoryDate(raw)
		if err != nil {
			fields["date_from"] = "Invalid date"
		} else {
			filter.From = &from
		}
	}
	if raw := q.Get("date_to"); raw != "" {
		to, dateOnly, err := parseHistoryDate(raw)
		if err != nil {
			fields["date_to"] = "Invalid date"
		} else {
			// a bare date includes the whole day
			if dateOnly {
				to = to.Add(24*time.Hour - time.Nanosecond)
			}
			filter.To = &to
		}
	}

	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		fields["date_from"] = "Must not be after date_to"
	}

	return filter, fields
}

func parseHistoryDate(raw string) (time.Time, bool, error) {
	var err error
	for _, layout := range historyDateLayouts {
		var t time.Time
		t, err = time.Parse(layout, raw)
		if err == nil {
			return t, layout == dateOnlyLayout, nil
		}
	}
	return time.Time{}, false, err
}
