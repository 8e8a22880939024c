package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"recognition-backend/internal/models"
)

type stubJobRepo struct {
	job *models.Job
}

func (s *stubJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	if s.job == nil || s.job.ID != id {
		return nil, errors.New("no rows")
	}
	return s.job, nil
}

func TestJobHandler_GetJob(t *testing.T) {
	ownerID := uuid.New()
	job := &models.Job{ID: uuid.New(), UserID: ownerID, Type: models.JobTypeURLAnalysis, Status: models.JobStatusCompleted, Progress: 100}

	tests := []struct {
		name     string
		id       string
		userID   uuid.UUID
		wantCode int
	}{
		{"owner", job.ID.String(), ownerID, http.StatusOK},
		{"other user", job.ID.String(), uuid.New(), http.StatusForbidden},
		{"unknown job", uuid.New().String(), ownerID, http.StatusNotFound},
		{"invalid id", "abc", ownerID, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewJobHandler(&stubJobRepo{job: job})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+tc.id, nil)
			req = withURLParam(req, "id", tc.id)
			req = withUser(req, tc.userID)
			rr := httptest.NewRecorder()
			h.GetJob(rr, req)

			if rr.Code != tc.wantCode {
				t.Fatalf("expected status %d, got %d", tc.wantCode, rr.Code)
			}
			if tc.wantCode != http.StatusOK {
				return
			}

			var got models.Job
			if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if got.Status != models.JobStatusCompleted || got.Progress != 100 {
				t.Fatalf("unexpected job: %+v", got)
			}
		})
	}
}
