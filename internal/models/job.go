package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"recognition-backend/internal/media"
)

const (
	JobTypeURLAnalysis = "url-analysis"

	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

type Job struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Progress     int             `json:"progress"`
	Payload      json.RawMessage `json:"payload"`
	Result       json.RawMessage `json:"result"`
	ErrorKind    *string         `json:"error_kind"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID    uuid.UUID `json:"job_id"`
	Status   string    `json:"status"`
	Progress int       `json:"progress"`
	StepName string    `json:"step_name"`
}

type CompletedEvent struct {
	JobID       uuid.UUID         `json:"job_id"`
	ContentKind media.ContentKind `json:"content_kind"`
	Insight     string            `json:"insight"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
