package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// History sources.
const (
	SourceAPI      = "api"
	SourceAPIVideo = "api-video"
	SourceAPIURL   = "api-url"
)

type HistoryEntry struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	Timestamp      time.Time       `json:"timestamp"`
	Filename       string          `json:"filename"`
	TopLabel       string          `json:"top_label"`
	TopConfidence  float64         `json:"top_confidence"`
	Source         string          `json:"source"`
	TopPredictions json.RawMessage `json:"top_predictions"`
}

type HistoryFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

type HistoryPage struct {
	Rows  []HistoryEntry `json:"rows"`
	Count int            `json:"count"`
}

type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type DashboardStats struct {
	TotalPredictions  int            `json:"total_predictions"`
	BySource          map[string]int `json:"by_source"`
	TopLabels         []LabelCount   `json:"top_labels"`
	AverageConfidence float64        `json:"average_confidence"`
}
