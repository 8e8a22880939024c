package models

import "recognition-backend/internal/media"

// DisplayPrediction is a ranked label as shown to API clients: Label is
// localized, LabelRaw is what the classifier produced.
type DisplayPrediction struct {
	Label      string  `json:"label"`
	LabelRaw   string  `json:"label_raw"`
	Confidence float64 `json:"confidence"`
}

type ImagePredictionResponse struct {
	Filename    string              `json:"filename"`
	Insight     string              `json:"insight"`
	Predictions []DisplayPrediction `json:"predictions"`
	Count       int                 `json:"count"`
}

type BatchItem struct {
	Filename    string              `json:"filename"`
	Insight     string              `json:"insight,omitempty"`
	Predictions []DisplayPrediction `json:"predictions"`
	Error       string              `json:"error,omitempty"`
}

type BatchPredictionResponse struct {
	Results []BatchItem `json:"results"`
	Count   int         `json:"count"`
}

type VideoPredictionResponse struct {
	Filename      string              `json:"filename"`
	Insight       string              `json:"insight"`
	Predictions   []DisplayPrediction `json:"predictions"`
	Count         int                 `json:"count"`
	SampledFrames int                 `json:"sampled_frames"`
	TotalFrames   int                 `json:"total_frames"`
}

type URLPredictionRequest struct {
	URL         string   `json:"url"`
	MediaType   string   `json:"media_type"`
	TopK        *int     `json:"top_k"`
	MinConf     *float64 `json:"min_conf"`
	Language    *string  `json:"language"`
	SampleEvery *int     `json:"sample_every"`
	MaxFrames   *int     `json:"max_frames"`
}

type URLPredictionResponse struct {
	URL           string                 `json:"url"`
	FinalURL      string                 `json:"final_url"`
	ContentType   string                 `json:"content_type"`
	ContentKind   media.ContentKind      `json:"content_kind"`
	Insight       string                 `json:"insight"`
	Predictions   []DisplayPrediction    `json:"predictions"`
	Count         int                    `json:"count"`
	FilteredCount int                    `json:"filtered_count"`
	SampledFrames *int                   `json:"sampled_frames"`
	TotalFrames   *int                   `json:"total_frames"`
	Document      *media.DocumentSummary `json:"document"`
}
