package media

import "recognition-backend/internal/inference"

// ContentKind is the closed set of resource kinds the pipeline recognizes.
type ContentKind string

const (
	ContentImage   ContentKind = "image"
	ContentVideo   ContentKind = "video"
	ContentWebpage ContentKind = "webpage"
	ContentPDF     ContentKind = "pdf"
	ContentText    ContentKind = "text"
	ContentUnknown ContentKind = "unknown"
)

// Mode lets callers force image or video handling regardless of detection.
type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeImage Mode = "image"
	ModeVideo Mode = "video"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeImage, ModeVideo:
		return Mode(s), nil
	default:
		return "", newError(KindInvalidInput, "media_type must be one of auto, image, video")
	}
}

type DocumentSummary struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
	TextPreview string   `json:"text_preview"`
	CharCount   int      `json:"char_count"`
}

type VideoAnalysis struct {
	Predictions   []inference.Prediction `json:"predictions"`
	Filtered      []inference.Prediction `json:"filtered"`
	Insight       string                 `json:"insight"`
	SampledFrames int                    `json:"sampled_frames"`
	TotalFrames   int                    `json:"total_frames"`
}

// ImageAnalysis is the outcome of classifying a single image.
type ImageAnalysis struct {
	Predictions []inference.Prediction `json:"predictions"`
	Filtered    []inference.Prediction `json:"filtered"`
	Insight     string                 `json:"insight"`
}

// URLAnalysisResult is the unified outcome of AnalyzeURL. Image and video
// kinds carry predictions; pdf, webpage and text kinds carry Document.
type URLAnalysisResult struct {
	URL                 string                 `json:"url"`
	FinalURL            string                 `json:"final_url"`
	ContentType         string                 `json:"content_type"`
	ContentKind         ContentKind            `json:"content_kind"`
	Insight             string                 `json:"insight"`
	Predictions         []inference.Prediction `json:"predictions"`
	FilteredPredictions []inference.Prediction `json:"filtered_predictions"`
	SampledFrames       *int                   `json:"sampled_frames"`
	TotalFrames         *int                   `json:"total_frames"`
	Document            *DocumentSummary       `json:"document"`
}
