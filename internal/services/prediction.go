package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"recognition-backend/internal/inference"
	"recognition-backend/internal/media"
	"recognition-backend/internal/metrics"
	"recognition-backend/internal/models"
	"recognition-backend/internal/translation"
)

const (
	DefaultLanguage      = translation.LanguageIndonesian
	historyTopPrediction = 5
	unknownFilename      = "unknown"
)

// Analyzer is the recognition surface the prediction endpoints need.
// *media.Analyzer implements it.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, data []byte, topK int, minConf float64) (*media.ImageAnalysis, error)
	AnalyzeVideo(ctx context.Context, data []byte, opts media.VideoOptions) (*media.VideoAnalysis, error)
	AnalyzeURL(ctx context.Context, req media.URLRequest) (*media.URLAnalysisResult, error)
}

type historyStore interface {
	Add(ctx context.Context, e *models.HistoryEntry) error
}

type jobStore interface {
	Create(ctx context.Context, j *models.Job) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
}

type PredictionOptions struct {
	TopK     int
	MinConf  float64
	Language string
}

type VideoParams struct {
	PredictionOptions
	SampleEvery int
	MaxFrames   int
}

type UploadedFile struct {
	Filename string
	Data     []byte
}

// VideoDefaults fill in sampling parameters callers leave unset.
type VideoDefaults struct {
	SampleEvery int
	MaxSamples  int
}

type PredictionService struct {
	analyzer Analyzer
	history  historyStore
	jobs     jobStore
	queue    JobQueue
	defaults VideoDefaults
}

func NewPredictionService(analyzer Analyzer, history historyStore, jobs jobStore, queue JobQueue, defaults VideoDefaults) *PredictionService {
	if defaults.SampleEvery < 1 {
		defaults.SampleEvery = media.DefaultSampleEvery
	}
	if defaults.MaxSamples < 1 {
		defaults.MaxSamples = media.DefaultMaxSampledFrames
	}
	return &PredictionService{
		analyzer: analyzer,
		history:  history,
		jobs:     jobs,
		queue:    queue,
		defaults: defaults,
	}
}

func (s *PredictionService) PredictImage(ctx context.Context, userID uuid.UUID, file UploadedFile, opts PredictionOptions) (*models.ImagePredictionResponse, error) {
	start := time.Now()
	analysis, err := s.analyzer.AnalyzeImage(ctx, file.Data, opts.TopK, opts.MinConf)
	if err != nil {
		recordFailure(models.SourceAPI, err)
		return nil, err
	}
	metrics.RecordAnalysis(models.SourceAPI, string(media.ContentImage), time.Since(start))

	s.recordHistory(ctx, userID, file.Filename, models.SourceAPI, analysis.Predictions)

	visible := displayPredictions(visiblePredictions(analysis.Filtered, analysis.Predictions), opts.Language)
	return &models.ImagePredictionResponse{
		Filename:    file.Filename,
		Insight:     analysis.Insight,
		Predictions: visible,
		Count:       len(visible),
	}, nil
}

// PredictBatch classifies each file independently; a failing file yields an
// item with Error set and never aborts the batch.
func (s *PredictionService) PredictBatch(ctx context.Context, userID uuid.UUID, files []UploadedFile, opts PredictionOptions) *models.BatchPredictionResponse {
	results := make([]models.BatchItem, 0, len(files))
	for _, f := range files {
		resp, err := s.PredictImage(ctx, userID, f, opts)
		if err != nil {
			results = append(results, models.BatchItem{
				Filename:    f.Filename,
				Predictions: []models.DisplayPrediction{},
				Error:       batchErrorMessage(err),
			})
			continue
		}
		results = append(results, models.BatchItem{
			Filename:    resp.Filename,
			Insight:     resp.Insight,
			Predictions: resp.Predictions,
		})
	}
	return &models.BatchPredictionResponse{Results: results, Count: len(results)}
}

func batchErrorMessage(err error) string {
	var me *media.Error
	if errors.As(err, &me) && media.IsClientError(err) {
		return me.Message
	}
	return "Prediction failed"
}

func (s *PredictionService) PredictVideo(ctx context.Context, userID uuid.UUID, file UploadedFile, params VideoParams) (*models.VideoPredictionResponse, error) {
	opts := media.VideoOptions{
		TopK:             params.TopK,
		MinConf:          params.MinConf,
		SampleEvery:      orDefault(params.SampleEvery, s.defaults.SampleEvery),
		MaxSampledFrames: orDefault(params.MaxFrames, s.defaults.MaxSamples),
	}

	start := time.Now()
	analysis, err := s.analyzer.AnalyzeVideo(ctx, file.Data, opts)
	if err != nil {
		recordFailure(models.SourceAPIVideo, err)
		return nil, err
	}
	metrics.RecordAnalysis(models.SourceAPIVideo, string(media.ContentVideo), time.Since(start))

	s.recordHistory(ctx, userID, file.Filename, models.SourceAPIVideo, analysis.Predictions)

	visible := displayPredictions(visiblePredictions(analysis.Filtered, analysis.Predictions), params.Language)
	return &models.VideoPredictionResponse{
		Filename:      file.Filename,
		Insight:       analysis.Insight,
		Predictions:   visible,
		Count:         len(visible),
		SampledFrames: analysis.SampledFrames,
		TotalFrames:   analysis.TotalFrames,
	}, nil
}

// ResolveURLRequest validates an API request and applies defaults.
func (s *PredictionService) ResolveURLRequest(req models.URLPredictionRequest) (media.URLRequest, string, error) {
	fields := make(map[string]string)

	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		fields["url"] = "URL is required"
	}

	mode, err := media.ParseMode(strings.ToLower(strings.TrimSpace(req.MediaType)))
	if err != nil {
		fields["media_type"] = "Must be one of auto, image, video"
	}

	out := media.URLRequest{
		URL:              rawURL,
		Mode:             mode,
		TopK:             media.DefaultTopK,
		SampleEvery:      s.defaults.SampleEvery,
		MaxSampledFrames: s.defaults.MaxSamples,
	}
	if req.TopK != nil {
		out.TopK = *req.TopK
	}
	if req.MinConf != nil {
		out.MinConf = *req.MinConf
	}
	if req.SampleEvery != nil {
		out.SampleEvery = *req.SampleEvery
	}
	if req.MaxFrames != nil {
		out.MaxSampledFrames = *req.MaxFrames
	}

	if out.TopK < 1 {
		fields["top_k"] = "Must be at least 1"
	}
	if out.MinConf < 0 || out.MinConf > 100 {
		fields["min_conf"] = "Must be between 0 and 100"
	}
	if out.SampleEvery < 1 {
		fields["sample_every"] = "Must be at least 1"
	}
	if out.MaxSampledFrames < 1 {
		fields["max_frames"] = "Must be at least 1"
	}

	language := DefaultLanguage
	if req.Language != nil {
		language = *req.Language
	}

	if len(fields) > 0 {
		return media.URLRequest{}, "", &ValidationError{Fields: fields}
	}
	return out, language, nil
}

func (s *PredictionService) PredictURL(ctx context.Context, userID uuid.UUID, req models.URLPredictionRequest) (*models.URLPredictionResponse, error) {
	mreq, language, err := s.ResolveURLRequest(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.analyzer.AnalyzeURL(ctx, mreq)
	if err != nil {
		recordFailure(models.SourceAPIURL, err)
		return nil, err
	}
	metrics.RecordAnalysis(models.SourceAPIURL, string(result.ContentKind), time.Since(start))

	if result.ContentKind == media.ContentImage || result.ContentKind == media.ContentVideo {
		s.recordHistory(ctx, userID, result.FinalURL, models.SourceAPIURL, result.Predictions)
	}

	visible := displayPredictions(visiblePredictions(result.FilteredPredictions, result.Predictions), language)
	return &models.URLPredictionResponse{
		URL:           result.URL,
		FinalURL:      result.FinalURL,
		ContentType:   result.ContentType,
		ContentKind:   result.ContentKind,
		Insight:       result.Insight,
		Predictions:   visible,
		Count:         len(visible),
		FilteredCount: len(result.FilteredPredictions),
		SampledFrames: result.SampledFrames,
		TotalFrames:   result.TotalFrames,
		Document:      result.Document,
	}, nil
}

// EnqueueURL validates the request up front and queues it for a worker.
func (s *PredictionService) EnqueueURL(ctx context.Context, userID uuid.UUID, req models.URLPredictionRequest) (*models.Job, error) {
	if _, _, err := s.ResolveURLRequest(req); err != nil {
		return nil, err
	}
	if _, err := media.ValidateURL(strings.TrimSpace(req.URL)); err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, fmt.Errorf("analysis queue is unavailable")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		UserID:  userID,
		Type:    models.JobTypeURLAnalysis,
		Payload: payload,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, job); err != nil {
		slog.Error("failed to enqueue job", slog.String("job_id", job.ID.String()), slog.Any("error", err))
		_ = s.jobs.UpdateStatus(ctx, job.ID, models.JobStatusFailed, 0)
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return job, nil
}

func (s *PredictionService) recordHistory(ctx context.Context, userID uuid.UUID, filename, source string, preds []inference.Prediction) {
	if len(preds) == 0 || s.history == nil {
		return
	}
	if filename == "" {
		filename = unknownFilename
	}

	top := make([]inference.Prediction, 0, historyTopPrediction)
	for _, p := range preds {
		if len(top) == historyTopPrediction {
			break
		}
		top = append(top, inference.Prediction{Label: p.Label, Confidence: roundConfidence(p.Confidence)})
	}
	topJSON, err := json.Marshal(top)
	if err != nil {
		topJSON = []byte("[]")
	}

	entry := &models.HistoryEntry{
		UserID:         userID,
		Filename:       filename,
		TopLabel:       preds[0].Label,
		TopConfidence:  preds[0].Confidence,
		Source:         source,
		TopPredictions: topJSON,
	}
	if err := s.history.Add(ctx, entry); err != nil {
		slog.Warn("failed to record prediction history",
			slog.String("user_id", userID.String()),
			slog.String("source", source),
			slog.Any("error", err))
	}
}

func visiblePredictions(filtered, all []inference.Prediction) []inference.Prediction {
	if len(filtered) > 0 {
		return filtered
	}
	return all
}

func displayPredictions(preds []inference.Prediction, language string) []models.DisplayPrediction {
	out := make([]models.DisplayPrediction, 0, len(preds))
	for _, p := range preds {
		out = append(out, models.DisplayPrediction{
			Label:      translation.TranslateLabel(p.Label, language),
			LabelRaw:   p.Label,
			Confidence: roundConfidence(p.Confidence),
		})
	}
	return out
}

func roundConfidence(c float64) float64 {
	return math.Round(c*100) / 100
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func recordFailure(source string, err error) {
	kind := "internal"
	if k, ok := media.KindOf(err); ok {
		kind = string(k)
	}
	metrics.RecordAnalysisFailure(source, kind)
}
