package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"recognition-backend/internal/media"
	"recognition-backend/internal/middleware"
	"recognition-backend/internal/models"
	"recognition-backend/internal/services"
)

const (
	maxUploadBytes      = media.MaxDownloadBytes
	maxBatchUploadBytes = 4 * media.MaxDownloadBytes
	multipartMemory     = 32 << 20
	multipartOverhead   = 1 << 20 // boundaries and part headers around the file
)

type predictionService interface {
	PredictImage(ctx context.Context, userID uuid.UUID, file services.UploadedFile, opts services.PredictionOptions) (*models.ImagePredictionResponse, error)
	PredictBatch(ctx context.Context, userID uuid.UUID, files []services.UploadedFile, opts services.PredictionOptions) *models.BatchPredictionResponse
	PredictVideo(ctx context.Context, userID uuid.UUID, file services.UploadedFile, params services.VideoParams) (*models.VideoPredictionResponse, error)
	PredictURL(ctx context.Context, userID uuid.UUID, req models.URLPredictionRequest) (*models.URLPredictionResponse, error)
	EnqueueURL(ctx context.Context, userID uuid.UUID, req models.URLPredictionRequest) (*models.Job, error)
}

type PredictHandler struct {
	predictions predictionService
}

func NewPredictHandler(predictions predictionService) *PredictHandler {
	return &PredictHandler{predictions: predictions}
}

func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	opts, fields := parsePredictionOptions(r)
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+multipartOverhead)
	file, ok := readFormFile(w, r, "file")
	if !ok {
		return
	}

	resp, err := h.predictions.PredictImage(r.Context(), middleware.GetUserID(r.Context()), file, opts)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *PredictHandler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	opts, fields := parsePredictionOptions(r)
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBatchUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeUploadError(w, r, err)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No files provided", r))
		return
	}

	files := make([]services.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readMultipartFile(fh)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read "+fh.Filename, r))
			return
		}
		files = append(files, services.UploadedFile{Filename: fh.Filename, Data: data})
	}

	writeJSON(w, http.StatusOK, h.predictions.PredictBatch(r.Context(), middleware.GetUserID(r.Context()), files, opts))
}

func (h *PredictHandler) PredictVideo(w http.ResponseWriter, r *http.Request) {
	opts, fields := parsePredictionOptions(r)
	params := services.VideoParams{PredictionOptions: opts}
	params.SampleEvery = queryInt(r, "sample_every", 0, fields)
	params.MaxFrames = queryInt(r, "max_frames", 0, fields)
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+multipartOverhead)
	file, ok := readFormFile(w, r, "file")
	if !ok {
		return
	}

	resp, err := h.predictions.PredictVideo(r.Context(), middleware.GetUserID(r.Context()), file, params)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *PredictHandler) PredictURL(w http.ResponseWriter, r *http.Request) {
	var req models.URLPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	resp, err := h.predictions.PredictURL(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *PredictHandler) PredictURLAsync(w http.ResponseWriter, r *http.Request) {
	var req models.URLPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	job, err := h.predictions.EnqueueURL(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
	})
}

func parsePredictionOptions(r *http.Request) (services.PredictionOptions, map[string]string) {
	fields := make(map[string]string)
	opts := services.PredictionOptions{
		TopK:     queryInt(r, "top_k", media.DefaultTopK, fields),
		MinConf:  queryFloat(r, "min_conf", 0, fields),
		Language: services.DefaultLanguage,
	}
	if lang := strings.TrimSpace(r.URL.Query().Get("language")); lang != "" {
		opts.Language = lang
	}
	return opts, fields
}

func queryInt(r *http.Request, key string, def int, fields map[string]string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fields[key] = "Must be an integer"
		return def
	}
	return n
}

func queryFloat(r *http.Request, key string, def float64, fields map[string]string) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		fields[key] = "Must be a number"
		return def
	}
	return f
}

func readFormFile(w http.ResponseWriter, r *http.Request, field string) (services.UploadedFile, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		writeUploadError(w, r, err)
		return services.UploadedFile{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeUploadError(w, r, err)
		return services.UploadedFile{}, false
	}
	return services.UploadedFile{Filename: header.Filename, Data: data}, true
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("PAYLOAD_TOO_LARGE", "Upload exceeds the size limit", r))
		return
	}
	writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
}
