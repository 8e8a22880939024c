package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPClassifier calls an image-classification model server that accepts a
// raw JPEG body and answers with [{"label": "...", "score": 0.93}, ...]
// (the Hugging Face inference format). Scores are fractions and are scaled to
// percent.
type HTTPClassifier struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPClassifier(endpoint, token string, timeout time.Duration) (*HTTPClassifier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("inference endpoint is not configured")
	}
	slog.Info("[HTTPClassifier] Initializing client",
		slog.String("endpoint", endpoint),
		slog.Duration("timeout", timeout))

	return &HTTPClassifier{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type scoredLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, img image.Image, topK int) ([]Prediction, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}

	body, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference server returned %d: %s", resp.StatusCode, string(snippet))
	}

	var scored []scoredLabel
	if err := json.NewDecoder(resp.Body).Decode(&scored); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}

	slog.Debug("[HTTPClassifier] Inference complete",
		slog.Int("labels", len(scored)),
		slog.Duration("elapsed", time.Since(start)))

	preds := make([]Prediction, 0, len(scored))
	for _, s := range scored {
		preds = append(preds, Prediction{Label: s.Label, Confidence: s.Score * 100})
	}
	return rankTopK(preds, topK), nil
}
