package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiPromptTemplate = `Identify the main objects in this image.
Respond with a JSON array of at most %d objects ordered from most to least likely.
Each object must have "label" (a short ImageNet-style class name in English) and
"confidence" (a number between 0 and 100). Return only the JSON array.`

// GeminiClassifier uses a multimodal Gemini model as the ranking function.
type GeminiClassifier struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiClassifier(ctx context.Context, apiKey, modelName string) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini inference backend")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"

	return &GeminiClassifier{client: client, model: model}, nil
}

func (g *GeminiClassifier) Close() {
	g.client.Close()
}

func (g *GeminiClassifier) Classify(ctx context.Context, img image.Image, topK int) ([]Prediction, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}

	data, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}

	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData("jpeg", data),
		genai.Text(fmt.Sprintf(geminiPromptTemplate, topK)),
	)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}

	return parseGeminiPredictions(sb.String(), topK)
}

func parseGeminiPredictions(raw string, topK int) ([]Prediction, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var preds []Prediction
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &preds); err != nil {
		return nil, fmt.Errorf("failed to parse Gemini predictions: %w", err)
	}

	out := preds[:0]
	for _, p := range preds {
		if p.Label == "" {
			continue
		}
		if p.Confidence < 0 {
			p.Confidence = 0
		}
		if p.Confidence > 100 {
			p.Confidence = 100
		}
		out = append(out, p)
	}
	return rankTopK(out, topK), nil
}
