package inference

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"recognition-backend/internal/metrics"
)

// Prediction is a single label with its confidence in percent (0..100).
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier ranks the objects visible in an image. Implementations return at
// most topK predictions ordered by descending confidence.
type Classifier interface {
	Classify(ctx context.Context, img image.Image, topK int) ([]Prediction, error)
}

var ErrInvalidTopK = errors.New("top_k must be at least 1")

// Factory builds the underlying classifier on first use.
type Factory func() (Classifier, error)

// Lazy defers construction of a classifier until the first Classify call.
// Construction runs at most once even under concurrent callers, and its
// result (or error) is kept for the life of the process.
type Lazy struct {
	factory Factory
	once    sync.Once
	inner   Classifier
	err     error
}

func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

func (l *Lazy) Classify(ctx context.Context, img image.Image, topK int) ([]Prediction, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}
	l.once.Do(func() {
		l.inner, l.err = l.factory()
	})
	if l.err != nil {
		return nil, fmt.Errorf("failed to initialize classifier: %w", l.err)
	}

	start := time.Now()
	preds, err := l.inner.Classify(ctx, img, topK)
	metrics.RecordInference(time.Since(start), err)
	return preds, err
}

// rankTopK sorts predictions by descending confidence and keeps the first topK.
func rankTopK(preds []Prediction, topK int) []Prediction {
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Confidence > preds[j].Confidence
	})
	if len(preds) > topK {
		preds = preds[:topK]
	}
	return preds
}

// Filter returns the predictions with confidence >= minConf, preserving order.
func Filter(preds []Prediction, minConf float64) []Prediction {
	filtered := make([]Prediction, 0, len(preds))
	for _, p := range preds {
		if p.Confidence >= minConf {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
