package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"recognition-backend/internal/inference"
)

const (
	DefaultSampleEvery      = 15
	DefaultMaxSampledFrames = 12
	DefaultTopK             = 5
)

type VideoOptions struct {
	TopK             int
	MinConf          float64
	SampleEvery      int
	MaxSampledFrames int
}

func (o VideoOptions) validate() error {
	if o.SampleEvery < 1 {
		return newError(KindInvalidInput, "sample_every_n_frames must be >= 1")
	}
	if o.MaxSampledFrames < 1 {
		return newError(KindInvalidInput, "max_sampled_frames must be >= 1")
	}
	return validateRanking(o.TopK, o.MinConf)
}

func validateRanking(topK int, minConf float64) error {
	if topK < 1 {
		return newError(KindInvalidInput, "top_k must be at least 1")
	}
	if minConf < 0 || minConf > 100 {
		return newError(KindInvalidInput, "min_conf must be between 0 and 100")
	}
	return nil
}

// VideoAnalyzer samples frames from a video and aggregates per-frame
// predictions into one ranking.
type VideoAnalyzer struct {
	decoder    FrameDecoder
	classifier inference.Classifier
}

func NewVideoAnalyzer(decoder FrameDecoder, classifier inference.Classifier) *VideoAnalyzer {
	return &VideoAnalyzer{decoder: decoder, classifier: classifier}
}

func (v *VideoAnalyzer) AnalyzeVideo(ctx context.Context, data []byte, opts VideoOptions) (*VideoAnalysis, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if v.decoder == nil {
		return nil, newError(KindDependencyMissing, "no video decoder is configured")
	}

	tmp, err := os.CreateTemp("", "video-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp video file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp video file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp video file: %w", err)
	}

	stream, err := v.decoder.Open(ctx, tmp.Name())
	if err != nil {
		var me *Error
		if errors.As(err, &me) {
			return nil, err
		}
		return nil, wrapError(KindNoFramesAnalyzed, err, "video could not be opened")
	}
	defer stream.Close()

	var (
		collected [][]inference.Prediction
		total     int
		sampled   int
		decodeErr error
	)

	for index := 0; sampled < opts.MaxSampledFrames; index++ {
		if err := stream.Next(); err != nil {
			if !errors.Is(err, io.EOF) {
				decodeErr = err
			}
			break
		}
		total++

		if index%opts.SampleEvery != 0 {
			continue
		}

		frame, err := stream.Image()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				decodeErr = err
			}
			break
		}

		preds, err := v.classifier.Classify(ctx, frame, opts.TopK)
		if err != nil {
			return nil, classifierError(err)
		}
		collected = append(collected, preds)
		sampled++
	}

	if sampled == 0 {
		if decodeErr != nil {
			return nil, wrapError(KindNoFramesAnalyzed, decodeErr, "no frames could be analyzed from the video")
		}
		return nil, newError(KindNoFramesAnalyzed, "no frames could be analyzed from the video")
	}
	if decodeErr != nil {
		slog.Warn("video decoding stopped early",
			slog.Int("sampled_frames", sampled),
			slog.Any("error", decodeErr))
	}

	preds := aggregatePredictions(collected, opts.TopK)
	filtered := inference.Filter(preds, opts.MinConf)

	visible := filtered
	if len(visible) == 0 {
		visible = preds
	}

	return &VideoAnalysis{
		Predictions:   preds,
		Filtered:      filtered,
		Insight:       fmt.Sprintf("Video analysis of %d sampled frames. ", sampled) + inference.GenerateInsight(visible),
		SampledFrames: sampled,
		TotalFrames:   total,
	}, nil
}

// aggregatePredictions averages each label over the frames it appeared in,
// not over every sampled frame, then ranks and truncates to topK.
func aggregatePredictions(frames [][]inference.Prediction, topK int) []inference.Prediction {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	var order []string

	for _, frame := range frames {
		for _, p := range frame {
			if _, ok := counts[p.Label]; !ok {
				order = append(order, p.Label)
			}
			sums[p.Label] += p.Confidence
			counts[p.Label]++
		}
	}

	averaged := make([]inference.Prediction, 0, len(order))
	for _, label := range order {
		averaged = append(averaged, inference.Prediction{
			Label:      label,
			Confidence: sums[label] / float64(counts[label]),
		})
	}

	sort.SliceStable(averaged, func(i, j int) bool {
		return averaged[i].Confidence > averaged[j].Confidence
	})
	if len(averaged) > topK {
		averaged = averaged[:topK]
	}
	return averaged
}

func classifierError(err error) error {
	if errors.Is(err, inference.ErrInvalidTopK) {
		return wrapError(KindInvalidInput, err, "invalid classification parameters")
	}
	return fmt.Errorf("inference failed: %w", err)
}
