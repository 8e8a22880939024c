package media

import (
	"context"
	"fmt"

	"recognition-backend/internal/inference"
)

// ResourceFetcher is the download surface the Analyzer needs. *Fetcher
// implements it.
type ResourceFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Resource, error)
	Download(ctx context.Context, rawURL string) (*Resource, error)
	FetchVideo(ctx context.Context, rawURL string) (*Resource, error)
}

// URLRequest describes one AnalyzeURL call.
type URLRequest struct {
	URL              string
	Mode             Mode
	TopK             int
	MinConf          float64
	SampleEvery      int
	MaxSampledFrames int
}

func (r URLRequest) videoOptions() VideoOptions {
	return VideoOptions{
		TopK:             r.TopK,
		MinConf:          r.MinConf,
		SampleEvery:      r.SampleEvery,
		MaxSampledFrames: r.MaxSampledFrames,
	}
}

// Analyzer ties fetching, classification and the per-kind analyzers
// together. It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	fetcher    ResourceFetcher
	classifier inference.Classifier
	video      *VideoAnalyzer
	text       TextExtractor
}

func NewAnalyzer(fetcher ResourceFetcher, classifier inference.Classifier, video *VideoAnalyzer, text TextExtractor) (*Analyzer, error) {
	switch {
	case fetcher == nil:
		return nil, newError(KindDependencyMissing, "a resource fetcher is required")
	case classifier == nil:
		return nil, newError(KindDependencyMissing, "an inference classifier is required")
	case video == nil:
		return nil, newError(KindDependencyMissing, "a video analyzer is required")
	case text == nil:
		return nil, newError(KindDependencyMissing, "a PDF text extractor is required")
	}
	return &Analyzer{fetcher: fetcher, classifier: classifier, video: video, text: text}, nil
}

// AnalyzeImage classifies a single encoded image.
func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte, topK int, minConf float64) (*ImageAnalysis, error) {
	if err := validateRanking(topK, minConf); err != nil {
		return nil, err
	}

	img, _, err := inference.DecodeImage(data)
	if err != nil {
		return nil, wrapError(KindInvalidInput, err, "content is not a valid image")
	}

	preds, err := a.classifier.Classify(ctx, img, topK)
	if err != nil {
		return nil, classifierError(err)
	}

	filtered := inference.Filter(preds, minConf)
	visible := filtered
	if len(visible) == 0 {
		visible = preds
	}

	return &ImageAnalysis{
		Predictions: preds,
		Filtered:    filtered,
		Insight:     inference.GenerateInsight(visible),
	}, nil
}

// AnalyzeVideo samples and classifies an encoded video.
func (a *Analyzer) AnalyzeVideo(ctx context.Context, data []byte, opts VideoOptions) (*VideoAnalysis, error) {
	return a.video.AnalyzeVideo(ctx, data, opts)
}

// AnalyzeURL fetches a URL, decides what it is and runs the matching
// analyzer. YouTube URLs are always analyzed as video. In auto mode the
// resource is analyzed as served, so HTML pages become webpage documents;
// a forced image or video mode follows the page's media metadata instead.
func (a *Analyzer) AnalyzeURL(ctx context.Context, req URLRequest) (*URLAnalysisResult, error) {
	if _, err := ValidateURL(req.URL); err != nil {
		return nil, err
	}
	if req.Mode == "" {
		req.Mode = ModeAuto
	}
	if err := validateRanking(req.TopK, req.MinConf); err != nil {
		return nil, err
	}

	if IsYouTubeURL(req.URL) {
		res, err := a.fetcher.FetchVideo(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		return a.videoResult(ctx, req, res, req.URL)
	}

	var (
		res *Resource
		err error
	)
	if req.Mode == ModeAuto {
		res, err = a.fetcher.Download(ctx, req.URL)
	} else {
		res, err = a.fetcher.Fetch(ctx, req.URL)
	}
	if err != nil {
		return nil, err
	}

	kind := Classify(req.Mode, res.FinalURL, res.ContentType, res.Body)

	switch kind {
	case ContentImage:
		analysis, err := a.AnalyzeImage(ctx, res.Body, req.TopK, req.MinConf)
		if err != nil {
			return nil, err
		}
		return &URLAnalysisResult{
			URL:                 req.URL,
			FinalURL:            res.FinalURL,
			ContentType:         res.ContentType,
			ContentKind:         ContentImage,
			Insight:             analysis.Insight,
			Predictions:         analysis.Predictions,
			FilteredPredictions: analysis.Filtered,
		}, nil

	case ContentVideo:
		return a.videoResult(ctx, req, res, res.FinalURL)

	case ContentPDF:
		text, err := a.text.ExtractText(res.Body, pdfMaxPages)
		if err != nil {
			return nil, wrapError(KindUnsupportedContent, err, "PDF text could not be extracted")
		}
		return documentResult(req, res, ContentPDF, "PDF document detected. ", SummarizeDocument(text, defaultPDFTitle)), nil

	case ContentWebpage:
		title, text := ExtractWebpage(res.Body)
		if title == "" {
			title = defaultPageTitle
		}
		return documentResult(req, res, ContentWebpage, "Web page detected. ", SummarizeDocument(text, title)), nil

	case ContentText:
		return documentResult(req, res, ContentText, "Text document detected. ", SummarizeDocument(decodeText(res.Body), defaultTextTitle)), nil

	case ContentUnknown:
		return nil, newError(KindUnsupportedContent, "URL is not a supported media type or document")
	}

	return nil, fmt.Errorf("unhandled content kind %q", kind)
}

func (a *Analyzer) videoResult(ctx context.Context, req URLRequest, res *Resource, finalURL string) (*URLAnalysisResult, error) {
	analysis, err := a.video.AnalyzeVideo(ctx, res.Body, req.videoOptions())
	if err != nil {
		return nil, err
	}

	sampled, total := analysis.SampledFrames, analysis.TotalFrames
	return &URLAnalysisResult{
		URL:                 req.URL,
		FinalURL:            finalURL,
		ContentType:         res.ContentType,
		ContentKind:         ContentVideo,
		Insight:             analysis.Insight,
		Predictions:         analysis.Predictions,
		FilteredPredictions: analysis.Filtered,
		SampledFrames:       &sampled,
		TotalFrames:         &total,
	}, nil
}

func documentResult(req URLRequest, res *Resource, kind ContentKind, lead string, doc *DocumentSummary) *URLAnalysisResult {
	return &URLAnalysisResult{
		URL:                 req.URL,
		FinalURL:            res.FinalURL,
		ContentType:         res.ContentType,
		ContentKind:         kind,
		Insight:             lead + doc.Summary,
		Predictions:         []inference.Prediction{},
		FilteredPredictions: []inference.Prediction{},
		Document:            doc,
	}
}

// IsClientError reports whether err describes unusable input rather than a
// deployment or server fault.
func IsClientError(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind != KindDependencyMissing
}

var _ ResourceFetcher = (*Fetcher)(nil)
