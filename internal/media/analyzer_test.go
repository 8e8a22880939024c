package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recognition-backend/internal/inference"
)

type fakeResourceFetcher struct {
	resource *Resource
	err      error
	calls    []string
}

func (f *fakeResourceFetcher) Fetch(ctx context.Context, rawURL string) (*Resource, error) {
	f.calls = append(f.calls, "fetch")
	return f.resource, f.err
}

func (f *fakeResourceFetcher) Download(ctx context.Context, rawURL string) (*Resource, error) {
	f.calls = append(f.calls, "download")
	return f.resource, f.err
}

func (f *fakeResourceFetcher) FetchVideo(ctx context.Context, rawURL string) (*Resource, error) {
	f.calls = append(f.calls, "video")
	return f.resource, f.err
}

type fakeTextExtractor struct {
	text string
	err  error
}

func (f fakeTextExtractor) ExtractText(data []byte, maxPages int) (string, error) {
	return f.text, f.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func newTestAnalyzer(t *testing.T, fetcher ResourceFetcher, text TextExtractor) *Analyzer {
	t.Helper()
	classifier := &stubClassifier{responses: [][]inference.Prediction{
		{{Label: "tabby", Confidence: 92}, {Label: "tiger cat", Confidence: 5}},
	}}
	video := NewVideoAnalyzer(&fakeDecoder{frames: 30}, classifier)
	if text == nil {
		text = fakeTextExtractor{}
	}
	a, err := NewAnalyzer(fetcher, classifier, video, text)
	require.NoError(t, err)
	return a
}

func TestNewAnalyzer_RequiresDependencies(t *testing.T) {
	_, err := NewAnalyzer(nil, &stubClassifier{}, &VideoAnalyzer{}, fakeTextExtractor{})
	assert.True(t, IsKind(err, KindDependencyMissing))

	_, err = NewAnalyzer(&fakeResourceFetcher{}, nil, &VideoAnalyzer{}, fakeTextExtractor{})
	assert.True(t, IsKind(err, KindDependencyMissing))
}

func TestAnalyzeURL_Image(t *testing.T) {
	fetcher := &fakeResourceFetcher{resource: &Resource{
		Body:        pngBytes(t),
		ContentType: "image/png",
		FinalURL:    "https://cdn.example.com/cat.png",
	}}
	a := newTestAnalyzer(t, fetcher, nil)

	got, err := a.AnalyzeURL(context.Background(), URLRequest{URL: "https://example.com/cat", TopK: 5, MinConf: 10})
	require.NoError(t, err)

	assert.Equal(t, []string{"download"}, fetcher.calls)
	assert.Equal(t, ContentImage, got.ContentKind)
	assert.Equal(t, "https://example.com/cat", got.URL)
	assert.Equal(t, "https://cdn.example.com/cat.png", got.FinalURL)
	assert.Len(t, got.Predictions, 2)
	require.Len(t, got.FilteredPredictions, 1)
	assert.Equal(t, "tabby", got.FilteredPredictions[0].Label)
	assert.Contains(t, got.Insight, "very confident")
	assert.Nil(t, got.Document)
	assert.Nil(t, got.SampledFrames)
}

func TestAnalyzeURL_ForcedModeFollowsPage(t *testing.T) {
	fetcher := &fakeResourceFetcher{resource: &Resource{
		Body:        pngBytes(t),
		ContentType: "application/octet-stream",
		FinalURL:    "https://cdn.example.com/blob",
	}}
	a := newTestAnalyzer(t, fetcher, nil)

	got, err := a.AnalyzeURL(context.Background(), URLRequest{URL: "https://example.com/page", Mode: ModeImage, TopK: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"fetch"}, fetcher.calls)
	assert.Equal(t, ContentImage, got.ContentKind)
}

func TestAnalyzeURL_Webpage(t *testing.T) {
	page := `<html><head><title>Hello</title></head><body><p>Cats sleep a lot. Cats also play.</p></body></html>`
	fetcher := &fakeResourceFetcher{resource: &Resource{
		Body:        []byte(page),
		ContentType: "text/html; charset=utf-8",
		FinalURL:    "https://example.com/article",
	}}
	a := newTestAnalyzer(t, fetcher, nil)

	got, err := a.AnalyzeURL(context.Background(), URLRequest{URL: "https://example.com/article", TopK: 5})
	require.NoError(t, err)

	assert.Equal(t, ContentWebpage, got.ContentKind)
	require.NotNil(t, got.Document)
	assert.Equal(t, "Hello", got.Document.Title)
	assert.Contains(t, got.Document.Keywords, "cats")
	assert.Equal(t, "Web page detected. "+got.Document.Summary, got.Insight)
	assert.NotNil(t, got.Predictions)
	assert.Empty(t, got.Predictions)
	assert.Empty(t, got.FilteredPredictions)
}

func TestAnalyzeURL_PDF(t *testing.T) {
	fetcher := &fakeResourceFetcher{resource: &Resource{
		Body:        []byte("%PDF-1.4 ..."),
		ContentType: "application/pdf",
		FinalURL:    "https://example.com/paper.pdf",
	}}

	a := newTestAnalyzer(t, fetcher, fakeTextExtractor{text: "Neural networks classify images. They learn features."})
	got, err := a.AnalyzeURL(context.Background(), URLRequest{URL: "https://example.com/paper.pdf", TopK: 5})
	require.NoError(t, err)
	assert.Equal(t, ContentPDF, got.ContentKind)
	assert.Equal(t, "PDF Document", got.Document.Title)
	assert.Equal(t, "PDF document detected. Neural networks classify images. They learn features.", got.Insight)

	broken := newTestAnalyzer(t, fetcher, fakeTextExtractor{err: errors.New("bad xref")})
	_, err = broken.AnalyzeURL(context.Background(), URLRequest{URL: "https://example.com/paper.pdf", TopK: 5})
	assert.True(t, IsKind(err, KindUnsupportedContent), "got %v", err)
}

func TestAnalyzeURL_Text(t *testing.T) {
	fetcher := &fakeResourceFetcher{resource: &Resource{
		Body:        []byte("plain notes"),
		ContentType: "text/plain",
		FinalURL:    "https://example.com/notes.txt",
	}}
	a := newTestAnalyzer(t, fetcher, nil)

	got, err := a.AnalyzeURL(context.Background(), URLRequest{URL: "https://example.com/notes.txt", TopK: 5})
	require.NoError(t, err)
	assert.Equal(t, ContentText, got.ContentKind)
	assert.Equal(t, "Text Document", got.Document.Title)
}

func TestAnalyzeURL_UnknownIsUnsupported(t *testing.T) {
	fetcher := &fakeResourceFetcher{resource: &Resource{
		Body:        []byte{0x00, 0x01, 0x02},
		ContentType: "application/octet-stream",
		FinalURL:    "https://example.com/blob.bin",
	}}
	a := newTestAnalyzer(t, fetcher, nil)

	_, err := a.AnalyzeURL(context.Background(), URLRequest{URL: "https://example.com/blob.bin", TopK: 5})
	assert.True(t, IsKind(err, KindUnsupportedContent), "got %v", err)
}

func TestAnalyzeURL_YouTubeIsAlwaysVideo(t *testing.T) {
	fetcher := &fakeResourceFetcher{resource: &Resource{
		Body:        []byte("not really a video"),
		ContentType: "video/mp4",
		FinalURL:    "https://rr1.googlevideo.com/stream",
	}}
	a := newTestAnalyzer(t, fetcher, nil)

	input := "https://www.youtube.com/watch?v=abc123"
	got, err := a.AnalyzeURL(context.Background(), URLRequest{
		URL:              input,
		Mode:             ModeImage,
		TopK:             5,
		SampleEvery:      DefaultSampleEvery,
		MaxSampledFrames: DefaultMaxSampledFrames,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"video"}, fetcher.calls)
	assert.Equal(t, ContentVideo, got.ContentKind)
	assert.Equal(t, input, got.FinalURL)
	require.NotNil(t, got.SampledFrames)
	assert.Equal(t, 2, *got.SampledFrames)
	assert.Equal(t, 30, *got.TotalFrames)
}

func TestAnalyzeURL_RejectsBadInput(t *testing.T) {
	fetcher := &fakeResourceFetcher{}
	a := newTestAnalyzer(t, fetcher, nil)

	_, err := a.AnalyzeURL(context.Background(), URLRequest{URL: "ftp://example.com/x.png", TopK: 5})
	assert.True(t, IsKind(err, KindInvalidInput))

	_, err = a.AnalyzeURL(context.Background(), URLRequest{URL: "https://example.com/x.png", TopK: 0})
	assert.True(t, IsKind(err, KindInvalidInput))

	assert.Empty(t, fetcher.calls)
}

func TestAnalyzeURL_PropagatesFetchErrors(t *testing.T) {
	fetcher := &fakeResourceFetcher{err: newError(KindPayloadTooLarge, "too big")}
	a := newTestAnalyzer(t, fetcher, nil)

	_, err := a.AnalyzeURL(context.Background(), URLRequest{URL: "https://example.com/huge.mp4", TopK: 5})
	assert.True(t, IsKind(err, KindPayloadTooLarge))
}

func TestAnalyzeImage_RejectsGarbage(t *testing.T) {
	a := newTestAnalyzer(t, &fakeResourceFetcher{}, nil)
	_, err := a.AnalyzeImage(context.Background(), []byte("not an image"), 5, 0)
	assert.True(t, IsKind(err, KindInvalidInput))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(newError(KindNoMediaFound, "x")))
	assert.False(t, IsClientError(newError(KindDependencyMissing, "x")))
	assert.False(t, IsClientError(errors.New("plain")))
}
