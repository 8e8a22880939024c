package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// MaxDownloadBytes caps every download, direct or through a video fetcher.
	MaxDownloadBytes int64 = 50 << 20

	DefaultFetchTimeout = 20 * time.Second

	fetchUserAgent = "MultimediaRecognitionApp/1.0"

	// maxFollowDepth bounds how many HTML pages may be hopped through to
	// reach a media resource.
	maxFollowDepth = 1
)

// Resource is a downloaded payload plus what the server said about it.
type Resource struct {
	Body        []byte
	ContentType string
	FinalURL    string
}

// Fetcher downloads URLs under a size cap and routes YouTube-family hosts to
// a VideoFetcher. A Fetcher is safe for concurrent use; per-call state (the
// visited set) lives on the stack of each call.
type Fetcher struct {
	client   *http.Client
	videos   VideoFetcher
	maxBytes int64
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) { f.maxBytes = n }
}

func NewFetcher(timeout time.Duration, videos VideoFetcher, opts ...FetcherOption) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	f := &Fetcher{
		client:   newFetchClient(timeout),
		videos:   videos,
		maxBytes: MaxDownloadBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func newFetchClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 15 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// Fetch downloads rawURL. When the response is an HTML page, the media
// candidates it advertises are tried in priority order. Pages are followed
// at most maxFollowDepth levels deep; a page reached at the last level is
// returned as-is.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Resource, error) {
	visited := make(map[string]struct{})
	targets := []string{rawURL}
	page := rawURL

	for depth := 0; depth <= maxFollowDepth; depth++ {
		var (
			next     []string
			lastErr  error
			allLoops = true
		)

		for _, target := range targets {
			res, err := f.fetchOnce(ctx, target, visited)
			if err != nil {
				if depth == 0 || ctx.Err() != nil {
					return nil, err
				}
				slog.Debug("media candidate failed",
					slog.String("page", page),
					slog.String("candidate", target),
					slog.Any("error", err))
				if !IsKind(err, KindRedirectLoop) {
					allLoops = false
				}
				lastErr = err
				continue
			}

			if depth < maxFollowDepth && isHTMLResource(res) {
				page = res.FinalURL
				next = ExtractMediaCandidates(string(res.Body), res.FinalURL)
				break
			}
			return res, nil
		}

		if depth > 0 {
			switch {
			case lastErr == nil:
			case allLoops:
				return nil, wrapError(KindRedirectLoop, lastErr, "page only links back to already visited URLs")
			default:
				return nil, wrapError(KindNoMediaFound, lastErr, "could not determine media type from URL")
			}
		}
		if len(next) == 0 {
			break
		}
		targets = next
	}

	return nil, newError(KindNoMediaFound, "could not determine media type from URL")
}

// Download performs a single capped GET without following HTML pages.
// YouTube-family URLs still go through the video fetcher.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (*Resource, error) {
	return f.fetchOnce(ctx, rawURL, make(map[string]struct{}))
}

// FetchVideo delegates to the configured VideoFetcher.
func (f *Fetcher) FetchVideo(ctx context.Context, rawURL string) (*Resource, error) {
	if f.videos == nil {
		return nil, newError(KindDependencyMissing, "no video downloader is configured for YouTube URLs")
	}
	res, err := f.videos.FetchVideo(ctx, rawURL, f.maxBytes)
	if err != nil {
		var me *Error
		if errors.As(err, &me) {
			return nil, err
		}
		return nil, wrapError(KindDownloadFailed, err, "failed to download YouTube video")
	}
	return res, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string, visited map[string]struct{}) (*Resource, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	normalized := stripFragment(u)
	if _, ok := visited[normalized]; ok {
		return nil, newError(KindRedirectLoop, "URL loop detected while fetching media: %s", normalized)
	}
	visited[normalized] = struct{}{}

	if IsYouTubeURL(rawURL) {
		return f.FetchVideo(ctx, rawURL)
	}

	return f.get(ctx, rawURL)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, wrapError(KindInvalidInput, err, "invalid URL")
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, wrapError(KindDownloadFailed, err, "failed to download %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(KindDownloadFailed, "download of %s returned status %d", rawURL, resp.StatusCode)
	}

	body, err := readCapped(resp.Body, f.maxBytes)
	if err != nil {
		return nil, err
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Resource{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    finalURL,
	}, nil
}

// readCapped reads at most limit bytes, reading one extra byte to detect
// oversized payloads without buffering them.
func readCapped(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, wrapError(KindDownloadFailed, err, "failed to read response body")
	}
	if int64(len(body)) > limit {
		return nil, newError(KindPayloadTooLarge, "file from URL is too large (max %d MB)", limit>>20)
	}
	return body, nil
}

// ValidateURL parses rawURL and rejects anything but absolute http(s) URLs.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, wrapError(KindInvalidInput, err, "URL must use http/https")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, newError(KindInvalidInput, "URL must use http/https")
	}
	if u.Host == "" {
		return nil, newError(KindInvalidInput, "URL must include a host")
	}
	return u, nil
}

// IsYouTubeURL matches youtube.com, youtu.be and m.youtube.com hosts.
func IsYouTubeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	return strings.Contains(host, "youtube.com") ||
		strings.Contains(host, "youtu.be") ||
		strings.Contains(host, "m.youtube.com")
}

func stripFragment(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}

func isHTMLResource(r *Resource) bool {
	return strings.HasPrefix(strings.ToLower(r.ContentType), "text/html") || looksLikeHTML(r.Body)
}
