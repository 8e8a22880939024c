package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	yt "github.com/kkdai/youtube/v2"
)

const maxVideoHeight = 720

// VideoFetcher downloads a single self-contained video stream (no separate
// audio track to mux) no taller than 720p, capped at maxBytes.
type VideoFetcher interface {
	FetchVideo(ctx context.Context, rawURL string, maxBytes int64) (*Resource, error)
}

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
}

func videoContentType(path string) string {
	if ct, ok := videoContentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "video/mp4"
}

// ──── yt-dlp ────

const ytDlpFormat = "bv*[height<=720]/bestvideo[height<=720]/best[height<=720]/best"

// YtDlpFetcher shells out to yt-dlp.
type YtDlpFetcher struct {
	binary string
}

// NewYtDlpFetcher resolves the yt-dlp binary up front so a missing tool is a
// startup error rather than a per-request one.
func NewYtDlpFetcher(binary string) (*YtDlpFetcher, error) {
	if binary == "" {
		binary = "yt-dlp"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, wrapError(KindDependencyMissing, err, "yt-dlp is not installed")
	}
	return &YtDlpFetcher{binary: path}, nil
}

func (y *YtDlpFetcher) FetchVideo(ctx context.Context, rawURL string, maxBytes int64) (*Resource, error) {
	tmpDir, err := os.MkdirTemp("", "yt-video-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	base := filepath.Join(tmpDir, "yt_video")
	cmd := exec.CommandContext(ctx, y.binary,
		"--no-playlist",
		"--no-warnings",
		"--quiet",
		"--no-simulate",
		"--format", ytDlpFormat,
		"--max-filesize", fmt.Sprintf("%d", maxBytes),
		"--output", base+".%(ext)s",
		"--print", "after_move:filepath",
		rawURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, wrapError(KindDownloadFailed, err, "failed to fetch YouTube video: %s", strings.TrimSpace(stderr.String()))
	}

	path, err := resolveDownloadedVideo(lastLine(stdout.String()), base, tmpDir)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, wrapError(KindDownloadFailed, err, "YouTube video file not found after download")
	}
	defer f.Close()

	body, err := readCapped(f, maxBytes)
	if err != nil {
		return nil, err
	}

	slog.Info("downloaded YouTube video",
		slog.String("url", rawURL),
		slog.String("file", filepath.Base(path)),
		slog.Int("bytes", len(body)))

	return &Resource{Body: body, ContentType: videoContentType(path), FinalURL: rawURL}, nil
}

// resolveDownloadedVideo picks the downloaded file: the path yt-dlp
// reported, then the predicted name with common container extensions, then
// the largest video file left in dir.
func resolveDownloadedVideo(reported, base, dir string) (string, error) {
	if reported != "" && fileExists(reported) {
		return reported, nil
	}

	for _, ext := range []string{".mp4", ".mkv", ".webm", ".mov"} {
		if candidate := base + ext; fileExists(candidate) {
			return candidate, nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err == nil {
		type sized struct {
			path string
			size int64
		}
		var found []sized
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, ok := videoContentTypes[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			found = append(found, sized{filepath.Join(dir, e.Name()), info.Size()})
		}
		sort.Slice(found, func(i, j int) bool { return found[i].size > found[j].size })
		if len(found) > 0 {
			return found[0].path, nil
		}
	}

	return "", newError(KindDownloadFailed, "YouTube video file not found after download")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// ──── native (kkdai/youtube) ────

// NativeYouTubeFetcher downloads through the YouTube player API without any
// external tool.
type NativeYouTubeFetcher struct {
	client *yt.Client
}

func NewNativeYouTubeFetcher(httpClient *http.Client) *NativeYouTubeFetcher {
	return &NativeYouTubeFetcher{client: &yt.Client{HTTPClient: httpClient}}
}

func (n *NativeYouTubeFetcher) FetchVideo(ctx context.Context, rawURL string, maxBytes int64) (*Resource, error) {
	video, err := n.client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return nil, wrapError(KindDownloadFailed, err, "failed to fetch YouTube video metadata")
	}

	format, err := pickVideoFormat(video.Formats)
	if err != nil {
		return nil, err
	}

	stream, size, err := n.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, wrapError(KindDownloadFailed, err, "failed to open video stream")
	}
	defer stream.Close()

	if size > maxBytes {
		return nil, newError(KindPayloadTooLarge, "YouTube video is too large (max %d MB)", maxBytes>>20)
	}

	body, err := readCapped(stream, maxBytes)
	if err != nil {
		return nil, err
	}

	mimeType := strings.TrimSpace(strings.Split(format.MimeType, ";")[0])
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	return &Resource{Body: body, ContentType: mimeType, FinalURL: rawURL}, nil
}

// pickVideoFormat chooses the tallest video stream within 720p, preferring
// progressive (audio-carrying) streams and then mp4 containers on ties.
func pickVideoFormat(formats yt.FormatList) (*yt.Format, error) {
	var best *yt.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "video/") || f.Height <= 0 || f.Height > maxVideoHeight {
			continue
		}
		if best == nil || betterFormat(f, best) {
			best = f
		}
	}
	if best == nil {
		return nil, wrapError(KindDownloadFailed, errors.New("no video stream within 720p"), "failed to select YouTube format")
	}
	return best, nil
}

func betterFormat(a, b *yt.Format) bool {
	if a.Height != b.Height {
		return a.Height > b.Height
	}
	if (a.AudioChannels > 0) != (b.AudioChannels > 0) {
		return a.AudioChannels > 0
	}
	aMP4 := strings.HasPrefix(a.MimeType, "video/mp4")
	bMP4 := strings.HasPrefix(b.MimeType, "video/mp4")
	if aMP4 != bMP4 {
		return aMP4
	}
	return a.Bitrate > b.Bitrate
}
