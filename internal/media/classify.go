package media

import (
	"bytes"
	"net/url"
	"strings"
)

const sniffWindow = 1024

var (
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp"}
	videoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}
)

// Classify decides the content kind of a fetched resource. A forced image or
// video mode wins outright; otherwise the declared content type, the leading
// bytes and finally the URL path extension are consulted in that order.
func Classify(mode Mode, rawURL, contentType string, prefix []byte) ContentKind {
	switch mode {
	case ModeImage:
		return ContentImage
	case ModeVideo:
		return ContentVideo
	}

	ct := strings.ToLower(strings.TrimSpace(contentType))
	path := urlPath(rawURL)

	switch {
	case strings.HasPrefix(ct, "image/"):
		return ContentImage
	case strings.HasPrefix(ct, "video/"):
		return ContentVideo
	case strings.HasPrefix(ct, "application/pdf") || strings.HasSuffix(path, ".pdf") || bytes.HasPrefix(prefix, []byte("%PDF")):
		return ContentPDF
	case strings.HasPrefix(ct, "text/html") || looksLikeHTML(prefix):
		return ContentWebpage
	case strings.HasPrefix(ct, "text/plain") || strings.HasSuffix(path, ".txt"):
		return ContentText
	case hasAnySuffix(path, imageExtensions):
		return ContentImage
	case hasAnySuffix(path, videoExtensions):
		return ContentVideo
	}
	return ContentUnknown
}

func looksLikeHTML(raw []byte) bool {
	if len(raw) > sniffWindow {
		raw = raw[:sniffWindow]
	}
	head := strings.ToLower(string(bytes.ToValidUTF8(raw, nil)))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Path)
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
