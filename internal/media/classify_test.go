package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		mode        Mode
		url         string
		contentType string
		prefix      string
		want        ContentKind
	}{
		{"forced image beats pdf type", ModeImage, "https://x.test/doc.pdf", "application/pdf", "%PDF-1.7", ContentImage},
		{"forced video beats html", ModeVideo, "https://x.test/", "text/html", "<html>", ContentVideo},
		{"image content type", ModeAuto, "https://x.test/a", "image/png", "", ContentImage},
		{"video content type uppercase", ModeAuto, "https://x.test/a", "Video/MP4", "", ContentVideo},
		{"pdf content type", ModeAuto, "https://x.test/a", "application/pdf", "", ContentPDF},
		{"pdf extension", ModeAuto, "https://x.test/paper.PDF", "application/octet-stream", "", ContentPDF},
		{"pdf magic", ModeAuto, "https://x.test/download", "", "%PDF-1.4", ContentPDF},
		{"html content type", ModeAuto, "https://x.test/", "text/html; charset=utf-8", "", ContentWebpage},
		{"html sniffed", ModeAuto, "https://x.test/", "application/octet-stream", "  <!DOCTYPE HTML><html>", ContentWebpage},
		{"plain text type", ModeAuto, "https://x.test/a", "text/plain", "hello", ContentText},
		{"txt extension", ModeAuto, "https://x.test/notes.txt", "", "hello", ContentText},
		{"image extension fallback", ModeAuto, "https://x.test/pic.webp?x=1", "application/octet-stream", "", ContentImage},
		{"video extension fallback", ModeAuto, "https://x.test/clip.mkv", "binary/octet-stream", "", ContentVideo},
		{"unknown", ModeAuto, "https://x.test/archive.zip", "application/zip", "PK", ContentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.mode, tt.url, tt.contentType, []byte(tt.prefix))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Classify(tt.mode, tt.url, tt.contentType, []byte(tt.prefix)), "classification must be stable")
		})
	}
}

func TestClassify_SniffWindowIsOneKilobyte(t *testing.T) {
	padded := make([]byte, 2048)
	for i := range padded {
		padded[i] = ' '
	}
	copy(padded[1500:], "<html>")

	assert.Equal(t, ContentUnknown, Classify(ModeAuto, "https://x.test/blob", "", padded))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	assert.NoError(t, err)
	assert.Equal(t, ModeAuto, m)

	m, err = ParseMode("video")
	assert.NoError(t, err)
	assert.Equal(t, ModeVideo, m)

	_, err = ParseMode("audio")
	assert.True(t, IsKind(err, KindInvalidInput))
}
