package inference

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Registered decoders for uploads and fetched media.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes any registered image format.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("content is not a valid image: %w", err)
	}
	return img, format, nil
}

// encodeJPEG produces the canonical RGB payload sent to remote backends.
func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
