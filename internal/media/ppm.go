package media

import (
	"bufio"
	"fmt"
	"image"
	"io"
)

// readPPMHeader parses a binary (P6) PPM header and leaves r positioned at
// the first pixel byte. Only 8-bit samples are accepted.
func readPPMHeader(r *bufio.Reader) (width, height int, err error) {
	magic := make([]byte, 2)
	if _, err := io.ReadFull(r, magic); err != nil {
		return 0, 0, err
	}
	if string(magic) != "P6" {
		return 0, 0, fmt.Errorf("unexpected frame magic %q", magic)
	}

	var fields [3]int
	for i := range fields {
		n, err := readPPMInt(r)
		if err != nil {
			return 0, 0, err
		}
		fields[i] = n
	}
	// Exactly one whitespace byte separates the header from the pixels.
	if _, err := r.ReadByte(); err != nil {
		return 0, 0, err
	}

	width, height, maxVal := fields[0], fields[1], fields[2]
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if maxVal <= 0 || maxVal > 255 {
		return 0, 0, fmt.Errorf("unsupported frame depth %d", maxVal)
	}
	return width, height, nil
}

func readPPMInt(r *bufio.Reader) (int, error) {
	var b byte
	var err error

	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, io.ErrUnexpectedEOF
		}
		if b == '#' {
			if _, err := r.ReadString('\n'); err != nil {
				return 0, io.ErrUnexpectedEOF
			}
			continue
		}
		if !isPPMSpace(b) {
			break
		}
	}

	n := 0
	for {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("invalid frame header byte %q", b)
		}
		n = n*10 + int(b-'0')

		b, err = r.ReadByte()
		if err != nil {
			return 0, io.ErrUnexpectedEOF
		}
		if isPPMSpace(b) {
			r.UnreadByte()
			return n, nil
		}
	}
}

func isPPMSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func readPPMPixels(r io.Reader, width, height int) (*image.RGBA, error) {
	row := make([]byte, width*3)
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, err
		}
		off := y * img.Stride
		for x := 0; x < width; x++ {
			img.Pix[off+x*4+0] = row[x*3+0]
			img.Pix[off+x*4+1] = row[x*3+1]
			img.Pix[off+x*4+2] = row[x*3+2]
			img.Pix[off+x*4+3] = 0xff
		}
	}
	return img, nil
}
