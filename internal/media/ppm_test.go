package media

import (
	"bufio"
	"bytes"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPPM(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("P6\n# comment\n2 1\n255\n")
	buf.Write([]byte{255, 0, 0, 0, 0, 255})
	buf.WriteString("P6 1 1 255\n")
	buf.Write([]byte{1, 2, 3})

	r := bufio.NewReader(&buf)

	w, h, err := readPPMHeader(r)
	require.NoError(t, err)
	assert.Equal(t, 2, w)
	assert.Equal(t, 1, h)

	img, err := readPPMPixels(r, w, h)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.At(0, 0))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.At(1, 0))

	w, h, err = readPPMHeader(r)
	require.NoError(t, err)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)

	img, err = readPPMPixels(r, w, h)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, img.At(0, 0))
}

func TestReadPPMHeader_Rejects(t *testing.T) {
	for _, raw := range []string{"P5\n1 1\n255\n", "P6\n0 1\n255\n", "P6\n1 1\n65535\n", "P6\nx 1\n255\n"} {
		_, _, err := readPPMHeader(bufio.NewReader(bytes.NewBufferString(raw)))
		assert.Error(t, err, raw)
	}
}
