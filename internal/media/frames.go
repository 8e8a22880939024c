package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"
)

// FrameStream yields decoded frames in presentation order.
type FrameStream interface {
	// Next advances to the next frame and returns io.EOF after the last one.
	Next() error
	// Image returns the current frame as RGB pixels.
	Image() (image.Image, error)
	Close() error
}

// FrameDecoder opens a video file for frame-by-frame decoding.
type FrameDecoder interface {
	Open(ctx context.Context, path string) (FrameStream, error)
}

// FFmpegDecoder decodes through an ffmpeg subprocess that writes every frame
// as a binary PPM image to stdout.
type FFmpegDecoder struct {
	binary string
}

func NewFFmpegDecoder(binary string) (*FFmpegDecoder, error) {
	if binary == "" {
		binary = "ffmpeg"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, wrapError(KindDependencyMissing, err, "ffmpeg is not installed")
	}
	return &FFmpegDecoder{binary: path}, nil
}

func (d *FFmpegDecoder) Open(ctx context.Context, path string) (FrameStream, error) {
	ctx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(ctx, d.binary,
		"-nostdin",
		"-v", "error",
		"-i", path,
		"-f", "image2pipe",
		"-vcodec", "ppm",
		"-pix_fmt", "rgb24",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open ffmpeg output: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, wrapError(KindDependencyMissing, err, "failed to start ffmpeg")
	}

	return &ffmpegStream{
		cmd:    cmd,
		cancel: cancel,
		out:    bufio.NewReaderSize(stdout, 1<<20),
		stderr: stderr,
	}, nil
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	out    *bufio.Reader
	stderr *bytes.Buffer

	width, height int
	pending       int64 // unread payload bytes of the current frame
	done          bool
	waitErr       error
}

func (s *ffmpegStream) Next() error {
	if s.done {
		return io.EOF
	}

	if s.pending > 0 {
		if _, err := s.out.Discard(int(s.pending)); err != nil {
			return s.finish(err)
		}
		s.pending = 0
	}

	w, h, err := readPPMHeader(s.out)
	if err != nil {
		return s.finish(err)
	}
	s.width, s.height = w, h
	s.pending = int64(w) * int64(h) * 3
	return nil
}

func (s *ffmpegStream) Image() (image.Image, error) {
	if s.pending == 0 {
		return nil, errors.New("frame payload already consumed")
	}
	img, err := readPPMPixels(s.out, s.width, s.height)
	s.pending = 0
	if err != nil {
		return nil, s.finish(err)
	}
	return img, nil
}

// finish converts a read failure into io.EOF on a clean ffmpeg exit, or into
// the decoder's error output otherwise.
func (s *ffmpegStream) finish(readErr error) error {
	if s.done {
		return io.EOF
	}
	s.done = true
	s.waitErr = s.cmd.Wait()

	if s.waitErr != nil {
		msg := strings.TrimSpace(s.stderr.String())
		if msg == "" {
			msg = s.waitErr.Error()
		}
		return fmt.Errorf("ffmpeg failed: %s", msg)
	}
	if readErr == io.EOF || errors.Is(readErr, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return readErr
}

func (s *ffmpegStream) Close() error {
	s.cancel()
	if !s.done {
		s.done = true
		// Killed on purpose; the exit status carries no information.
		s.cmd.Wait()
	}
	return nil
}
