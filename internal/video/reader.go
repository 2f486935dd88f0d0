package video

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Frame is one grayscale video frame. Pix is row-major with stride Width.
type Frame struct {
	Index  int
	Width  int
	Height int
	Pix    []uint8
}

// Reader streams grayscale frames from a video file by piping
// `ffmpeg -f rawvideo -pix_fmt gray` output.
type Reader struct {
	cmd    *exec.Cmd
	stdout io.Reader
	width  int
	height int
	index  int
	closed bool
}

// Open starts ffmpeg decoding the file at path. Width and height must come
// from Probe so the raw plane size is known.
func Open(ctx context.Context, path string, width, height int) (*Reader, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		if execErr, ok := err.(*exec.Error); ok && execErr.Err == exec.ErrNotFound {
			return nil, fmt.Errorf("ffmpeg not found on PATH (install ffmpeg): %w", err)
		}
		return nil, fmt.Errorf("start ffmpeg for %s: %w", path, err)
	}
	return &Reader{
		cmd:    cmd,
		stdout: bufio.NewReaderSize(stdout, 1<<20),
		width:  width,
		height: height,
	}, nil
}

// Next returns the next frame, or io.EOF once the stream ends. The
// returned pixel buffer is owned by the caller.
func (r *Reader) Next() (*Frame, error) {
	pix := make([]uint8, r.width*r.height)
	if _, err := io.ReadFull(r.stdout, pix); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame %d: %w", r.index, err)
	}
	f := &Frame{Index: r.index, Width: r.width, Height: r.height, Pix: pix}
	r.index++
	return f, nil
}

// Close tears down the ffmpeg process. Safe to call after EOF.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	err := r.cmd.Wait()
	if err != nil && err.Error() == "signal: killed" {
		return nil
	}
	return err
}

// FrameSource abstracts frame iteration so the tracker can run against
// synthetic frames in tests.
type FrameSource interface {
	Next() (*Frame, error)
	Close() error
}
