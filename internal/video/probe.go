// Package video ingests session videos. Metadata comes from ffprobe and
// frames are streamed from ffmpeg as raw grayscale planes, so no video
// codecs are linked into the binary.
package video

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Info is the subset of stream metadata the pipeline needs.
type Info struct {
	Width    int
	Height   int
	FPS      float64
	Frames   int
	Duration float64
}

type ffprobeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// Probe inspects the first video stream of the file at path.
func Probe(ctx context.Context, path string) (*Info, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames,duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		if execErr, ok := err.(*exec.Error); ok && execErr.Err == exec.ErrNotFound {
			return nil, fmt.Errorf("ffprobe not found on PATH (install ffmpeg): %w", err)
		}
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output for %s: %w", path, err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no video stream in %s", path)
	}

	s := probe.Streams[0]
	info := &Info{Width: s.Width, Height: s.Height}
	info.FPS = parseRate(s.RFrameRate)
	if n, err := strconv.Atoi(s.NbFrames); err == nil {
		info.Frames = n
	}
	if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
		info.Duration = d
	}
	// Some containers omit nb_frames; estimate from duration.
	if info.Frames == 0 && info.Duration > 0 && info.FPS > 0 {
		info.Frames = int(info.Duration * info.FPS)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d in %s", info.Width, info.Height, path)
	}
	return info, nil
}

// parseRate converts ffprobe's fractional rate string ("30000/1001") to Hz.
func parseRate(s string) float64 {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 1 {
		v, _ := strconv.ParseFloat(parts[0], 64)
		return v
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
