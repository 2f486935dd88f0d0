package pipeline

import (
	"context"
	"io"

	"github.com/facerhythm/facerhythm/internal/video"
)

// multiSource chains the videos of one session into a single frame stream
// with a continuous frame index.
type multiSource struct {
	ctx      context.Context
	paths    []string
	w, h     int
	cur      video.FrameSource
	idx      int
	frameIdx int
}

func newMultiSource(ctx context.Context, paths []string, w, h int) *multiSource {
	return &multiSource{ctx: ctx, paths: paths, w: w, h: h}
}

func (s *multiSource) Next() (*video.Frame, error) {
	for {
		if s.cur == nil {
			if s.idx >= len(s.paths) {
				return nil, io.EOF
			}
			r, err := video.Open(s.ctx, s.paths[s.idx], s.w, s.h)
			if err != nil {
				return nil, err
			}
			s.cur = r
			s.idx++
		}

		f, err := s.cur.Next()
		if err == io.EOF {
			_ = s.cur.Close()
			s.cur = nil
			continue
		}
		if err != nil {
			return nil, err
		}
		f.Index = s.frameIdx
		s.frameIdx++
		return f, nil
	}
}

func (s *multiSource) Close() error {
	if s.cur != nil {
		err := s.cur.Close()
		s.cur = nil
		return err
	}
	return nil
}
