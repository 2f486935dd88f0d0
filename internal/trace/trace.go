// Package trace holds the point-trajectory tensor produced by tracking and
// the cleaning pass that runs before decomposition.
package trace

import (
	"fmt"
	"math"
)

// Trace is a dense [frames][points][2] tensor of point positions. The last
// axis is (y, x). Backed by one flat slice so stages can stream it to disk
// without reshaping.
type Trace struct {
	Frames int
	Points int
	data   []float64
}

func New(frames, points int) *Trace {
	return &Trace{
		Frames: frames,
		Points: points,
		data:   make([]float64, frames*points*2),
	}
}

// FromData wraps an existing flat buffer. len(data) must be frames*points*2.
func FromData(frames, points int, data []float64) (*Trace, error) {
	if len(data) != frames*points*2 {
		return nil, fmt.Errorf("trace buffer length %d does not match %d frames x %d points x 2",
			len(data), frames, points)
	}
	return &Trace{Frames: frames, Points: points, data: data}, nil
}

func (t *Trace) idx(frame, point int) int { return (frame*t.Points + point) * 2 }

// At returns the (y, x) position of a point at a frame.
func (t *Trace) At(frame, point int) (float64, float64) {
	i := t.idx(frame, point)
	return t.data[i], t.data[i+1]
}

func (t *Trace) Set(frame, point int, y, x float64) {
	i := t.idx(frame, point)
	t.data[i] = y
	t.data[i+1] = x
}

// Data exposes the flat backing buffer, layout [frame][point][y,x].
func (t *Trace) Data() []float64 { return t.data }

func (t *Trace) Clone() *Trace {
	c := New(t.Frames, t.Points)
	copy(c.data, t.data)
	return c
}

// Series extracts one point's trajectory along one axis (0 = y, 1 = x).
func (t *Trace) Series(point, axis int) []float64 {
	out := make([]float64, t.Frames)
	for f := 0; f < t.Frames; f++ {
		out[f] = t.data[t.idx(f, point)+axis]
	}
	return out
}

// Displacement returns per-frame step distances for one point. Index 0 is
// the step from frame 0 to frame 1, so the slice has Frames-1 entries.
func (t *Trace) Displacement(point int) []float64 {
	if t.Frames < 2 {
		return nil
	}
	out := make([]float64, t.Frames-1)
	py, px := t.At(0, point)
	for f := 1; f < t.Frames; f++ {
		y, x := t.At(f, point)
		out[f-1] = math.Hypot(y-py, x-px)
		py, px = y, x
	}
	return out
}

// IsValid reports whether the tensor is free of NaN and Inf.
func (t *Trace) IsValid() bool {
	for _, v := range t.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Offsets subtracts each point's first-frame position, turning absolute
// positions into displacements from rest.
func (t *Trace) Offsets() *Trace {
	out := New(t.Frames, t.Points)
	for p := 0; p < t.Points; p++ {
		ay, ax := t.At(0, p)
		for f := 0; f < t.Frames; f++ {
			y, x := t.At(f, p)
			out.Set(f, p, y-ay, x-ax)
		}
	}
	return out
}
