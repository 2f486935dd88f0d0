package flow

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/facerhythm/facerhythm/internal/rois"
	"github.com/facerhythm/facerhythm/internal/trace"
	"github.com/facerhythm/facerhythm/internal/video"
)

// Tracker walks a frame stream and produces the trajectory tensor.
type Tracker struct {
	backend   Backend
	params    Params
	violation float64
	metrics   []Metric
	observers []Observer
}

func NewTracker(backend Backend, prm Params, violationDistance float64) *Tracker {
	return &Tracker{
		backend:   backend,
		params:    prm,
		violation: violationDistance,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (tk *Tracker) AddMetric(m Metric)     { tk.metrics = append(tk.metrics, m) }
func (tk *Tracker) AddObserver(o Observer) { tk.observers = append(tk.observers, o) }

func (tk *Tracker) validate() error {
	if tk.params.WindowSize < 3 || tk.params.WindowSize%2 == 0 {
		return fmt.Errorf("window size must be odd and >= 3, got %d", tk.params.WindowSize)
	}
	if tk.params.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be >= 1, got %d", tk.params.MaxIterations)
	}
	if tk.params.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %f", tk.params.Epsilon)
	}
	if tk.violation <= 0 {
		return fmt.Errorf("violation distance must be positive, got %f", tk.violation)
	}
	return nil
}

// Run tracks the seed points through every frame of src. On context
// cancellation the partial trace is returned together with the context
// error, so long sessions can be resumed or inspected.
func (tk *Tracker) Run(ctx context.Context, src video.FrameSource, seeds []rois.Point) (*trace.Trace, map[string]float64, error) {
	if err := tk.validate(); err != nil {
		return nil, nil, err
	}
	if len(seeds) == 0 {
		return nil, nil, fmt.Errorf("no seed points")
	}

	for _, m := range tk.metrics {
		m.Reset()
	}

	first, err := src.Next()
	if err != nil {
		return nil, nil, fmt.Errorf("read first frame: %w", err)
	}

	n := len(seeds)
	positions := make([]Vec2, n)
	for i, s := range seeds {
		positions[i] = Vec2{Y: s.Y, X: s.X}
	}

	pool := NewImagePool(first.Width, first.Height)
	frames := [][]Vec2{clonePositions(positions)}
	prevPyr := NewPyramid(fromFramePooled(pool, first), tk.params.PyramidLevels, tk.params.WindowSize)

	next := make([]Vec2, n)
	status := make([]Status, n)

	var runErr error
	idx := 1
	for {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		frame, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			runErr = err
			break
		}

		nextPyr := NewPyramid(fromFramePooled(pool, frame), tk.params.PyramidLevels, tk.params.WindowSize)
		tk.backend.TrackPoints(prevPyr, nextPyr, positions, tk.params, next, status)

		step := FrameStep{Index: idx, Positions: make([]Vec2, n), Status: make([]Status, n)}
		var sumDisp float64
		for i := range positions {
			switch status[i] {
			case Tracked:
				d := math.Hypot(next[i].Y-positions[i].Y, next[i].X-positions[i].X)
				if d > tk.violation {
					// Freeze at the last good position; the clean stage
					// decides what to do with the gap.
					status[i] = Violation
				} else {
					positions[i] = next[i]
					sumDisp += d
				}
			case Lost, OutOfBounds:
				step.Lost++
			}
			step.Positions[i] = positions[i]
			step.Status[i] = status[i]
		}
		step.MeanDisplacement = sumDisp / float64(n)

		for _, m := range tk.metrics {
			m.Observe(step)
		}
		for _, o := range tk.observers {
			o.OnFrame(step)
		}

		frames = append(frames, clonePositions(positions))
		pool.Put(prevPyr.Levels[0])
		prevPyr = nextPyr
		idx++
	}

	tr := trace.New(len(frames), n)
	for f, ps := range frames {
		for p, v := range ps {
			tr.Set(f, p, v.Y, v.X)
		}
	}

	values := make(map[string]float64, len(tk.metrics))
	for _, m := range tk.metrics {
		values[m.Name()] = m.Value()
	}

	return tr, values, runErr
}

func clonePositions(ps []Vec2) []Vec2 {
	out := make([]Vec2, len(ps))
	copy(out, ps)
	return out
}

// fromFramePooled converts a frame using a recycled plane when the
// geometry matches.
func fromFramePooled(pool *ImagePool, f *video.Frame) *Image {
	im := pool.Get()
	if im.W != f.Width || im.H != f.Height {
		return FromFrame(f)
	}
	for i, v := range f.Pix {
		im.Pix[i] = float32(v)
	}
	return im
}
