package flow

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/facerhythm/facerhythm/internal/rois"
	"github.com/facerhythm/facerhythm/internal/video"
)

type sliceSource struct {
	frames []*video.Frame
	i      int
}

func (s *sliceSource) Next() (*video.Frame, error) {
	if s.i >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.i]
	s.i++
	return f, nil
}

func (s *sliceSource) Close() error { return nil }

// driftSource renders a blob drifting (dy, dx) per frame.
func driftSource(n int, dy, dx float64) *sliceSource {
	frames := make([]*video.Frame, n)
	for i := 0; i < n; i++ {
		frames[i] = blobFrame(64, 64, 30+float64(i)*dy, 30+float64(i)*dx, 4)
	}
	return &sliceSource{frames: frames}
}

func TestTrackerFollowsMotion(t *testing.T) {
	tk := NewTracker(NewCPUBackend(1), testParams(), 20)
	for _, m := range DefaultMetrics() {
		tk.AddMetric(m)
	}

	tr, metrics, err := tk.Run(context.Background(), driftSource(8, 0.5, 1.0), []rois.Point{{Y: 30, X: 30}})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if tr.Frames != 8 || tr.Points != 1 {
		t.Fatalf("trace shape %dx%d, want 8x1", tr.Frames, tr.Points)
	}

	y, x := tr.At(7, 0)
	if math.Abs(y-33.5) > 1.0 || math.Abs(x-37) > 1.0 {
		t.Errorf("final position (%.2f, %.2f), want ~(33.5, 37)", y, x)
	}

	if metrics["mean_displacement"] < 0.5 {
		t.Errorf("mean displacement %v too small for a drifting blob", metrics["mean_displacement"])
	}
	if metrics["lost_fraction"] != 0 {
		t.Errorf("unexpected lost points: %v", metrics["lost_fraction"])
	}
}

// jumpBackend fabricates a huge displacement to exercise violation
// freezing without needing a video that actually teleports.
type jumpBackend struct{}

func (jumpBackend) Name() string    { return "jump" }
func (jumpBackend) Available() bool { return true }
func (jumpBackend) Cleanup()        {}

func (jumpBackend) TrackPoints(prev, next *Pyramid, pts []Vec2, prm Params, out []Vec2, status []Status) {
	for i, p := range pts {
		out[i] = Vec2{Y: p.Y + 50, X: p.X}
		status[i] = Tracked
	}
}

func TestTrackerFreezesViolations(t *testing.T) {
	tk := NewTracker(jumpBackend{}, testParams(), 10)
	vc := NewViolationCount()
	tk.AddMetric(vc)

	tr, _, err := tk.Run(context.Background(), driftSource(4, 0, 0), []rois.Point{{Y: 30, X: 30}})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// Every step exceeds the violation distance, so the point never moves.
	for f := 0; f < tr.Frames; f++ {
		if y, x := tr.At(f, 0); y != 30 || x != 30 {
			t.Errorf("frame %d: point moved to (%v, %v) despite violations", f, y, x)
		}
	}
	if vc.Value() != 3 {
		t.Errorf("expected 3 violation observations, got %v", vc.Value())
	}
}

// stuckBackend marks every point lost, exercising the per-status counters.
type stuckBackend struct{}

func (stuckBackend) Name() string    { return "stuck" }
func (stuckBackend) Available() bool { return true }
func (stuckBackend) Cleanup()        {}

func (stuckBackend) TrackPoints(prev, next *Pyramid, pts []Vec2, prm Params, out []Vec2, status []Status) {
	for i, p := range pts {
		out[i] = p
		status[i] = Lost
	}
}

func TestStatusCountMetric(t *testing.T) {
	sc := NewStatusCount(Lost)
	if sc.Name() != "frames_lost" {
		t.Fatalf("metric name %q, want frames_lost", sc.Name())
	}

	tk := NewTracker(stuckBackend{}, testParams(), 10)
	tk.AddMetric(sc)
	tk.AddMetric(NewStatusCount(OutOfBounds))

	_, metrics, err := tk.Run(context.Background(), driftSource(4, 0, 0), []rois.Point{{Y: 30, X: 30}, {Y: 20, X: 20}})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	// 2 points lost on each of the 3 steps.
	if metrics["frames_lost"] != 6 {
		t.Errorf("frames_lost = %v, want 6", metrics["frames_lost"])
	}
	if metrics["frames_out_of_bounds"] != 0 {
		t.Errorf("frames_out_of_bounds = %v, want 0", metrics["frames_out_of_bounds"])
	}
}

type frameCounter struct {
	frames int
}

func (o *frameCounter) OnFrame(step FrameStep) { o.frames++ }

func TestTrackerObservers(t *testing.T) {
	tk := NewTracker(NewCPUBackend(1), testParams(), 20)
	obs := &frameCounter{}
	tk.AddObserver(obs)

	_, _, err := tk.Run(context.Background(), driftSource(5, 0, 0.5), []rois.Point{{Y: 30, X: 30}})
	if err != nil {
		t.Fatal(err)
	}
	if obs.frames != 4 {
		t.Errorf("observer saw %d steps, want 4", obs.frames)
	}
}

func TestTrackerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tk := NewTracker(NewCPUBackend(1), testParams(), 20)
	tr, _, err := tk.Run(ctx, driftSource(10, 0, 0.5), []rois.Point{{Y: 30, X: 30}})
	if err == nil {
		t.Fatal("expected context error")
	}
	if tr == nil {
		t.Fatal("cancellation should still return the partial trace")
	}
	if tr.Frames != 1 {
		t.Errorf("expected only the seed frame, got %d", tr.Frames)
	}
}

func TestTrackerValidation(t *testing.T) {
	tests := []struct {
		name string
		prm  Params
		dist float64
	}{
		{"even window", Params{WindowSize: 8, PyramidLevels: 1, MaxIterations: 5, Epsilon: 0.1}, 10},
		{"zero iterations", Params{WindowSize: 9, PyramidLevels: 1, MaxIterations: 0, Epsilon: 0.1}, 10},
		{"zero epsilon", Params{WindowSize: 9, PyramidLevels: 1, MaxIterations: 5, Epsilon: 0}, 10},
		{"zero violation", Params{WindowSize: 9, PyramidLevels: 1, MaxIterations: 5, Epsilon: 0.1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := NewTracker(NewCPUBackend(1), tt.prm, tt.dist)
			_, _, err := tk.Run(context.Background(), driftSource(2, 0, 0), []rois.Point{{Y: 30, X: 30}})
			if err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
