package flow

import (
	"math"
	"testing"

	"github.com/facerhythm/facerhythm/internal/video"
)

// blobFrame renders a gaussian intensity blob centered at (cy, cx).
func blobFrame(w, h int, cy, cx, sigma float64) *video.Frame {
	pix := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dy := float64(y) - cy
			dx := float64(x) - cx
			v := 255 * math.Exp(-(dy*dy+dx*dx)/(2*sigma*sigma))
			pix[y*w+x] = uint8(v)
		}
	}
	return &video.Frame{Width: w, Height: h, Pix: pix}
}

func testParams() Params {
	return Params{WindowSize: 15, PyramidLevels: 2, MaxIterations: 30, Epsilon: 0.01}
}

func TestTrackPointTranslation(t *testing.T) {
	prm := testParams()
	prev := NewPyramid(FromFrame(blobFrame(64, 64, 32, 32, 4)), prm.PyramidLevels, prm.WindowSize)
	next := NewPyramid(FromFrame(blobFrame(64, 64, 33.5, 30, 4)), prm.PyramidLevels, prm.WindowSize)

	got, status := trackPoint(prev, next, Vec2{Y: 32, X: 32}, prm)
	if status != Tracked {
		t.Fatalf("expected Tracked, got %v", status)
	}
	if math.Abs(got.Y-33.5) > 0.5 || math.Abs(got.X-30) > 0.5 {
		t.Errorf("tracked to (%.2f, %.2f), want (33.50, 30.00)", got.Y, got.X)
	}
}

func TestTrackPointZeroMotion(t *testing.T) {
	prm := testParams()
	pyr := NewPyramid(FromFrame(blobFrame(64, 64, 32, 32, 4)), prm.PyramidLevels, prm.WindowSize)

	got, status := trackPoint(pyr, pyr, Vec2{Y: 32, X: 32}, prm)
	if status != Tracked {
		t.Fatalf("expected Tracked, got %v", status)
	}
	if math.Abs(got.Y-32) > 0.1 || math.Abs(got.X-32) > 0.1 {
		t.Errorf("zero motion drifted to (%.3f, %.3f)", got.Y, got.X)
	}
}

func TestTrackPointFlatRegionLost(t *testing.T) {
	prm := testParams()
	flat := &video.Frame{Width: 64, Height: 64, Pix: make([]uint8, 64*64)}
	pyr := NewPyramid(FromFrame(flat), prm.PyramidLevels, prm.WindowSize)

	got, status := trackPoint(pyr, pyr, Vec2{Y: 32, X: 32}, prm)
	if status != Lost {
		t.Fatalf("expected Lost on textureless region, got %v", status)
	}
	if got.Y != 32 || got.X != 32 {
		t.Error("lost point should keep its original position")
	}
}

func TestCPUBackendMatchesSerial(t *testing.T) {
	prm := testParams()
	prev := NewPyramid(FromFrame(blobFrame(96, 96, 40, 40, 5)), prm.PyramidLevels, prm.WindowSize)
	next := NewPyramid(FromFrame(blobFrame(96, 96, 41, 42, 5)), prm.PyramidLevels, prm.WindowSize)

	// Enough points to push the backend onto the parallel path.
	var pts []Vec2
	for dy := -6; dy <= 6; dy += 2 {
		for dx := -6; dx <= 6; dx += 2 {
			pts = append(pts, Vec2{Y: 40 + float64(dy), X: 40 + float64(dx)})
		}
	}

	serial := NewCPUBackend(1)
	parallel := NewCPUBackend(4)

	out1 := make([]Vec2, len(pts))
	st1 := make([]Status, len(pts))
	out2 := make([]Vec2, len(pts))
	st2 := make([]Status, len(pts))

	serial.TrackPoints(prev, next, pts, prm, out1, st1)
	parallel.TrackPoints(prev, next, pts, prm, out2, st2)

	for i := range pts {
		if st1[i] != st2[i] {
			t.Fatalf("point %d status differs: %v vs %v", i, st1[i], st2[i])
		}
		if out1[i] != out2[i] {
			t.Fatalf("point %d position differs: %+v vs %+v", i, out1[i], out2[i])
		}
	}
}

func TestSelectBackend(t *testing.T) {
	if b := SelectBackend("cpu", 2); b.Name() != "cpu" {
		t.Errorf("expected cpu backend, got %s", b.Name())
	}
	// Without the cuda build tag the auto path lands on cpu.
	if b := SelectBackend("auto", 0); !b.Available() {
		t.Error("auto-selected backend must be available")
	}
}
