package trace

import (
	"testing"

	"github.com/facerhythm/facerhythm/internal/config"
)

func cleanCfg() config.CleanConfig {
	return config.CleanConfig{
		ViolationDistance: 10,
		FreezeWindow:      0,
		InterpolateGaps:   5,
		RemoveOffset:      false,
	}
}

// steadyTrace builds one point resting at (50, 50).
func steadyTrace(frames int) *Trace {
	tr := New(frames, 1)
	for f := 0; f < frames; f++ {
		tr.Set(f, 0, 50, 50)
	}
	return tr
}

func TestCleanNoViolations(t *testing.T) {
	tr := steadyTrace(10)
	out, stats, err := Clean(tr, cleanCfg())
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if stats.Violations != 0 || stats.PointsAffected != 0 {
		t.Errorf("clean trace reported violations: %+v", stats)
	}
	if y, x := out.At(5, 0); y != 50 || x != 50 {
		t.Error("clean pass altered a good trace")
	}
}

func TestCleanInterpolatesShortGap(t *testing.T) {
	tr := steadyTrace(10)
	// Two-frame jump far outside the violation distance.
	tr.Set(4, 0, 200, 200)
	tr.Set(5, 0, 200, 200)

	out, stats, err := Clean(tr, cleanCfg())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Violations != 2 {
		t.Errorf("expected 2 violations, got %d", stats.Violations)
	}
	if stats.Interpolated != 2 {
		t.Errorf("expected 2 interpolated frames, got %d", stats.Interpolated)
	}
	// Neighbors on both sides are (50,50); interpolation lands there too.
	if y, x := out.At(4, 0); y != 50 || x != 50 {
		t.Errorf("gap not repaired: (%v,%v)", y, x)
	}
}

func TestCleanHoldsLongGap(t *testing.T) {
	cfg := cleanCfg()
	cfg.InterpolateGaps = 2

	tr := steadyTrace(12)
	for f := 4; f <= 9; f++ {
		tr.Set(f, 0, 300, 300)
	}

	out, stats, err := Clean(tr, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Held != 6 {
		t.Errorf("expected 6 held frames, got %d", stats.Held)
	}
	for f := 4; f <= 9; f++ {
		if y, x := out.At(f, 0); y != 50 || x != 50 {
			t.Errorf("frame %d not held at last good position: (%v,%v)", f, y, x)
		}
	}
}

func TestCleanFreezeWindowWidens(t *testing.T) {
	cfg := cleanCfg()
	cfg.FreezeWindow = 2
	cfg.InterpolateGaps = 20

	tr := steadyTrace(20)
	tr.Set(10, 0, 500, 500)
	// Frames 8..12 get repaired once the window widens the mark.
	tr.Set(9, 0, 55, 55) // within violation distance, but inside the window

	out, stats, err := Clean(tr, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Violations != 1 {
		t.Errorf("expected 1 raw violation, got %d", stats.Violations)
	}
	if y, _ := out.At(9, 0); y == 55 {
		t.Error("freeze window should have repaired the neighboring frame")
	}
}

func TestCleanRemoveOffset(t *testing.T) {
	cfg := cleanCfg()
	cfg.RemoveOffset = true

	tr := New(3, 1)
	tr.Set(0, 0, 40, 60)
	tr.Set(1, 0, 42, 61)
	tr.Set(2, 0, 41, 59)

	out, _, err := Clean(tr, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if y, x := out.At(0, 0); y != 0 || x != 0 {
		t.Error("anchor frame should be zero after offset removal")
	}
	if y, x := out.At(1, 0); y != 2 || x != 1 {
		t.Errorf("offset wrong: (%v,%v)", y, x)
	}
}

func TestCleanRejectsBadConfig(t *testing.T) {
	tr := steadyTrace(4)
	if _, _, err := Clean(tr, config.CleanConfig{ViolationDistance: 0}); err == nil {
		t.Error("expected error for zero violation distance")
	}
	if _, _, err := Clean(tr, config.CleanConfig{ViolationDistance: 5, FreezeWindow: -1}); err == nil {
		t.Error("expected error for negative freeze window")
	}
}
