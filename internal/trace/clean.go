package trace

import (
	"fmt"
	"math"

	"github.com/facerhythm/facerhythm/internal/config"
)

// Stats summarizes what the cleaning pass changed.
type Stats struct {
	Violations     int `json:"violations"`
	PointsAffected int `json:"points_affected"`
	Interpolated   int `json:"interpolated"`
	Held           int `json:"held"`
}

// Clean applies the outlier pass: frames where a point strays farther than
// the violation distance from its anchor (first-frame position) are marked
// bad, the mark is widened by the freeze window, and gaps up to
// interpolate_gaps frames are bridged linearly. Longer gaps hold the last
// good position. Shape is preserved; only values change.
func Clean(t *Trace, cfg config.CleanConfig) (*Trace, *Stats, error) {
	if cfg.ViolationDistance <= 0 {
		return nil, nil, fmt.Errorf("violation_distance must be positive, got %f", cfg.ViolationDistance)
	}
	if cfg.FreezeWindow < 0 || cfg.InterpolateGaps < 0 {
		return nil, nil, fmt.Errorf("freeze_window and interpolate_gaps must be >= 0")
	}

	out := t.Clone()
	stats := &Stats{}

	bad := make([]bool, t.Frames)
	for p := 0; p < t.Points; p++ {
		ay, ax := t.At(0, p)

		pointHit := false
		for f := range bad {
			bad[f] = false
		}
		for f := 1; f < t.Frames; f++ {
			y, x := t.At(f, p)
			if math.Hypot(y-ay, x-ax) > cfg.ViolationDistance {
				bad[f] = true
				stats.Violations++
				pointHit = true
			}
		}
		if pointHit {
			stats.PointsAffected++
			widen(bad, cfg.FreezeWindow)
			repairPoint(out, p, bad, cfg.InterpolateGaps, stats)
		}

		if cfg.RemoveOffset {
			for f := 0; f < t.Frames; f++ {
				y, x := out.At(f, p)
				out.Set(f, p, y-ay, x-ax)
			}
		}
	}

	if !out.IsValid() {
		return nil, nil, fmt.Errorf("cleaning produced NaN/Inf values")
	}
	return out, stats, nil
}

// widen grows every bad run by w frames on each side. Frame 0 is the
// anchor and always stays good.
func widen(bad []bool, w int) {
	if w == 0 {
		return
	}
	grown := make([]bool, len(bad))
	copy(grown, bad)
	for f, b := range bad {
		if !b {
			continue
		}
		lo, hi := f-w, f+w
		if lo < 1 {
			lo = 1
		}
		if hi >= len(bad) {
			hi = len(bad) - 1
		}
		for i := lo; i <= hi; i++ {
			grown[i] = true
		}
	}
	copy(bad, grown)
}

// repairPoint rewrites the bad spans of one point, interpolating short gaps
// and holding the last good position through long ones.
func repairPoint(t *Trace, p int, bad []bool, maxGap int, stats *Stats) {
	f := 1
	for f < t.Frames {
		if !bad[f] {
			f++
			continue
		}
		start := f
		for f < t.Frames && bad[f] {
			f++
		}
		end := f // [start, end) is bad

		sy, sx := t.At(start-1, p)
		gap := end - start

		if end < t.Frames && gap <= maxGap {
			ey, ex := t.At(end, p)
			for i := start; i < end; i++ {
				u := float64(i-start+1) / float64(gap+1)
				t.Set(i, p, sy+u*(ey-sy), sx+u*(ex-sx))
			}
			stats.Interpolated += gap
		} else {
			for i := start; i < end; i++ {
				t.Set(i, p, sy, sx)
			}
			stats.Held += gap
		}
	}
}
