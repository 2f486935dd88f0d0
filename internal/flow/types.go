// Package flow implements pyramidal Lucas-Kanade optic-flow point tracking
// over grayscale frame streams.
package flow

// Vec2 is a sub-pixel position, (y, x) order.
type Vec2 struct {
	Y float64
	X float64
}

// Status describes how a point fared on one frame step.
type Status uint8

const (
	// Tracked means the solver converged to a displacement.
	Tracked Status = iota
	// Lost means the local gradient matrix was too degenerate to solve
	// (flat or aperture-limited texture).
	Lost
	// OutOfBounds means the solution left the frame.
	OutOfBounds
	// Violation means the step exceeded the violation distance and the
	// point was frozen at its last good position.
	Violation
)

func (s Status) String() string {
	switch s {
	case Tracked:
		return "tracked"
	case Lost:
		return "lost"
	case OutOfBounds:
		return "out_of_bounds"
	case Violation:
		return "violation"
	}
	return "unknown"
}

// Params controls the Lucas-Kanade solver.
type Params struct {
	WindowSize    int     // odd window edge length in pixels
	PyramidLevels int     // number of pyramid levels, >= 1
	MaxIterations int     // iteration cap per level
	Epsilon       float64 // convergence threshold on the update norm
}

// FrameStep is the tracking outcome for one frame, delivered to metrics
// and observers.
type FrameStep struct {
	Index            int
	Positions        []Vec2
	Status           []Status
	MeanDisplacement float64
	Lost             int
}

// Metric accumulates a scalar over the whole tracking run.
type Metric interface {
	Name() string
	Observe(step FrameStep)
	Value() float64
	Reset()
}

// Observer receives every frame step; the live TUI hangs off this.
type Observer interface {
	OnFrame(step FrameStep)
}
