package flow

// Backend runs the per-frame point tracking sweep. The CPU backend is
// always available; a CUDA backend exists behind the `cuda` build tag.
type Backend interface {
	Name() string
	Available() bool
	// TrackPoints solves every point from prev to next, writing results
	// into out and status (both len(pts)).
	TrackPoints(prev, next *Pyramid, pts []Vec2, prm Params, out []Vec2, status []Status)
	Cleanup()
}

var activeBackend Backend

func init() {
	activeBackend = AutoSelectBackend(0)
}

func SetBackend(b Backend) {
	if activeBackend != nil {
		activeBackend.Cleanup()
	}
	activeBackend = b
}

func GetBackend() Backend {
	return activeBackend
}

// AutoSelectBackend prefers CUDA when compiled in and available, falling
// back to the parallel CPU backend. workers <= 0 means one per CPU.
func AutoSelectBackend(workers int) Backend {
	cuda := NewCUDABackend()
	if cuda.Available() {
		return cuda
	}
	return NewCPUBackend(workers)
}

// SelectBackend resolves a backend by config name ("auto", "cpu" or
// "cuda") and registers it as the process-wide backend, so other surfaces
// like the live view report the one actually in use.
func SelectBackend(name string, workers int) Backend {
	var b Backend
	switch name {
	case "cpu":
		b = NewCPUBackend(workers)
	case "cuda":
		b = NewCUDABackend()
	default:
		b = AutoSelectBackend(workers)
	}
	SetBackend(b)
	return b
}
