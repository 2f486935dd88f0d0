//go:build !cuda

package flow

// CUDABackend without the cuda build tag reports unavailable and falls
// back to the CPU path if called anyway.
type CUDABackend struct{}

func NewCUDABackend() *CUDABackend {
	return &CUDABackend{}
}

func (c *CUDABackend) Name() string    { return "cuda (not available)" }
func (c *CUDABackend) Available() bool { return false }
func (c *CUDABackend) Cleanup()        {}

func (c *CUDABackend) TrackPoints(prev, next *Pyramid, pts []Vec2, prm Params, out []Vec2, status []Status) {
	cpu := NewCPUBackend(0)
	cpu.TrackPoints(prev, next, pts, prm, out, status)
}
