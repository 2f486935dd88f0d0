//go:build cuda

package flow

/*
#cgo CFLAGS: -I/opt/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L${SRCDIR} -lcudart -lkernels -lstdc++
#include <stdlib.h>

extern int cuda_device_count();
extern const char* cuda_device_name_get();
extern void lk_track_gpu(const float* prev, const float* next,
	int width, int height, int levels,
	const float* pts, float* out, unsigned char* status, int n,
	int window, int max_iter, float epsilon);
*/
import "C"
import "unsafe"

// CUDABackend offloads the per-point solver to the GPU kernels in
// kernels.cu. Pyramid levels are flattened into one contiguous buffer.
type CUDABackend struct {
	available  bool
	deviceName string
}

func NewCUDABackend() *CUDABackend {
	count := int(C.cuda_device_count())
	name := ""
	if count > 0 {
		name = C.GoString(C.cuda_device_name_get())
	}
	return &CUDABackend{available: count > 0, deviceName: name}
}

func (c *CUDABackend) Name() string {
	if c.available {
		return "cuda (" + c.deviceName + ")"
	}
	return "cuda (not available)"
}

func (c *CUDABackend) Available() bool { return c.available }
func (c *CUDABackend) Cleanup()        {}

func (c *CUDABackend) TrackPoints(prev, next *Pyramid, pts []Vec2, prm Params, out []Vec2, status []Status) {
	if !c.available || len(pts) == 0 {
		cpu := NewCPUBackend(0)
		cpu.TrackPoints(prev, next, pts, prm, out, status)
		return
	}

	full := prev.Levels[0]
	prevBuf := flattenPyramid(prev)
	nextBuf := flattenPyramid(next)

	n := len(pts)
	ptsBuf := make([]float32, 2*n)
	for i, p := range pts {
		ptsBuf[2*i] = float32(p.Y)
		ptsBuf[2*i+1] = float32(p.X)
	}
	outBuf := make([]float32, 2*n)
	statusBuf := make([]C.uchar, n)

	C.lk_track_gpu(
		(*C.float)(unsafe.Pointer(&prevBuf[0])),
		(*C.float)(unsafe.Pointer(&nextBuf[0])),
		C.int(full.W), C.int(full.H), C.int(len(prev.Levels)),
		(*C.float)(unsafe.Pointer(&ptsBuf[0])),
		(*C.float)(unsafe.Pointer(&outBuf[0])),
		(*C.uchar)(unsafe.Pointer(&statusBuf[0])),
		C.int(n), C.int(prm.WindowSize), C.int(prm.MaxIterations), C.float(prm.Epsilon),
	)

	for i := range pts {
		out[i] = Vec2{Y: float64(outBuf[2*i]), X: float64(outBuf[2*i+1])}
		status[i] = Status(statusBuf[i])
	}
}

func flattenPyramid(p *Pyramid) []float32 {
	total := 0
	for _, im := range p.Levels {
		total += len(im.Pix)
	}
	buf := make([]float32, 0, total)
	for _, im := range p.Levels {
		buf = append(buf, im.Pix...)
	}
	return buf
}
