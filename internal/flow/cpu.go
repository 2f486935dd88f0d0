package flow

import (
	"runtime"
	"sync"
)

// CPUBackend tracks points on worker goroutines, chunked over the point
// set.
type CPUBackend struct {
	workers int
}

func NewCPUBackend(workers int) *CPUBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{workers: workers}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}

func (c *CPUBackend) TrackPoints(prev, next *Pyramid, pts []Vec2, prm Params, out []Vec2, status []Status) {
	n := len(pts)
	if n < 16 || c.workers == 1 {
		for i, p := range pts {
			out[i], status[i] = trackPoint(prev, next, p, prm)
		}
		return
	}

	workers := c.workers
	if n/workers < 4 {
		workers = n / 4
		if workers < 1 {
			workers = 1
		}
	}
	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				out[i], status[i] = trackPoint(prev, next, pts[i], prm)
			}
		}(start, end)
	}
	wg.Wait()
}
