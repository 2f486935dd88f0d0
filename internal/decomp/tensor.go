package decomp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/facerhythm/facerhythm/internal/trace"
)

// Tensor3 is a dense third-order tensor, row-major in (i, j, k).
type Tensor3 struct {
	I, J, K int
	data    []float64
}

func NewTensor3(i, j, k int) *Tensor3 {
	return &Tensor3{I: i, J: j, K: k, data: make([]float64, i*j*k)}
}

func (t *Tensor3) At(i, j, k int) float64 {
	return t.data[(i*t.J+j)*t.K+k]
}

func (t *Tensor3) Set(i, j, k int, v float64) {
	t.data[(i*t.J+j)*t.K+k] = v
}

// Data exposes the backing slice, row-major in (i, j, k).
func (t *Tensor3) Data() []float64 { return t.data }

// Norm returns the Frobenius norm.
func (t *Tensor3) Norm() float64 {
	var ss float64
	for _, v := range t.data {
		ss += v * v
	}
	return math.Sqrt(ss)
}

// TraceTensor arranges a trajectory as a points x 2 x frames tensor with
// per-point anchor offsets removed, the layout TCA factorizes.
func TraceTensor(tr *trace.Trace) *Tensor3 {
	t := NewTensor3(tr.Points, 2, tr.Frames)
	for p := 0; p < tr.Points; p++ {
		y0, x0 := tr.At(0, p)
		for f := 0; f < tr.Frames; f++ {
			y, x := tr.At(f, p)
			t.Set(p, 0, f, y-y0)
			t.Set(p, 1, f, x-x0)
		}
	}
	return t
}

// SpectralTensor wraps an already-flat points x freqs x timebins block.
func SpectralTensor(i, j, k int, data []float64) (*Tensor3, error) {
	if len(data) != i*j*k {
		return nil, fmt.Errorf("tensor data length %d does not match %dx%dx%d", len(data), i, j, k)
	}
	return &Tensor3{I: i, J: j, K: k, data: data}, nil
}

// mttkrp computes the matricized-tensor times Khatri-Rao product for the
// given mode, the workhorse contraction of CP-ALS. Factors a, b, c belong
// to modes 0, 1, 2; the factor for the target mode is ignored.
func (t *Tensor3) mttkrp(mode int, a, b, c *mat.Dense, rank int) *mat.Dense {
	var out *mat.Dense
	switch mode {
	case 0:
		out = mat.NewDense(t.I, rank, nil)
		for i := 0; i < t.I; i++ {
			for j := 0; j < t.J; j++ {
				for k := 0; k < t.K; k++ {
					x := t.At(i, j, k)
					if x == 0 {
						continue
					}
					for r := 0; r < rank; r++ {
						out.Set(i, r, out.At(i, r)+x*b.At(j, r)*c.At(k, r))
					}
				}
			}
		}
	case 1:
		out = mat.NewDense(t.J, rank, nil)
		for i := 0; i < t.I; i++ {
			for j := 0; j < t.J; j++ {
				for k := 0; k < t.K; k++ {
					x := t.At(i, j, k)
					if x == 0 {
						continue
					}
					for r := 0; r < rank; r++ {
						out.Set(j, r, out.At(j, r)+x*a.At(i, r)*c.At(k, r))
					}
				}
			}
		}
	case 2:
		out = mat.NewDense(t.K, rank, nil)
		for i := 0; i < t.I; i++ {
			for j := 0; j < t.J; j++ {
				for k := 0; k < t.K; k++ {
					x := t.At(i, j, k)
					if x == 0 {
						continue
					}
					for r := 0; r < rank; r++ {
						out.Set(k, r, out.At(k, r)+x*a.At(i, r)*b.At(j, r))
					}
				}
			}
		}
	}
	return out
}
