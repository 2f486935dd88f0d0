// Package decomp provides the linear and multilinear decompositions the
// pipeline runs on trajectory data: PCA over the frames-by-features matrix
// and CP tensor decomposition (TCA) over third-order tensors.
package decomp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/facerhythm/facerhythm/internal/trace"
)

// PCAResult holds the factorization X ≈ Scores * Loadingsᵀ (after
// centering).
type PCAResult struct {
	Components        int
	Scores            *mat.Dense // frames x components
	Loadings          *mat.Dense // features x components
	ExplainedVariance []float64  // ratio per component, sums to <= 1
	Mean              []float64  // per-feature mean removed before SVD
}

// PCA runs a thin SVD on the mean-centered (optionally z-scored) matrix
// and keeps the leading components. k <= 0 keeps all of them.
func PCA(x *mat.Dense, k int, zscore bool) (*PCAResult, error) {
	n, d := x.Dims()
	if n < 2 || d < 1 {
		return nil, fmt.Errorf("pca needs at least 2 rows and 1 column, got %dx%d", n, d)
	}

	centered := mat.NewDense(n, d, nil)
	mean := make([]float64, d)
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, x)
		var sum float64
		for _, v := range col {
			sum += v
		}
		mean[j] = sum / float64(n)

		sd := 1.0
		if zscore {
			var ss float64
			for _, v := range col {
				dv := v - mean[j]
				ss += dv * dv
			}
			sd = math.Sqrt(ss / float64(n-1))
			if sd == 0 {
				sd = 1
			}
		}
		for i, v := range col {
			centered.Set(i, j, (v-mean[j])/sd)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(centered, mat.SVDThin) {
		return nil, fmt.Errorf("svd failed to converge")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := svd.Values(nil)

	max := len(sigma)
	if k <= 0 || k > max {
		k = max
	}

	var total float64
	for _, s := range sigma {
		total += s * s
	}
	ratio := make([]float64, k)
	for i := 0; i < k; i++ {
		if total > 0 {
			ratio[i] = sigma[i] * sigma[i] / total
		}
	}

	scores := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			scores.Set(i, j, u.At(i, j)*sigma[j])
		}
	}
	loadings := mat.NewDense(d, k, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < k; j++ {
			loadings.Set(i, j, v.At(i, j))
		}
	}

	return &PCAResult{
		Components:        k,
		Scores:            scores,
		Loadings:          loadings,
		ExplainedVariance: ratio,
		Mean:              mean,
	}, nil
}

// TraceMatrix flattens a trajectory tensor into the frames x (points*2)
// matrix PCA operates on. Column order is point-major: y0, x0, y1, x1, ...
func TraceMatrix(t *trace.Trace) *mat.Dense {
	m := mat.NewDense(t.Frames, t.Points*2, nil)
	for f := 0; f < t.Frames; f++ {
		for p := 0; p < t.Points; p++ {
			y, x := t.At(f, p)
			m.Set(f, p*2, y)
			m.Set(f, p*2+1, x)
		}
	}
	return m
}
