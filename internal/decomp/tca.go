package decomp

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// CPResult holds a rank-R CP decomposition: the tensor is approximated by
// the sum over r of Lambda[r] * Factors[0][:,r] ∘ Factors[1][:,r] ∘
// Factors[2][:,r]. Factor columns all have unit norm.
type CPResult struct {
	Rank       int
	Factors    [3]*mat.Dense
	Lambda     []float64
	Fit        float64 // 1 - relative reconstruction error
	Iterations int
}

// CPOptions controls the alternating least squares loop.
type CPOptions struct {
	Rank    int
	MaxIter int
	Tol     float64 // stop when the fit improves by less than this
	Seed    int64
}

// DefaultCPOptions matches the knobs exposed through the config file.
func DefaultCPOptions(rank int) CPOptions {
	return CPOptions{Rank: rank, MaxIter: 200, Tol: 1e-6, Seed: 1}
}

// ridge keeps the rank x rank normal-equation matrix invertible when
// factor columns become collinear mid-iteration.
const ridge = 1e-12

// CPALS fits a CP decomposition by alternating least squares. Each mode
// update solves the normal equations built from the Hadamard product of
// the other factors' Gram matrices against the MTTKRP of the tensor.
func CPALS(t *Tensor3, opts CPOptions) (*CPResult, error) {
	if opts.Rank < 1 {
		return nil, fmt.Errorf("cp rank must be >= 1, got %d", opts.Rank)
	}
	if t.I < 1 || t.J < 1 || t.K < 1 {
		return nil, fmt.Errorf("cp needs a non-empty tensor, got %dx%dx%d", t.I, t.J, t.K)
	}
	if opts.MaxIter < 1 {
		opts.MaxIter = 1
	}

	normX := t.Norm()
	if normX == 0 {
		return nil, fmt.Errorf("cp input tensor is all zero")
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	dims := [3]int{t.I, t.J, t.K}
	var factors [3]*mat.Dense
	for m := 0; m < 3; m++ {
		f := mat.NewDense(dims[m], opts.Rank, nil)
		for i := 0; i < dims[m]; i++ {
			for r := 0; r < opts.Rank; r++ {
				f.Set(i, r, rng.Float64())
			}
		}
		factors[m] = f
	}

	lambda := make([]float64, opts.Rank)
	fit := 0.0
	iters := 0

	for it := 0; it < opts.MaxIter; it++ {
		iters = it + 1
		for mode := 0; mode < 3; mode++ {
			m := t.mttkrp(mode, factors[0], factors[1], factors[2], opts.Rank)

			v := gramHadamard(factors, mode, opts.Rank)
			for r := 0; r < opts.Rank; r++ {
				v.Set(r, r, v.At(r, r)+ridge)
			}

			// Solve V * Fᵀ = Mᵀ for the updated factor F.
			var ft mat.Dense
			if err := ft.Solve(v, m.T()); err != nil {
				return nil, fmt.Errorf("cp mode %d solve: %w", mode, err)
			}
			factors[mode].Copy(ft.T())
		}

		normalize(factors, lambda, opts.Rank)

		prev := fit
		fit = 1 - reconError(t, factors, lambda, opts.Rank)/normX
		if it > 0 && math.Abs(fit-prev) < opts.Tol {
			break
		}
	}

	return &CPResult{
		Rank:       opts.Rank,
		Factors:    factors,
		Lambda:     lambda,
		Fit:        fit,
		Iterations: iters,
	}, nil
}

// gramHadamard builds the elementwise product of FᵀF over every mode
// except the one being updated.
func gramHadamard(factors [3]*mat.Dense, skip, rank int) *mat.Dense {
	v := mat.NewDense(rank, rank, nil)
	for i := 0; i < rank; i++ {
		for j := 0; j < rank; j++ {
			v.Set(i, j, 1)
		}
	}
	var g mat.Dense
	for m := 0; m < 3; m++ {
		if m == skip {
			continue
		}
		g.Mul(factors[m].T(), factors[m])
		v.MulElem(v, &g)
	}
	return v
}

// normalize rescales every factor column to unit norm, folding the scale
// into lambda. A zero column keeps lambda zero rather than dividing by it.
func normalize(factors [3]*mat.Dense, lambda []float64, rank int) {
	for r := 0; r < rank; r++ {
		lambda[r] = 1
		for m := 0; m < 3; m++ {
			col := mat.Col(nil, r, factors[m])
			var ss float64
			for _, v := range col {
				ss += v * v
			}
			n := math.Sqrt(ss)
			lambda[r] *= n
			if n == 0 {
				continue
			}
			rows, _ := factors[m].Dims()
			for i := 0; i < rows; i++ {
				factors[m].Set(i, r, factors[m].At(i, r)/n)
			}
		}
	}
}

// reconError returns the Frobenius norm of the residual between the tensor
// and its current CP model.
func reconError(t *Tensor3, factors [3]*mat.Dense, lambda []float64, rank int) float64 {
	var ss float64
	for i := 0; i < t.I; i++ {
		for j := 0; j < t.J; j++ {
			for k := 0; k < t.K; k++ {
				var est float64
				for r := 0; r < rank; r++ {
					est += lambda[r] * factors[0].At(i, r) * factors[1].At(j, r) * factors[2].At(k, r)
				}
				d := t.At(i, j, k) - est
				ss += d * d
			}
		}
	}
	return math.Sqrt(ss)
}
