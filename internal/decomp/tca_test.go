package decomp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rankTwoTensor builds an exact rank-2 tensor from fixed factor vectors.
func rankTwoTensor(i, j, k int) *Tensor3 {
	a := [][]float64{make([]float64, i), make([]float64, i)}
	b := [][]float64{make([]float64, j), make([]float64, j)}
	c := [][]float64{make([]float64, k), make([]float64, k)}
	for n := 0; n < i; n++ {
		a[0][n] = math.Sin(float64(n) * 0.7)
		a[1][n] = float64(n%3) + 1
	}
	for n := 0; n < j; n++ {
		b[0][n] = float64(n) + 0.5
		b[1][n] = math.Cos(float64(n) * 0.3)
	}
	for n := 0; n < k; n++ {
		c[0][n] = 1.0 / float64(n+1)
		c[1][n] = float64(n) * 0.2
	}

	t := NewTensor3(i, j, k)
	for x := 0; x < i; x++ {
		for y := 0; y < j; y++ {
			for z := 0; z < k; z++ {
				v := a[0][x]*b[0][y]*c[0][z] + a[1][x]*b[1][y]*c[1][z]
				t.Set(x, y, z, v)
			}
		}
	}
	return t
}

func TestCPALSRecoversRankTwo(t *testing.T) {
	tensor := rankTwoTensor(8, 5, 12)

	res, err := CPALS(tensor, DefaultCPOptions(2))
	require.NoError(t, err)
	assert.Greater(t, res.Fit, 0.999, "rank-2 model should fit a rank-2 tensor")
	assert.Len(t, res.Lambda, 2)
	assert.LessOrEqual(t, res.Iterations, 200)

	rows, cols := res.Factors[0].Dims()
	assert.Equal(t, 8, rows)
	assert.Equal(t, 2, cols)
	rows, _ = res.Factors[2].Dims()
	assert.Equal(t, 12, rows)

	// Columns come back unit-normed with the scale in lambda.
	for m := 0; m < 3; m++ {
		for r := 0; r < 2; r++ {
			var ss float64
			n, _ := res.Factors[m].Dims()
			for i := 0; i < n; i++ {
				v := res.Factors[m].At(i, r)
				ss += v * v
			}
			assert.InDelta(t, 1.0, math.Sqrt(ss), 1e-6)
		}
	}
}

func TestCPALSDeterministicSeed(t *testing.T) {
	tensor := rankTwoTensor(6, 4, 7)
	opts := DefaultCPOptions(2)

	a, err := CPALS(tensor, opts)
	require.NoError(t, err)
	b, err := CPALS(tensor, opts)
	require.NoError(t, err)

	assert.Equal(t, a.Iterations, b.Iterations)
	assert.InDelta(t, a.Fit, b.Fit, 1e-12)
	assert.InDelta(t, a.Lambda[0], b.Lambda[0], 1e-12)
}

func TestCPALSRejectsBadInput(t *testing.T) {
	tensor := rankTwoTensor(4, 3, 5)
	_, err := CPALS(tensor, CPOptions{Rank: 0, MaxIter: 10, Tol: 1e-6})
	assert.Error(t, err)

	zero := NewTensor3(3, 3, 3)
	_, err = CPALS(zero, DefaultCPOptions(1))
	assert.Error(t, err)
}

func TestSpectralTensorShapeCheck(t *testing.T) {
	_, err := SpectralTensor(2, 2, 2, make([]float64, 7))
	assert.Error(t, err)

	ten, err := SpectralTensor(2, 2, 2, make([]float64, 8))
	require.NoError(t, err)
	assert.Equal(t, 2, ten.I)
}
