package math

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestColMeansAndCenter(t *testing.T) {
	m := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	means := ColMeans(m)
	assert.Equal(t, []float64{2.5, 25}, means)

	centered := Center(m, means)
	assert.Equal(t, []float64{0, 0}, ColMeans(centered))
	assert.InDelta(t, -1.5, centered.At(0, 0), 1e-12)
	assert.InDelta(t, 15, centered.At(3, 1), 1e-12)
}

func TestRows(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
	})
	out := Rows(m, []int{2, 0})
	assert.Equal(t, []float64{5, 6}, []float64{out.At(0, 0), out.At(0, 1)})
	assert.Equal(t, []float64{1, 2}, []float64{out.At(1, 0), out.At(1, 1)})
}

func TestNormaliseColumns(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{
		3, 0,
		4, 0,
	})
	out := NormaliseColumns(m)

	// first column scaled to unit norm, zero column untouched
	assert.InDelta(t, 0.6, out.At(0, 0), 1e-12)
	assert.InDelta(t, 0.8, out.At(1, 0), 1e-12)
	assert.Equal(t, 0.0, out.At(0, 1))

	norm := math.Sqrt(out.At(0, 0)*out.At(0, 0) + out.At(1, 0)*out.At(1, 0))
	assert.InDelta(t, 1.0, norm, 1e-12)
}

func TestDiagCorrelations(t *testing.T) {

	type test struct {
		a, b *mat.Dense
		corr []float64
	}

	tests := map[string]test{
		"identical": {
			a:    mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
			b:    mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
			corr: []float64{1},
		},
		"inverted": {
			a:    mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
			b:    mat.NewDense(4, 1, []float64{4, 3, 2, 1}),
			corr: []float64{-1},
		},
		"scaled-and-shifted": {
			a:    mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
			b:    mat.NewDense(4, 1, []float64{12, 14, 16, 18}),
			corr: []float64{1},
		},
		"constant-column-is-zero": {
			a:    mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
			b:    mat.NewDense(4, 1, []float64{5, 5, 5, 5}),
			corr: []float64{0},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			corr := DiagCorrelations(tt.a, tt.b)
			assert.Equal(t, len(tt.corr), len(corr))
			for i := range corr {
				assert.InDelta(t, tt.corr[i], corr[i], 1e-9)
				assert.LessOrEqual(t, corr[i], 1.0)
				assert.GreaterOrEqual(t, corr[i], -1.0)
			}
		})
	}
}

func TestAppendRows(t *testing.T) {
	var acc *mat.Dense
	acc = AppendRows(acc, mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	acc = AppendRows(acc, mat.NewDense(1, 2, []float64{5, 6}))

	r, c := acc.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 5.0, acc.At(2, 0))
	assert.Equal(t, 4.0, acc.At(1, 1))
}

func TestSumSquaredDiff(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	b := mat.NewDense(2, 2, []float64{1, 1, 3, 2})
	assert.InDelta(t, 5.0, SumSquaredDiff(a, b), 1e-12)
}
