package math

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ColMeans returns the per-column mean of the given matrix.
func ColMeans(m mat.Matrix) []float64 {
	r, c := m.Dims()
	means := make([]float64, c)
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += m.At(i, j)
		}
		means[j] = sum / float64(r)
	}
	return means
}

// Center subtracts the given per-column means from every row of m.
func Center(m mat.Matrix, means []float64) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(i, j)-means[j])
		}
	}
	return out
}

// Rows copies the given rows of m into a new matrix.
func Rows(m mat.Matrix, idx []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, ix := range idx {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(ix, j))
		}
	}
	return out
}

// NormaliseColumns scales each column of m to unit L2 norm.
// Zero columns are left untouched.
func NormaliseColumns(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		norm := 0.0
		for i := 0; i < r; i++ {
			v := m.At(i, j)
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		for i := 0; i < r; i++ {
			out.Set(i, j, m.At(i, j)/norm)
		}
	}
	return out
}

// DiagCorrelations returns the per-column Pearson correlation of the two matrices.
// It corresponds to the diagonal of the cross-correlation matrix of a and b.
func DiagCorrelations(a, b mat.Matrix) []float64 {
	ra, ca := a.Dims()
	_, cb := b.Dims()
	d := ca
	if cb < d {
		d = cb
	}
	corr := make([]float64, d)
	u := make([]float64, ra)
	v := make([]float64, ra)
	for j := 0; j < d; j++ {
		for i := 0; i < ra; i++ {
			u[i] = a.At(i, j)
			v[i] = b.At(i, j)
		}
		c := stat.Correlation(u, v, nil)
		if math.IsNaN(c) {
			c = 0
		}
		corr[j] = c
	}
	return corr
}

// AppendRows stacks the rows of add below the rows of dst.
// A nil dst starts a new matrix.
func AppendRows(dst *mat.Dense, add mat.Matrix) *mat.Dense {
	ra, c := add.Dims()
	if dst == nil {
		out := mat.NewDense(ra, c, nil)
		out.Copy(add)
		return out
	}
	rd, _ := dst.Dims()
	out := mat.NewDense(rd+ra, c, nil)
	out.Slice(0, rd, 0, c).(*mat.Dense).Copy(dst)
	out.Slice(rd, rd+ra, 0, c).(*mat.Dense).Copy(add)
	return out
}

// SumSquaredDiff returns the sum of squared element-wise differences of a and b.
func SumSquaredDiff(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d := a.At(i, j) - b.At(i, j)
			sum += d * d
		}
	}
	return sum
}
