package math

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ridge keeps the covariance factorizations stable for near-singular latents.
const ridge = 1e-9

// CCA is a fitted two-view canonical correlation alignment.
// The projections maximise the cross-correlation of the two variable sets.
type CCA struct {
	dims     int
	muX, muY []float64
	wx, wy   *mat.Dense
}

// FitCCA fits a canonical correlation alignment of the given output dimensionality
// on the two row-aligned variable sets.
func FitCCA(x, y mat.Matrix, dims int) (*CCA, error) {
	n, p := x.Dims()
	ny, q := y.Dims()
	if n != ny {
		return nil, fmt.Errorf("row count mismatch %d vs %d", n, ny)
	}
	if n < 2 {
		return nil, fmt.Errorf("not enough samples to fit alignment : %d", n)
	}
	if dims > p || dims > q {
		return nil, fmt.Errorf("alignment dims %d exceed variable dims %d x %d", dims, p, q)
	}

	muX := ColMeans(x)
	muY := ColMeans(y)
	xc := Center(x, muX)
	yc := Center(y, muY)

	sxx := covariance(xc, xc)
	syy := covariance(yc, yc)
	sxy := covariance(xc, yc)

	sxxInv, err := invSqrtSym(sxx)
	if err != nil {
		return nil, fmt.Errorf("could not factorize view-1 covariance: %w", err)
	}
	syyInv, err := invSqrtSym(syy)
	if err != nil {
		return nil, fmt.Errorf("could not factorize view-2 covariance: %w", err)
	}

	var m mat.Dense
	m.Mul(sxxInv, sxy)
	m.Mul(&m, syyInv)

	var svd mat.SVD
	if ok := svd.Factorize(&m, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd did not converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var wx, wy mat.Dense
	wx.Mul(sxxInv, u.Slice(0, p, 0, dims))
	wy.Mul(syyInv, v.Slice(0, q, 0, dims))

	return &CCA{
		dims: dims,
		muX:  muX,
		muY:  muY,
		wx:   mat.DenseCopyOf(&wx),
		wy:   mat.DenseCopyOf(&wy),
	}, nil
}

// Dims returns the output dimensionality of the alignment.
func (c *CCA) Dims() int {
	return c.dims
}

// Transform applies the fitted projections to new row-aligned variable sets.
func (c *CCA) Transform(x, y mat.Matrix) (*mat.Dense, *mat.Dense) {
	var px, py mat.Dense
	px.Mul(Center(x, c.muX), c.wx)
	py.Mul(Center(y, c.muY), c.wy)
	return &px, &py
}

func covariance(a, b *mat.Dense) *mat.Dense {
	n, _ := a.Dims()
	var s mat.Dense
	s.Mul(a.T(), b)
	s.Scale(1/float64(n-1), &s)
	r, q := s.Dims()
	if r == q {
		for i := 0; i < r; i++ {
			s.Set(i, i, s.At(i, i)+ridge)
		}
	}
	return &s
}

// invSqrtSym computes the inverse square root of a symmetric positive matrix.
func invSqrtSym(s *mat.Dense) (*mat.Dense, error) {
	r, _ := s.Dims()
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, (s.At(i, j)+s.At(j, i))/2)
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, fmt.Errorf("eigen decomposition did not converge")
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	values := eig.Values(nil)

	d := mat.NewDense(r, r, nil)
	for i, v := range values {
		if v < ridge {
			v = ridge
		}
		d.Set(i, i, 1/math.Sqrt(v))
	}
	var out mat.Dense
	out.Mul(&vectors, d)
	out.Mul(&out, vectors.T())
	return &out, nil
}
