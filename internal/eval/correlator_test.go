package eval

import (
	"math/rand"
	"testing"

	"github.com/drakos74/deep-cca/internal/net"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// stubNet encodes a view as itself and decodes by doubling,
// so the evaluation plumbing can be asserted without a trained model.
type stubNet struct {
	bothEncoders bool
	canDecode    bool
	reconOffset  float64
}

func (s *stubNet) Forward(x, y mat.Matrix) (net.Outputs, error) {
	return net.Outputs{
		Z1:     mat.DenseCopyOf(x),
		Z2:     mat.DenseCopyOf(y),
		Recon1: offset(x, s.reconOffset),
		Recon2: offset(y, s.reconOffset),
	}, nil
}

func (s *stubNet) Loss(x, y mat.Matrix, out net.Outputs) (float64, error) {
	return 0, nil
}

func (s *stubNet) UpdateWeights(x, y mat.Matrix) (float64, error) {
	return 0, nil
}

func (s *stubNet) Encode(view int, v mat.Matrix) (*mat.Dense, error) {
	if view == 2 && !s.bothEncoders {
		return nil, net.ErrNoEncoder
	}
	return mat.DenseCopyOf(v), nil
}

func (s *stubNet) Decode(view int, z mat.Matrix) (*mat.Dense, error) {
	out := mat.DenseCopyOf(z)
	out.Scale(2, out)
	return out, nil
}

func (s *stubNet) Snapshot() net.Snapshot { return nil }
func (s *stubNet) Restore(_ net.Snapshot) {}
func (s *stubNet) BothEncoders() bool     { return s.bothEncoders }
func (s *stubNet) CanDecode() bool        { return s.canDecode }
func (s *stubNet) Parameters() int        { return 0 }

func offset(m mat.Matrix, v float64) *mat.Dense {
	out := mat.DenseCopyOf(m)
	out.Apply(func(_, _ int, x float64) float64 { return x + v }, out)
	return out
}

// correlatedViews generates two views sharing a latent signal,
// strongly correlated but not collinear.
func correlatedViews(n int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 2; j++ {
			z := rng.NormFloat64()
			x.Set(i, j, z+0.1*rng.NormFloat64())
			y.Set(i, j, 0.8*z+0.2*rng.NormFloat64())
		}
	}
	return x, y
}

func TestCorrelator_ApplyBeforeFit(t *testing.T) {
	correlator := NewCorrelator(2, 16)
	assert.False(t, correlator.Fitted())

	x, y := correlatedViews(40, 11)
	_, err := correlator.Apply(&stubNet{bothEncoders: true}, x, y)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestCorrelator_FitThenApply(t *testing.T) {
	network := &stubNet{bothEncoders: true}
	correlator := NewCorrelator(2, 16)
	x, y := correlatedViews(60, 11)

	fitted, err := correlator.Fit(network, x, y)
	assert.NoError(t, err)
	assert.True(t, correlator.Fitted())
	assert.Len(t, fitted, 2)
	for _, corr := range fitted {
		assert.Greater(t, corr, 0.8)
		assert.LessOrEqual(t, corr, 1.0)
	}

	// applying the fit alignment on the fit data reproduces the correlations
	applied, err := correlator.Apply(network, x, y)
	assert.NoError(t, err)
	assert.Equal(t, fitted, applied)
}

func TestCorrelator_BatchingDoesNotChangeLatents(t *testing.T) {
	network := &stubNet{bothEncoders: true}
	x, y := correlatedViews(60, 3)

	small, err := NewCorrelator(2, 7).Fit(network, x, y)
	assert.NoError(t, err)
	full, err := NewCorrelator(2, 60).Fit(network, x, y)
	assert.NoError(t, err)

	for i := range full {
		assert.InDelta(t, full[i], small[i], 1e-9)
	}
}

func TestCorrelator_SingleEncoder(t *testing.T) {
	correlator := NewCorrelator(2, 16)
	x, y := correlatedViews(40, 11)

	_, err := correlator.Fit(&stubNet{bothEncoders: false}, x, y)
	assert.ErrorIs(t, err, ErrNotApplicable)
	assert.False(t, correlator.Fitted())

	// applicability outranks fittedness
	_, err = correlator.Apply(&stubNet{bothEncoders: false}, x, y)
	assert.ErrorIs(t, err, ErrNotApplicable)
}
