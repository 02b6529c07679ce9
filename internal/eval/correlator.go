package eval

import (
	"errors"
	"fmt"

	"github.com/drakos74/deep-cca/internal/data"
	viewmath "github.com/drakos74/deep-cca/internal/math"
	"github.com/drakos74/deep-cca/internal/net"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFitted signals an apply call before the alignment was fit.
	ErrNotFitted = errors.New("alignment not fitted")
	// ErrNotApplicable signals a correlation query on a single-encoding variant.
	ErrNotApplicable = errors.New("no correlation for single encoding")
)

// Correlator fits a classical canonical correlation alignment on top of the
// learned latent codes and reports the per-dimension correlation.
// The alignment is fit once on training latents and reused for every
// subsequent apply call, never refit.
type Correlator struct {
	dims  int
	batch int
	cca   *viewmath.CCA
}

// NewCorrelator creates an unfitted correlator.
func NewCorrelator(dims, batch int) *Correlator {
	return &Correlator{
		dims:  dims,
		batch: batch,
	}
}

// Fitted reports whether the alignment has been fit.
func (c *Correlator) Fitted() bool {
	return c.cca != nil
}

// Fit gathers the per-view latent codes of the given (already centered) views,
// fits the alignment on them and returns the per-dimension correlations.
func (c *Correlator) Fit(network net.Network, x, y *mat.Dense) ([]float64, error) {
	zx, zy, err := c.latents(network, x, y)
	if err != nil {
		return nil, err
	}
	cca, err := viewmath.FitCCA(zx, zy, c.dims)
	if err != nil {
		return nil, fmt.Errorf("could not fit alignment: %w", err)
	}
	c.cca = cca
	px, py := cca.Transform(zx, zy)
	return viewmath.DiagCorrelations(px, py), nil
}

// Apply projects new latent codes through the already-fit alignment
// and returns the per-dimension correlations.
func (c *Correlator) Apply(network net.Network, x, y *mat.Dense) ([]float64, error) {
	// a single-encoding variant can never be fitted, surface that first
	if !network.BothEncoders() {
		return nil, ErrNotApplicable
	}
	if c.cca == nil {
		return nil, ErrNotFitted
	}
	zx, zy, err := c.latents(network, x, y)
	if err != nil {
		return nil, err
	}
	px, py := c.cca.Transform(zx, zy)
	return viewmath.DiagCorrelations(px, py), nil
}

func (c *Correlator) latents(network net.Network, x, y *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	if !network.BothEncoders() {
		return nil, nil, ErrNotApplicable
	}
	var zx, zy *mat.Dense
	err := data.NewBatches(c.batch, x, y).Scan(func(batch []mat.Matrix) error {
		bx, err := network.Encode(1, batch[0])
		if err != nil {
			return err
		}
		by, err := network.Encode(2, batch[1])
		if err != nil {
			return err
		}
		zx = viewmath.AppendRows(zx, bx)
		zy = viewmath.AppendRows(zy, by)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not gather latents: %w", err)
	}
	return zx, zy, nil
}
