package eval

import (
	"errors"
	"fmt"

	"github.com/drakos74/deep-cca/internal/data"
	viewmath "github.com/drakos74/deep-cca/internal/math"
	"github.com/drakos74/deep-cca/internal/net"
	"gonum.org/v1/gonum/mat"
)

// reconBatch is the batch size for out-of-sample reconstruction passes.
const reconBatch = 100

var (
	// ErrNoViews signals a transform call without any supplied view.
	ErrNoViews = errors.New("no views supplied")
	// ErrNoDecoder signals a cross-view prediction on a variant without decode paths.
	ErrNoDecoder = errors.New("model variant exposes no decoders")
)

// Transformer applies a trained model's encode and decode paths to new data,
// centering inputs with the persisted training means.
type Transformer struct {
	network net.Network
	means   [][]float64
}

// NewTransformer wraps a trained network with its persisted per-view train means.
func NewTransformer(network net.Network, means [][]float64) *Transformer {
	return &Transformer{
		network: network,
		means:   means,
	}
}

// Transform encodes the supplied views into the latent space.
// Either view may be nil; the latent vectors of each encoded view are
// L2-normalized per dimension across the batch.
func (t *Transformer) Transform(a, b *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	if a == nil && b == nil {
		return nil, nil, ErrNoViews
	}
	var za, zb *mat.Dense
	if a != nil {
		z, err := t.network.Encode(1, viewmath.Center(a, t.means[0]))
		if err != nil {
			return nil, nil, fmt.Errorf("could not encode view 1: %w", err)
		}
		za = viewmath.NormaliseColumns(z)
	}
	if b != nil {
		z, err := t.network.Encode(2, viewmath.Center(b, t.means[1]))
		if err != nil {
			return nil, nil, fmt.Errorf("could not encode view 2: %w", err)
		}
		zb = viewmath.NormaliseColumns(z)
	}
	return za, zb, nil
}

// Predict reconstructs the missing view from the supplied one by decoding the
// latent code through the other view's decoder. A supplied view is returned
// unchanged as its own prediction.
func (t *Transformer) Predict(a, b *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	if !t.network.CanDecode() {
		return nil, nil, ErrNoDecoder
	}
	za, zb, err := t.Transform(a, b)
	if err != nil {
		return nil, nil, err
	}
	var predA, predB *mat.Dense
	if za != nil {
		predB, err = t.network.Decode(2, za)
		if err != nil {
			return nil, nil, fmt.Errorf("could not decode view 2: %w", err)
		}
		predA = a
	}
	if zb != nil {
		predA, err = t.network.Decode(1, zb)
		if err != nil {
			return nil, nil, fmt.Errorf("could not decode view 1: %w", err)
		}
		predB = b
	}
	return predA, predB, nil
}

// ReconLoss reports the per-view reconstruction error of out-of-sample data.
// Per batch, the sum of squared errors is normalized by the batch sample count;
// batch results are summed, matching the training loss accumulation policy.
func (t *Transformer) ReconLoss(a, b *mat.Dense) (float64, float64, error) {
	ca := viewmath.Center(a, t.means[0])
	cb := viewmath.Center(b, t.means[1])

	var lossA, lossB float64
	err := data.NewBatches(reconBatch, ca, cb).Scan(func(batch []mat.Matrix) error {
		out, err := t.network.Forward(batch[0], batch[1])
		if err != nil {
			return err
		}
		if out.Recon1 == nil || out.Recon2 == nil {
			return ErrNoDecoder
		}
		n, _ := batch[0].Dims()
		lossA += viewmath.SumSquaredDiff(out.Recon1, batch[0]) / float64(n)
		lossB += viewmath.SumSquaredDiff(out.Recon2, batch[1]) / float64(n)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("could not compute reconstruction loss: %w", err)
	}
	return lossA, lossB, nil
}
