package net

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	viewmath "github.com/drakos74/deep-cca/internal/math"
	"gonum.org/v1/gonum/mat"
)

// corrEps guards the correlation gradient against degenerate latent columns.
const corrEps = 1e-12

// CCAE is a deep canonically correlated autoencoder.
// Each view owns an encoder into the shared latent space and a decoder back.
// The objective couples a latent alignment term with the per-view
// reconstruction errors weighted by Lam.
type CCAE struct {
	cfg  Config
	enc1 *mlp
	enc2 *mlp
	dec1 *mlp
	dec2 *mlp
}

// NewDCCAE builds the autoencoder variant for the given config.
func NewDCCAE(cfg Config) (*CCAE, error) {
	switch cfg.LossType {
	case LossCCA, LossDistance:
	default:
		return nil, fmt.Errorf("%w: %s", ErrLossType, cfg.LossType)
	}
	if err := checkArch(cfg.Arch1, cfg.Arch2); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &CCAE{
		cfg:  cfg,
		enc1: newMLP(rng, cfg.Inputs1, cfg.Hidden1, cfg.LatentDims),
		enc2: newMLP(rng, cfg.Inputs2, cfg.Hidden2, cfg.LatentDims),
		dec1: newMLP(rng, cfg.LatentDims, reverse(cfg.Hidden1), cfg.Inputs1),
		dec2: newMLP(rng, cfg.LatentDims, reverse(cfg.Hidden2), cfg.Inputs2),
	}, nil
}

func (c *CCAE) Forward(x, y mat.Matrix) (Outputs, error) {
	z1 := c.enc1.forward(x)
	z2 := c.enc2.forward(y)
	return Outputs{
		Z1:     z1,
		Z2:     z2,
		Recon1: c.dec1.forward(z1),
		Recon2: c.dec2.forward(z2),
	}, nil
}

func (c *CCAE) Loss(x, y mat.Matrix, out Outputs) (float64, error) {
	n, _ := x.Dims()
	latent, err := c.latentLoss(out.Z1, out.Z2)
	if err != nil {
		return 0, err
	}
	recon := (viewmath.SumSquaredDiff(out.Recon1, x) + viewmath.SumSquaredDiff(out.Recon2, y)) / float64(n)
	return latent + c.cfg.Lam*recon, nil
}

func (c *CCAE) UpdateWeights(x, y mat.Matrix) (float64, error) {
	out, err := c.Forward(x, y)
	if err != nil {
		return 0, err
	}
	loss, err := c.Loss(x, y, out)
	if err != nil {
		return 0, err
	}
	n, _ := x.Dims()
	rate := c.cfg.LearningRate

	// reconstruction branch
	dz1 := c.dec1.backward(reconGrad(out.Recon1, x, c.cfg.Lam, n), rate)
	dz2 := c.dec2.backward(reconGrad(out.Recon2, y, c.cfg.Lam, n), rate)

	// latent alignment branch
	g1, g2 := c.latentGrad(out.Z1, out.Z2)
	dz1.Add(dz1, g1)
	dz2.Add(dz2, g2)

	c.enc1.backward(dz1, rate)
	c.enc2.backward(dz2, rate)
	return loss, nil
}

func (c *CCAE) latentLoss(z1, z2 *mat.Dense) (float64, error) {
	switch c.cfg.LossType {
	case LossCCA:
		loss := float64(c.cfg.LatentDims)
		for _, corr := range viewmath.DiagCorrelations(z1, z2) {
			loss -= corr
		}
		return loss, nil
	case LossDistance:
		n, _ := z1.Dims()
		return viewmath.SumSquaredDiff(z1, z2) / float64(n), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrLossType, c.cfg.LossType)
}

func (c *CCAE) latentGrad(z1, z2 *mat.Dense) (*mat.Dense, *mat.Dense) {
	n, d := z1.Dims()
	g1 := mat.NewDense(n, d, nil)
	g2 := mat.NewDense(n, d, nil)

	if c.cfg.LossType == LossDistance {
		for i := 0; i < n; i++ {
			for j := 0; j < d; j++ {
				g := 2 * (z1.At(i, j) - z2.At(i, j)) / float64(n)
				g1.Set(i, j, g)
				g2.Set(i, j, -g)
			}
		}
		return g1, g2
	}

	// gradient of the negative per-dimension correlation
	uc := make([]float64, n)
	vc := make([]float64, n)
	for j := 0; j < d; j++ {
		var mu, mv float64
		for i := 0; i < n; i++ {
			mu += z1.At(i, j)
			mv += z2.At(i, j)
		}
		mu /= float64(n)
		mv /= float64(n)
		var su, sv, uv float64
		for i := 0; i < n; i++ {
			uc[i] = z1.At(i, j) - mu
			vc[i] = z2.At(i, j) - mv
			su += uc[i] * uc[i]
			sv += vc[i] * vc[i]
			uv += uc[i] * vc[i]
		}
		norm := math.Sqrt(su) * math.Sqrt(sv)
		if norm < corrEps {
			continue
		}
		corr := uv / norm
		for i := 0; i < n; i++ {
			g1.Set(i, j, -(vc[i]/norm - corr*uc[i]/su))
			g2.Set(i, j, -(uc[i]/norm - corr*vc[i]/sv))
		}
	}
	return g1, g2
}

func (c *CCAE) Encode(view int, v mat.Matrix) (*mat.Dense, error) {
	switch view {
	case 1:
		return c.enc1.forward(v), nil
	case 2:
		return c.enc2.forward(v), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrNoEncoder, view)
}

func (c *CCAE) Decode(view int, z mat.Matrix) (*mat.Dense, error) {
	switch view {
	case 1:
		return c.dec1.forward(z), nil
	case 2:
		return c.dec2.forward(z), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrNoDecoder, view)
}

func (c *CCAE) Snapshot() Snapshot {
	return takeSnapshot(c.enc1, c.enc2, c.dec1, c.dec2)
}

func (c *CCAE) Restore(s Snapshot) {
	restoreSnapshot(s, c.enc1, c.enc2, c.dec1, c.dec2)
}

func (c *CCAE) BothEncoders() bool {
	return true
}

func (c *CCAE) CanDecode() bool {
	return true
}

func (c *CCAE) Parameters() int {
	return c.enc1.parameters() + c.enc2.parameters() + c.dec1.parameters() + c.dec2.parameters()
}

func reconGrad(recon *mat.Dense, target mat.Matrix, lam float64, n int) *mat.Dense {
	r, q := recon.Dims()
	g := mat.NewDense(r, q, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < q; j++ {
			g.Set(i, j, 2*lam*(recon.At(i, j)-target.At(i, j))/float64(n))
		}
	}
	return g
}
