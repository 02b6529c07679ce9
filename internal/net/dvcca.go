package net

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	viewmath "github.com/drakos74/deep-cca/internal/math"
	"gonum.org/v1/gonum/mat"
)

// VCCA is a deep variational canonical correlation model.
// Each view can own a variational encoder producing mean and log-variance of
// the latent code; decoders reconstruct each view from the (reparameterized)
// code, optionally concatenated with a per-view private code.
// With a single encoder both reconstructions are driven by the view-1 code.
type VCCA struct {
	cfg   Config
	enc1  *mlp
	enc2  *mlp
	priv1 *mlp
	priv2 *mlp
	dec1  *mlp
	dec2  *mlp
	rng   *rand.Rand

	// forward caches for the weight update
	eps1, eps2   *mat.Dense
	epsP1, epsP2 *mat.Dense
	pMu1, pLv1   *mat.Dense
	pMu2, pLv2   *mat.Dense
	pz1, pz2     *mat.Dense
	z1, z2       *mat.Dense
}

// NewDVCCA builds the variational variant for the given config.
func NewDVCCA(cfg Config) (*VCCA, error) {
	if err := checkArch(cfg.Arch1, cfg.Arch2); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	decIn := cfg.LatentDims
	if cfg.Private {
		decIn += cfg.LatentDims
	}
	v := &VCCA{
		cfg:  cfg,
		enc1: newMLP(rng, cfg.Inputs1, cfg.Hidden1, 2*cfg.LatentDims),
		dec1: newMLP(rng, decIn, reverse(cfg.Hidden1), cfg.Inputs1),
		dec2: newMLP(rng, decIn, reverse(cfg.Hidden2), cfg.Inputs2),
		rng:  rng,
	}
	if cfg.BothEncoders {
		v.enc2 = newMLP(rng, cfg.Inputs2, cfg.Hidden2, 2*cfg.LatentDims)
	}
	if cfg.Private {
		v.priv1 = newMLP(rng, cfg.Inputs1, cfg.Hidden1, 2*cfg.LatentDims)
		v.priv2 = newMLP(rng, cfg.Inputs2, cfg.Hidden2, 2*cfg.LatentDims)
	}
	return v, nil
}

func (v *VCCA) Forward(x, y mat.Matrix) (Outputs, error) {
	d := v.cfg.LatentDims

	h1 := v.enc1.forward(x)
	mu1, lv1 := splitCols(h1, d)
	v.eps1 = v.noise(mu1)
	v.z1 = reparameterize(mu1, lv1, v.eps1)

	out := Outputs{Z1: mu1, Mu1: mu1, LogVar1: lv1}

	code2 := v.z1
	if v.cfg.BothEncoders {
		h2 := v.enc2.forward(y)
		mu2, lv2 := splitCols(h2, d)
		v.eps2 = v.noise(mu2)
		v.z2 = reparameterize(mu2, lv2, v.eps2)
		out.Z2 = mu2
		out.Mu2 = mu2
		out.LogVar2 = lv2
		code2 = v.z2
	}

	in1, in2 := v.z1, code2
	if v.cfg.Private {
		v.pMu1, v.pLv1 = splitCols(v.priv1.forward(x), d)
		v.epsP1 = v.noise(v.pMu1)
		v.pz1 = reparameterize(v.pMu1, v.pLv1, v.epsP1)

		v.pMu2, v.pLv2 = splitCols(v.priv2.forward(y), d)
		v.epsP2 = v.noise(v.pMu2)
		v.pz2 = reparameterize(v.pMu2, v.pLv2, v.epsP2)

		in1 = hstack(v.z1, v.pz1)
		in2 = hstack(code2, v.pz2)
	}

	out.Recon1 = v.dec1.forward(in1)
	out.Recon2 = v.dec2.forward(in2)
	return out, nil
}

func (v *VCCA) Loss(x, y mat.Matrix, out Outputs) (float64, error) {
	n, _ := x.Dims()
	loss := (viewmath.SumSquaredDiff(out.Recon1, x) + viewmath.SumSquaredDiff(out.Recon2, y)) / float64(n)
	loss += kl(out.Mu1, out.LogVar1) / float64(n)
	if v.cfg.BothEncoders {
		loss += kl(out.Mu2, out.LogVar2) / float64(n)
	}
	if v.cfg.Private {
		loss += (kl(v.pMu1, v.pLv1) + kl(v.pMu2, v.pLv2)) / float64(n)
	}
	return loss, nil
}

func (v *VCCA) UpdateWeights(x, y mat.Matrix) (float64, error) {
	out, err := v.Forward(x, y)
	if err != nil {
		return 0, err
	}
	loss, err := v.Loss(x, y, out)
	if err != nil {
		return 0, err
	}
	n, _ := x.Dims()
	d := v.cfg.LatentDims
	rate := v.cfg.LearningRate

	din1 := v.dec1.backward(reconGrad(out.Recon1, x, 1, n), rate)
	din2 := v.dec2.backward(reconGrad(out.Recon2, y, 1, n), rate)

	dz1, dp1 := din1, (*mat.Dense)(nil)
	dz2, dp2 := din2, (*mat.Dense)(nil)
	if v.cfg.Private {
		dz1, dp1 = splitCols(din1, d)
		dz2, dp2 = splitCols(din2, d)
	}

	if v.cfg.BothEncoders {
		v.enc1.backward(encoderGrad(out.Mu1, out.LogVar1, v.z1, dz1, n), rate)
		v.enc2.backward(encoderGrad(out.Mu2, out.LogVar2, v.z2, dz2, n), rate)
	} else {
		// single encoder drives both reconstructions
		var dz mat.Dense
		dz.Add(dz1, dz2)
		v.enc1.backward(encoderGrad(out.Mu1, out.LogVar1, v.z1, &dz, n), rate)
	}

	if v.cfg.Private {
		v.priv1.backward(encoderGrad(v.pMu1, v.pLv1, v.pz1, dp1, n), rate)
		v.priv2.backward(encoderGrad(v.pMu2, v.pLv2, v.pz2, dp2, n), rate)
	}
	return loss, nil
}

func (v *VCCA) Encode(view int, in mat.Matrix) (*mat.Dense, error) {
	switch view {
	case 1:
		mu, _ := splitCols(v.enc1.forward(in), v.cfg.LatentDims)
		return mu, nil
	case 2:
		if v.enc2 == nil {
			return nil, fmt.Errorf("%w: %d", ErrNoEncoder, view)
		}
		mu, _ := splitCols(v.enc2.forward(in), v.cfg.LatentDims)
		return mu, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrNoEncoder, view)
}

// Decode reconstructs the given view from a shared latent code.
// With the private branch enabled the private block is zero-padded,
// as out-of-sample queries only carry the shared code.
func (v *VCCA) Decode(view int, z mat.Matrix) (*mat.Dense, error) {
	in := z
	if v.cfg.Private {
		n, c := z.Dims()
		if c == v.cfg.LatentDims {
			in = hstack(mat.DenseCopyOf(z), mat.NewDense(n, v.cfg.LatentDims, nil))
		}
	}
	switch view {
	case 1:
		return v.dec1.forward(in), nil
	case 2:
		return v.dec2.forward(in), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrNoDecoder, view)
}

func (v *VCCA) Snapshot() Snapshot {
	return takeSnapshot(v.enc1, v.enc2, v.priv1, v.priv2, v.dec1, v.dec2)
}

func (v *VCCA) Restore(s Snapshot) {
	restoreSnapshot(s, v.enc1, v.enc2, v.priv1, v.priv2, v.dec1, v.dec2)
}

func (v *VCCA) BothEncoders() bool {
	return v.cfg.BothEncoders
}

func (v *VCCA) CanDecode() bool {
	return true
}

func (v *VCCA) Parameters() int {
	count := v.enc1.parameters() + v.dec1.parameters() + v.dec2.parameters()
	if v.enc2 != nil {
		count += v.enc2.parameters()
	}
	if v.priv1 != nil {
		count += v.priv1.parameters() + v.priv2.parameters()
	}
	return count
}

func (v *VCCA) noise(mu *mat.Dense) *mat.Dense {
	n, d := mu.Dims()
	eps := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			eps.Set(i, j, v.rng.NormFloat64())
		}
	}
	return eps
}

func reparameterize(mu, logVar, eps *mat.Dense) *mat.Dense {
	n, d := mu.Dims()
	z := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			z.Set(i, j, mu.At(i, j)+eps.At(i, j)*math.Exp(logVar.At(i, j)/2))
		}
	}
	return z
}

// kl is the KL divergence of the variational posterior from the unit gaussian.
func kl(mu, logVar *mat.Dense) float64 {
	n, d := mu.Dims()
	sum := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			m := mu.At(i, j)
			lv := logVar.At(i, j)
			sum += -0.5 * (1 + lv - m*m - math.Exp(lv))
		}
	}
	return sum
}

// encoderGrad folds the reparameterization and KL gradients into the gradient
// of the encoder output block [mu | logVar].
func encoderGrad(mu, logVar, z, dz *mat.Dense, n int) *mat.Dense {
	rows, d := mu.Dims()
	g := mat.NewDense(rows, 2*d, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < d; j++ {
			m := mu.At(i, j)
			lv := logVar.At(i, j)
			dzv := dz.At(i, j)
			g.Set(i, j, dzv+m/float64(n))
			g.Set(i, j+d, dzv*0.5*(z.At(i, j)-m)+0.5*(math.Exp(lv)-1)/float64(n))
		}
	}
	return g
}

func splitCols(m *mat.Dense, at int) (*mat.Dense, *mat.Dense) {
	r, c := m.Dims()
	return mat.DenseCopyOf(m.Slice(0, r, 0, at)), mat.DenseCopyOf(m.Slice(0, r, at, c))
}

func hstack(a, b *mat.Dense) *mat.Dense {
	r, ca := a.Dims()
	_, cb := b.Dims()
	out := mat.NewDense(r, ca+cb, nil)
	out.Slice(0, r, 0, ca).(*mat.Dense).Copy(a)
	out.Slice(0, r, ca, ca+cb).(*mat.Dense).Copy(b)
	return out
}
