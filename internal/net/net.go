package net

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Method selects the trainable model variant.
type Method string

const (
	// DCCAE is the deep canonically correlated autoencoder variant.
	DCCAE Method = "DCCAE"
	// DVCCA is the deep variational canonical correlation variant.
	DVCCA Method = "DVCCA"
)

// Arch selects the per-view encoder and decoder family.
type Arch string

// ArchMLP is the fully connected architecture; the only family currently built.
const ArchMLP Arch = "mlp"

// LossType selects the latent objective of the DCCAE variant.
type LossType string

const (
	// LossCCA penalises low per-dimension correlation of the two latent codes.
	LossCCA LossType = "cca"
	// LossDistance penalises the squared distance of the two latent codes.
	LossDistance LossType = "distance"
)

var (
	// ErrMethod signals an unsupported model variant.
	ErrMethod = errors.New("unsupported method")
	// ErrLossType signals an unsupported latent objective.
	ErrLossType = errors.New("unsupported loss type")
	// ErrArch signals an unsupported architecture family.
	ErrArch = errors.New("unsupported architecture")
	// ErrNoEncoder signals an encode request on a view without an encoder.
	ErrNoEncoder = errors.New("no encoder for view")
	// ErrNoDecoder signals a decode request on a view without a decoder.
	ErrNoDecoder = errors.New("no decoder for view")
)

// Config carries the construction parameters shared by all model variants.
type Config struct {
	Inputs1      int
	Inputs2      int
	LatentDims   int
	LearningRate float64
	LossType     LossType
	Lam          float64
	Private      bool
	BothEncoders bool
	Hidden1      []int
	Hidden2      []int
	// Arch1 and Arch2 select the per-view architecture family; empty means mlp.
	Arch1 Arch
	Arch2 Arch
	Seed  int64
}

func checkArch(archs ...Arch) error {
	for _, a := range archs {
		switch a {
		case "", ArchMLP:
		default:
			return fmt.Errorf("%w: %s", ErrArch, a)
		}
	}
	return nil
}

// Outputs is the fixed-shape result of one forward pass.
// Latent codes are present at minimum; reconstructions and variational
// parameters depend on the model variant.
type Outputs struct {
	Z1, Z2         *mat.Dense
	Recon1, Recon2 *mat.Dense
	Mu1, LogVar1   *mat.Dense
	Mu2, LogVar2   *mat.Dense
}

// Network is the uniform contract of a trainable two-view model.
// The orchestration core never inspects model internals beyond it.
type Network interface {
	// Forward runs the full forward pass on one aligned batch.
	Forward(x, y mat.Matrix) (Outputs, error)
	// Loss computes the training objective for the given batch and outputs.
	Loss(x, y mat.Matrix, out Outputs) (float64, error)
	// UpdateWeights performs one optimization step and returns the realized loss.
	// This is the only point where gradients are computed and applied.
	UpdateWeights(x, y mat.Matrix) (float64, error)
	// Encode maps a single view (1 or 2) to its latent code.
	Encode(view int, v mat.Matrix) (*mat.Dense, error)
	// Decode maps a latent code back to the given view (1 or 2).
	Decode(view int, z mat.Matrix) (*mat.Dense, error)
	// Snapshot copies the trainable parameters for checkpointing.
	Snapshot() Snapshot
	// Restore loads a parameter snapshot back into the live model.
	Restore(s Snapshot)
	// BothEncoders reports whether both views produce distinct latent codes.
	BothEncoders() bool
	// CanDecode reports whether both views expose reconstruction paths.
	CanDecode() bool
	// Parameters returns the number of trainable parameters.
	Parameters() int
}

// Construct defines a network constructor func.
type Construct func(cfg Config) (Network, error)

var constructors = map[Method]Construct{
	DCCAE: func(cfg Config) (Network, error) { return NewDCCAE(cfg) },
	DVCCA: func(cfg Config) (Network, error) { return NewDVCCA(cfg) },
}

// New builds the network for the given method.
func New(method Method, cfg Config) (Network, error) {
	construct, ok := constructors[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethod, method)
	}
	return construct(cfg)
}

// Snapshot is an opaque copy of a network's trainable parameters.
type Snapshot [][]float64

func takeSnapshot(nets ...*mlp) Snapshot {
	s := make(Snapshot, 0)
	for _, n := range nets {
		if n == nil {
			continue
		}
		for _, l := range n.layers {
			w := l.w.RawMatrix()
			wc := make([]float64, len(w.Data))
			copy(wc, w.Data)
			bc := make([]float64, len(l.b))
			copy(bc, l.b)
			s = append(s, wc, bc)
		}
	}
	return s
}

func restoreSnapshot(s Snapshot, nets ...*mlp) {
	i := 0
	for _, n := range nets {
		if n == nil {
			continue
		}
		for _, l := range n.layers {
			copy(l.w.RawMatrix().Data, s[i])
			copy(l.b, s[i+1])
			i += 2
		}
	}
}
