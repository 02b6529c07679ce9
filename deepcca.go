// Package deepcca trains and evaluates multi-view representation models that
// map two paired data views into a shared latent space maximizing cross-view
// correlation, with optional reconstruction of each view from the latent code.
//
// The Wrapper aligns roughly with a linear CCA wrapper:
// Fit trains the model and stores the state needed for out-of-sample queries,
// PredictCorr reports out-of-sample correlations, TransformView maps views to
// the latent space, PredictView reconstructs missing views and ReconLoss
// reports the out-of-sample reconstruction error.
package deepcca

import (
	"errors"
	"fmt"

	"github.com/drakos74/deep-cca/internal/data"
	"github.com/drakos74/deep-cca/internal/eval"
	viewmath "github.com/drakos74/deep-cca/internal/math"
	"github.com/drakos74/deep-cca/internal/net"
	"github.com/drakos74/deep-cca/internal/storage"
	"github.com/drakos74/deep-cca/internal/train"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Config defines the construction options of a Wrapper.
// The zero value of optional fields defers to the defaults of NewConfig.
type Config struct {
	// LatentDims is the dimensionality of the shared latent space.
	LatentDims int
	// LearningRate is the SGD step size forwarded to the model.
	LearningRate float64
	// Epochs is the training budget.
	Epochs int
	// BatchSize is the requested batch size, pre-adjustment.
	BatchSize int
	// Method selects the model variant.
	Method net.Method
	// LossType is the latent objective, forwarded to the model.
	LossType net.LossType
	// Lam is the reconstruction regularization weight, forwarded to the model.
	Lam float64
	// Private enables the model-specific private-latent branch.
	Private bool
	// Patience is the early-stop window.
	Patience int
	// BothEncoders gives both views independent encoders.
	BothEncoders bool
	// Hidden1 and Hidden2 are the per-view hidden-layer sizes.
	Hidden1 []int
	Hidden2 []int
	// Arch1 and Arch2 select the per-view architecture family; empty means mlp.
	Arch1 net.Arch
	Arch2 net.Arch
	// Seed makes partitioning and weight init reproducible; 0 defers to the clock.
	Seed int64
	// Store receives per-fit training reports; nil discards them.
	Store storage.Persistence
}

// NewConfig creates a config with the default construction options.
func NewConfig() Config {
	return Config{
		LatentDims:   2,
		LearningRate: 1e-3,
		Epochs:       1,
		BatchSize:    16,
		Method:       net.DCCAE,
		LossType:     net.LossCCA,
		Patience:     10,
		BothEncoders: true,
	}
}

func (cfg Config) validate() error {
	if cfg.LatentDims < 1 {
		return fmt.Errorf("latent dims %d must be positive: %w", cfg.LatentDims, ErrConfiguration)
	}
	if cfg.LearningRate <= 0 {
		return fmt.Errorf("learning rate %f must be positive: %w", cfg.LearningRate, ErrConfiguration)
	}
	if cfg.Epochs < 1 {
		return fmt.Errorf("epochs %d must be positive: %w", cfg.Epochs, ErrConfiguration)
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("batch size %d must be positive: %w", cfg.BatchSize, ErrConfiguration)
	}
	if cfg.Patience < 1 {
		return fmt.Errorf("patience %d must be positive: %w", cfg.Patience, ErrConfiguration)
	}
	switch cfg.Method {
	case net.DCCAE, net.DVCCA:
	default:
		return fmt.Errorf("method '%s': %w", cfg.Method, ErrConfiguration)
	}
	switch cfg.LossType {
	case net.LossCCA, net.LossDistance:
	default:
		return fmt.Errorf("loss type '%s': %w", cfg.LossType, ErrConfiguration)
	}
	for _, arch := range []net.Arch{cfg.Arch1, cfg.Arch2} {
		switch arch {
		case "", net.ArchMLP:
		default:
			return fmt.Errorf("architecture '%s': %w", arch, ErrConfiguration)
		}
	}
	return nil
}

// Wrapper owns the training orchestration and the fitted evaluation state of
// one multi-view model. It is not safe for concurrent use: one fit or evaluate
// call must run to completion before another may reuse the same instance.
type Wrapper struct {
	cfg   Config
	run   string
	store storage.Persistence

	network     net.Network
	means       [][]float64
	batch       int
	state       train.State
	correlator  *eval.Correlator
	transformer *eval.Transformer
	trainCorr   []float64
	fitted      bool
}

// New creates an unfitted wrapper; configuration errors surface immediately,
// before any compute begins.
func New(cfg Config) (*Wrapper, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	store := cfg.Store
	if store == nil {
		store = storage.NewVoidStorage()
	}
	return &Wrapper{
		cfg:   cfg,
		run:   uuid.New().String(),
		store: store,
	}, nil
}

// Fit trains the model variant on the two row-aligned views.
// It partitions and centers the data, drives the epoch loop with early
// stopping and, for variants with per-view latents, fits the canonical
// correlation alignment on the training latents.
func (w *Wrapper) Fit(a, b *mat.Dense) (*Wrapper, error) {
	part, err := data.Split(w.cfg.Seed, w.cfg.BatchSize, w.cfg.LatentDims, a, b)
	if err != nil {
		return nil, fmt.Errorf("could not partition views: %v: %w", err, ErrConfiguration)
	}

	_, in1 := a.Dims()
	_, in2 := b.Dims()
	network, err := net.New(w.cfg.Method, net.Config{
		Inputs1:      in1,
		Inputs2:      in2,
		LatentDims:   w.cfg.LatentDims,
		LearningRate: w.cfg.LearningRate,
		LossType:     w.cfg.LossType,
		Lam:          w.cfg.Lam,
		Private:      w.cfg.Private,
		BothEncoders: w.cfg.BothEncoders,
		Hidden1:      w.cfg.Hidden1,
		Hidden2:      w.cfg.Hidden2,
		Arch1:        w.cfg.Arch1,
		Arch2:        w.cfg.Arch2,
		Seed:         w.cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("could not build network: %v: %w", err, ErrConfiguration)
	}

	log.Info().
		Str("run", w.run).
		Str("method", string(w.cfg.Method)).
		Int("parameters", network.Parameters()).
		Int("batch-size", part.BatchSize).
		Int("train", len(part.TrainIdx)).
		Int("validation", len(part.ValIdx)).
		Msg("fit model")

	loop := train.Loop{
		Method:   w.cfg.Method,
		Epochs:   w.cfg.Epochs,
		Patience: w.cfg.Patience,
	}
	state, err := loop.Run(network,
		data.NewBatches(part.BatchSize, part.Train...),
		data.NewBatches(part.BatchSize, part.Val...))
	if err != nil {
		return nil, fmt.Errorf("training failed: %v: %w", err, ErrCompute)
	}

	w.network = network
	w.means = part.Means
	w.batch = part.BatchSize
	w.state = state
	w.correlator = eval.NewCorrelator(w.cfg.LatentDims, part.BatchSize)
	w.transformer = eval.NewTransformer(network, part.Means)
	w.trainCorr = nil
	w.fitted = true

	if network.BothEncoders() {
		corr, err := w.correlator.Fit(network, part.Train[0], part.Train[1])
		if err != nil {
			return nil, fmt.Errorf("could not fit alignment: %v: %w", err, ErrCompute)
		}
		w.trainCorr = corr
	} else {
		log.Warn().Str("run", w.run).Msg("no correlation alignment for single encoding")
	}

	w.saveReport()
	return w, nil
}

// PredictCorr reports the out-of-sample per-dimension correlation of the two
// views, projected through the alignment fitted on the training latents.
func (w *Wrapper) PredictCorr(a, b *mat.Dense) ([]float64, error) {
	if !w.fitted {
		return nil, fmt.Errorf("predict before fit: %w", ErrUsageSequence)
	}
	corr, err := w.correlator.Apply(w.network,
		viewmath.Center(a, w.means[0]),
		viewmath.Center(b, w.means[1]))
	if err != nil {
		if errors.Is(err, eval.ErrNotApplicable) {
			return nil, fmt.Errorf("%v: %w", err, ErrNotApplicable)
		}
		if errors.Is(err, eval.ErrNotFitted) {
			return nil, fmt.Errorf("%v: %w", err, ErrUsageSequence)
		}
		return nil, fmt.Errorf("%v: %w", err, ErrCompute)
	}
	return corr, nil
}

// TransformView maps the supplied views to the latent space.
// Either view may be nil; omitted views yield a nil latent.
func (w *Wrapper) TransformView(a, b *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	if !w.fitted {
		return nil, nil, fmt.Errorf("no centering state, transform before fit: %w", ErrConfiguration)
	}
	za, zb, err := w.transformer.Transform(a, b)
	if err != nil {
		if errors.Is(err, eval.ErrNoViews) {
			return nil, nil, fmt.Errorf("%v: %w", err, ErrUsageSequence)
		}
		return nil, nil, fmt.Errorf("%v: %w", err, ErrCompute)
	}
	return za, zb, nil
}

// PredictView reconstructs the missing view by decoding the supplied view's
// latent code through the other view's decoder.
func (w *Wrapper) PredictView(a, b *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	if !w.fitted {
		return nil, nil, fmt.Errorf("no centering state, predict before fit: %w", ErrConfiguration)
	}
	predA, predB, err := w.transformer.Predict(a, b)
	if err != nil {
		if errors.Is(err, eval.ErrNoDecoder) {
			return nil, nil, fmt.Errorf("%v: %w", err, ErrConfiguration)
		}
		if errors.Is(err, eval.ErrNoViews) {
			return nil, nil, fmt.Errorf("%v: %w", err, ErrUsageSequence)
		}
		return nil, nil, fmt.Errorf("%v: %w", err, ErrCompute)
	}
	return predA, predB, nil
}

// ReconLoss reports the per-view reconstruction error of out-of-sample data.
func (w *Wrapper) ReconLoss(a, b *mat.Dense) (float64, float64, error) {
	if !w.fitted {
		return 0, 0, fmt.Errorf("no centering state, recon loss before fit: %w", ErrConfiguration)
	}
	lossA, lossB, err := w.transformer.ReconLoss(a, b)
	if err != nil {
		if errors.Is(err, eval.ErrNoDecoder) {
			return 0, 0, fmt.Errorf("%v: %w", err, ErrNotApplicable)
		}
		return 0, 0, fmt.Errorf("%v: %w", err, ErrCompute)
	}
	return lossA, lossB, nil
}

// TrainCorrelations returns the per-dimension correlations of the training
// set, cached at fit time. Nil for single-encoding variants.
func (w *Wrapper) TrainCorrelations() []float64 {
	return w.trainCorr
}

// State returns the training state of the last fit call.
func (w *Wrapper) State() train.State {
	return w.state
}

// Run returns the identifier of this wrapper's fit run.
func (w *Wrapper) Run() string {
	return w.run
}
