package deepcca

import (
	"math"
	"math/rand"
	"testing"

	"github.com/drakos74/deep-cca/internal/net"
	"github.com/drakos74/deep-cca/internal/storage"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// views generates two paired views driven by a shared two-dimensional signal
// through fixed random projections, with additive noise.
func views(n, featuresA, featuresB int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))

	wa := mat.NewDense(2, featuresA, nil)
	wb := mat.NewDense(2, featuresB, nil)
	for j := 0; j < featuresA; j++ {
		wa.Set(0, j, rng.NormFloat64())
		wa.Set(1, j, rng.NormFloat64())
	}
	for j := 0; j < featuresB; j++ {
		wb.Set(0, j, rng.NormFloat64())
		wb.Set(1, j, rng.NormFloat64())
	}

	signal := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		signal.Set(i, 0, rng.NormFloat64())
		signal.Set(i, 1, rng.NormFloat64())
	}

	var a, b mat.Dense
	a.Mul(signal, wa)
	b.Mul(signal, wb)
	a.Apply(func(_, _ int, v float64) float64 { return v + 0.1*rng.NormFloat64() }, &a)
	b.Apply(func(_, _ int, v float64) float64 { return v + 0.1*rng.NormFloat64() }, &b)
	return &a, &b
}

func fitConfig(method net.Method) Config {
	cfg := NewConfig()
	cfg.Method = method
	cfg.Epochs = 5
	cfg.Lam = 0.1
	cfg.Hidden1 = []int{16}
	cfg.Hidden2 = []int{16}
	cfg.Seed = 1
	return cfg
}

func TestConfig_Validation(t *testing.T) {
	type test struct {
		mutate func(cfg *Config)
	}

	tests := map[string]test{
		"latent-dims": {
			mutate: func(cfg *Config) { cfg.LatentDims = 0 },
		},
		"learning-rate": {
			mutate: func(cfg *Config) { cfg.LearningRate = -1 },
		},
		"epochs": {
			mutate: func(cfg *Config) { cfg.Epochs = 0 },
		},
		"batch-size": {
			mutate: func(cfg *Config) { cfg.BatchSize = 0 },
		},
		"patience": {
			mutate: func(cfg *Config) { cfg.Patience = 0 },
		},
		"method": {
			mutate: func(cfg *Config) { cfg.Method = "DGCCA" },
		},
		"loss-type": {
			mutate: func(cfg *Config) { cfg.LossType = "gcca" },
		},
		"architecture": {
			mutate: func(cfg *Config) { cfg.Arch1 = "cnn" },
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestWrapper_EvaluateBeforeFit(t *testing.T) {
	wrapper, err := New(NewConfig())
	assert.NoError(t, err)

	a, b := views(20, 4, 3, 1)

	_, err = wrapper.PredictCorr(a, b)
	assert.ErrorIs(t, err, ErrUsageSequence)

	_, _, err = wrapper.TransformView(a, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, _, err = wrapper.PredictView(a, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, _, err = wrapper.ReconLoss(a, b)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestWrapper_FitAndEvaluate(t *testing.T) {
	a, b := views(150, 10, 10, 1)
	train := func(m *mat.Dense) *mat.Dense {
		_, c := m.Dims()
		return mat.DenseCopyOf(m.Slice(0, 100, 0, c))
	}
	test := func(m *mat.Dense) *mat.Dense {
		r, c := m.Dims()
		return mat.DenseCopyOf(m.Slice(100, r, 0, c))
	}

	wrapper, err := New(fitConfig(net.DCCAE))
	assert.NoError(t, err)
	_, err = wrapper.Fit(train(a), train(b))
	assert.NoError(t, err)

	assert.NotEmpty(t, wrapper.Run())
	state := wrapper.State()
	assert.NotEmpty(t, state.TrainLoss)
	assert.Equal(t, len(state.TrainLoss), len(state.ValLoss))
	assert.False(t, math.IsInf(state.BestLoss, 1))

	trainCorr := wrapper.TrainCorrelations()
	assert.Len(t, trainCorr, 2)

	corr, err := wrapper.PredictCorr(test(a), test(b))
	assert.NoError(t, err)
	assert.Len(t, corr, 2)
	for _, c := range corr {
		assert.GreaterOrEqual(t, c, -1.0)
		assert.LessOrEqual(t, c, 1.0)
	}

	za, zb, err := wrapper.TransformView(test(a), nil)
	assert.NoError(t, err)
	assert.Nil(t, zb)
	rows, cols := za.Dims()
	assert.Equal(t, 50, rows)
	assert.Equal(t, 2, cols)
	for j := 0; j < cols; j++ {
		norm := 0.0
		for i := 0; i < rows; i++ {
			norm += za.At(i, j) * za.At(i, j)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
	}

	predA, predB, err := wrapper.PredictView(test(a), nil)
	assert.NoError(t, err)
	assert.True(t, mat.Equal(test(a), predA))
	_, c := predB.Dims()
	assert.Equal(t, 10, c)

	lossA, lossB, err := wrapper.ReconLoss(test(a), test(b))
	assert.NoError(t, err)
	assert.Greater(t, lossA, 0.0)
	assert.Greater(t, lossB, 0.0)
}

func TestWrapper_FitIsReproducible(t *testing.T) {
	a, b := views(100, 6, 5, 7)

	first, err := New(fitConfig(net.DCCAE))
	assert.NoError(t, err)
	_, err = first.Fit(a, b)
	assert.NoError(t, err)

	second, err := New(fitConfig(net.DCCAE))
	assert.NoError(t, err)
	_, err = second.Fit(a, b)
	assert.NoError(t, err)

	assert.Equal(t, first.State().TrainLoss, second.State().TrainLoss)
	assert.Equal(t, first.State().ValLoss, second.State().ValLoss)
	assert.Equal(t, first.TrainCorrelations(), second.TrainCorrelations())
}

func TestWrapper_SingleEncoderHasNoCorrelation(t *testing.T) {
	cfg := fitConfig(net.DVCCA)
	cfg.BothEncoders = false

	wrapper, err := New(cfg)
	assert.NoError(t, err)

	a, b := views(100, 6, 5, 2)
	_, err = wrapper.Fit(a, b)
	assert.NoError(t, err)

	assert.Nil(t, wrapper.TrainCorrelations())
	_, err = wrapper.PredictCorr(a, b)
	assert.ErrorIs(t, err, ErrNotApplicable)

	// reconstruction still works off the single encoder
	lossA, lossB, err := wrapper.ReconLoss(a, b)
	assert.NoError(t, err)
	assert.Greater(t, lossA, 0.0)
	assert.Greater(t, lossB, 0.0)
}

func TestWrapper_UnsatisfiableBatchSize(t *testing.T) {
	cfg := fitConfig(net.DCCAE)
	cfg.BatchSize = 10

	wrapper, err := New(cfg)
	assert.NoError(t, err)

	// a full batch leaves no trailing samples for the correlation loss
	// and no larger size fits the sample count
	a, b := views(10, 4, 3, 1)
	_, err = wrapper.Fit(a, b)
	assert.ErrorIs(t, err, ErrConfiguration)
}

// captureStore records the last persisted report.
type captureStore struct {
	key   storage.Key
	value interface{}
}

func (c *captureStore) Store(k storage.Key, value interface{}) error {
	c.key = k
	c.value = value
	return nil
}

func (c *captureStore) Load(k storage.Key, value interface{}) error {
	return storage.NotFoundErr
}

func TestWrapper_PersistsTrainingReport(t *testing.T) {
	store := &captureStore{}
	cfg := fitConfig(net.DCCAE)
	cfg.Store = store

	wrapper, err := New(cfg)
	assert.NoError(t, err)

	a, b := views(100, 6, 5, 4)
	_, err = wrapper.Fit(a, b)
	assert.NoError(t, err)

	assert.Equal(t, wrapper.Run(), store.key.Run)
	assert.Equal(t, string(net.DCCAE), store.key.Method)

	report, ok := store.value.(Report)
	assert.True(t, ok)
	assert.Equal(t, wrapper.Run(), report.Run)
	assert.Equal(t, wrapper.State().TrainLoss, report.TrainLoss)
	assert.Equal(t, wrapper.TrainCorrelations(), report.Correlations)
	assert.NotZero(t, report.BatchSize)
}
