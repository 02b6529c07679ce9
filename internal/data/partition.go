package data

import (
	"errors"
	"fmt"
	gomath "math"
	"math/rand"
	"time"

	viewmath "github.com/drakos74/deep-cca/internal/math"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// trainRatio is the fraction of samples assigned to the training split.
const trainRatio = 0.8

var (
	// ErrBatchSize signals that no batch size satisfies the latent dimension constraint.
	ErrBatchSize = errors.New("unsatisfiable batch size")
	// ErrViews signals an invalid multi-view input.
	ErrViews = errors.New("invalid views")
)

// Partition is an immutable train/validation split of row-aligned views.
// Both splits are centered with the train-subset column means,
// so that validation rows never leak into the centering state.
type Partition struct {
	TrainIdx  []int
	ValIdx    []int
	Means     [][]float64
	Train     []*mat.Dense
	Val       []*mat.Dense
	BatchSize int
}

// Split shuffles and partitions the given row-aligned views and derives
// the effective batch size for batch-wise correlation losses.
// A zero seed defers to the wall clock.
func Split(seed int64, batchSize, latentDims int, views ...*mat.Dense) (*Partition, error) {
	if len(views) < 2 {
		return nil, fmt.Errorf("need at least 2 views, got %d: %w", len(views), ErrViews)
	}
	subjects, _ := views[0].Dims()
	for i, v := range views {
		r, _ := v.Dims()
		if r != subjects {
			return nil, fmt.Errorf("view %d has %d rows, expected %d: %w", i, r, subjects, ErrViews)
		}
	}
	if subjects < 2 {
		return nil, fmt.Errorf("need at least 2 samples, got %d: %w", subjects, ErrViews)
	}

	size, err := effectiveBatchSize(subjects, batchSize, latentDims)
	if err != nil {
		return nil, err
	}
	if size != batchSize {
		log.Warn().
			Int("requested", batchSize).
			Int("effective", size).
			Int("latent-dims", latentDims).
			Msg("adjusted batch size for correlation loss")
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(subjects)
	cut := int(gomath.Round(trainRatio * float64(subjects)))
	trainIdx := perm[:cut]
	valIdx := perm[cut:]

	means := make([][]float64, len(views))
	train := make([]*mat.Dense, len(views))
	val := make([]*mat.Dense, len(views))
	for i, v := range views {
		trainRows := viewmath.Rows(v, trainIdx)
		valRows := viewmath.Rows(v, valIdx)
		// center both splits with the train-only mean
		means[i] = viewmath.ColMeans(trainRows)
		train[i] = viewmath.Center(trainRows, means[i])
		val[i] = viewmath.Center(valRows, means[i])
	}

	return &Partition{
		TrainIdx:  trainIdx,
		ValIdx:    valIdx,
		Means:     means,
		Train:     train,
		Val:       val,
		BatchSize: size,
	}, nil
}

// effectiveBatchSize bumps the requested batch size until the trailing partial batch
// holds at least latentDims samples.
func effectiveBatchSize(subjects, batchSize, latentDims int) (int, error) {
	if batchSize < 1 {
		return 0, fmt.Errorf("batch size %d must be positive: %w", batchSize, ErrBatchSize)
	}
	size := batchSize
	for subjects%size < latentDims {
		size++
		if size > subjects {
			return 0, fmt.Errorf("no batch size >= %d fits %d samples with %d latent dims: %w",
				batchSize, subjects, latentDims, ErrBatchSize)
		}
	}
	return size, nil
}
