package train

import (
	"errors"
	"math"
	"testing"

	"github.com/drakos74/deep-cca/internal/data"
	"github.com/drakos74/deep-cca/internal/net"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var errBroken = errors.New("broken update")

// stubNetwork scripts the per-epoch validation losses and versions its
// parameters so checkpoint restores can be asserted exactly.
type stubNetwork struct {
	valLosses []float64
	valIdx    int
	version   int
	restores  int
	failAt    int
}

func (s *stubNetwork) Forward(x, y mat.Matrix) (net.Outputs, error) {
	return net.Outputs{}, nil
}

func (s *stubNetwork) Loss(x, y mat.Matrix, out net.Outputs) (float64, error) {
	loss := s.valLosses[s.valIdx]
	s.valIdx++
	return loss, nil
}

func (s *stubNetwork) UpdateWeights(x, y mat.Matrix) (float64, error) {
	if s.failAt > 0 && s.version+1 == s.failAt {
		return 0, errBroken
	}
	s.version++
	return 1, nil
}

func (s *stubNetwork) Encode(view int, v mat.Matrix) (*mat.Dense, error) {
	return nil, nil
}

func (s *stubNetwork) Decode(view int, z mat.Matrix) (*mat.Dense, error) {
	return nil, nil
}

func (s *stubNetwork) Snapshot() net.Snapshot {
	return net.Snapshot{{float64(s.version)}}
}

func (s *stubNetwork) Restore(snap net.Snapshot) {
	s.version = int(snap[0][0])
	s.restores++
}

func (s *stubNetwork) BothEncoders() bool { return true }
func (s *stubNetwork) CanDecode() bool    { return true }
func (s *stubNetwork) Parameters() int    { return 1 }

// singleBatch keeps one update and one validation pass per epoch,
// so scripted losses line up with epochs one to one.
func singleBatch() (*data.Batches, *data.Batches) {
	x := mat.NewDense(4, 2, nil)
	y := mat.NewDense(4, 2, nil)
	return data.NewBatches(4, x, y), data.NewBatches(4, x, y)
}

func TestState_Observe(t *testing.T) {
	state := NewState(nil)
	assert.True(t, math.IsInf(state.BestLoss, 1))

	// any finite first loss improves on the +Inf start
	assert.True(t, state.Observe(1e9, 2))
	assert.Equal(t, Running, state.Status)

	// equal loss is not an improvement
	assert.False(t, state.Observe(1e9, 2))
	assert.Equal(t, 1, state.NoImprove)
	assert.Equal(t, Running, state.Status)

	assert.False(t, state.Observe(1e10, 2))
	assert.Equal(t, EarlyStopped, state.Status)
}

func TestLoop_EarlyStopRestoresBest(t *testing.T) {
	network := &stubNetwork{
		// improvements at epochs 0 and 1, stall afterwards
		valLosses: []float64{5, 4, 4, 4.5, 4, 4, 4},
	}
	train, val := singleBatch()

	state, err := Loop{Method: net.DCCAE, Epochs: 10, Patience: 3}.Run(network, train, val)
	assert.NoError(t, err)

	assert.Equal(t, EarlyStopped, state.Status)
	// stall window closes patience epochs after the last improvement
	assert.Equal(t, 4, state.Epoch)
	assert.Equal(t, 4.0, state.BestLoss)
	assert.Equal(t, []float64{5, 4, 4, 4.5, 4}, state.ValLoss)

	// the live model is the snapshot taken at the last improving epoch
	assert.Equal(t, 1, network.restores)
	assert.Equal(t, 2, network.version)
}

func TestLoop_ConvergedKeepsLastParameters(t *testing.T) {
	network := &stubNetwork{
		valLosses: []float64{5, 3, 4, 4},
	}
	train, val := singleBatch()

	state, err := Loop{Method: net.DCCAE, Epochs: 4, Patience: 10}.Run(network, train, val)
	assert.NoError(t, err)

	assert.Equal(t, Converged, state.Status)
	assert.Equal(t, 3, state.Epoch)
	assert.Equal(t, 3.0, state.BestLoss)

	// exhausting the budget does not roll back to the best checkpoint
	assert.Equal(t, 0, network.restores)
	assert.Equal(t, 4, network.version)
	assert.Equal(t, net.Snapshot{{2}}, state.Best)
}

func TestLoop_PropagatesComputeError(t *testing.T) {
	network := &stubNetwork{
		valLosses: []float64{5, 4},
		failAt:    2,
	}
	train, val := singleBatch()

	state, err := Loop{Method: net.DCCAE, Epochs: 5, Patience: 10}.Run(network, train, val)
	assert.ErrorIs(t, err, errBroken)
	assert.Contains(t, err.Error(), "train epoch 1")
	assert.Equal(t, Running, state.Status)
	assert.Equal(t, []float64{5}, state.ValLoss)
}

func TestLoop_SingleEpoch(t *testing.T) {
	network := &stubNetwork{valLosses: []float64{7}}
	train, val := singleBatch()

	state, err := Loop{Method: net.DVCCA, Epochs: 1, Patience: 10}.Run(network, train, val)
	assert.NoError(t, err)
	assert.Equal(t, Converged, state.Status)
	assert.Equal(t, 7.0, state.BestLoss)
	assert.Equal(t, []float64{1}, state.TrainLoss)
}
