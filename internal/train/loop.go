package train

import (
	"fmt"
	"math"

	"github.com/drakos74/deep-cca/internal/buffer"
	"github.com/drakos74/deep-cca/internal/data"
	"github.com/drakos74/deep-cca/internal/metrics"
	"github.com/drakos74/deep-cca/internal/net"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Status is the state of the training loop.
type Status string

const (
	// Running means the loop is still consuming epochs.
	Running Status = "running"
	// Converged means the epoch budget was exhausted without an early stop.
	// The live parameters are whatever the last epoch produced.
	Converged Status = "converged"
	// EarlyStopped means validation loss stalled for the patience window.
	// The best snapshot has been restored into the live model.
	EarlyStopped Status = "early-stopped"
)

// State carries the mutable training state through one fit call.
// It is a plain value so the stopping logic can be tested without a live model.
type State struct {
	Status    Status
	Epoch     int
	TrainLoss []float64
	ValLoss   []float64
	BestLoss  float64
	Best      net.Snapshot
	NoImprove int
}

// NewState seeds the state with the given parameter snapshot.
// Best loss starts at +Inf so that any first epoch qualifies as an improvement.
func NewState(initial net.Snapshot) State {
	return State{
		Status:    Running,
		BestLoss:  math.Inf(1),
		Best:      initial,
		TrainLoss: make([]float64, 0),
		ValLoss:   make([]float64, 0),
	}
}

// Observe folds one epoch's validation loss into the state.
// It returns true when the epoch strictly improved on the best seen loss,
// in which case the caller should snapshot the model.
func (s *State) Observe(valLoss float64, patience int) bool {
	if valLoss < s.BestLoss {
		s.BestLoss = valLoss
		s.NoImprove = 0
		return true
	}
	s.NoImprove++
	if s.NoImprove == patience {
		s.Status = EarlyStopped
	}
	return false
}

// Loop drives epoch-wise optimization with early stopping
// and best-checkpoint retention.
type Loop struct {
	Method   net.Method
	Epochs   int
	Patience int
}

// Run trains the network on the train batches, validating per epoch,
// until the epoch budget is exhausted or the validation loss stalls.
// Any per-batch failure aborts the fit without retries.
func (l Loop) Run(network net.Network, train, val *data.Batches) (State, error) {
	state := NewState(network.Snapshot())
	history := buffer.NewStatsCollector(2)

	for epoch := 0; epoch < l.Epochs; epoch++ {
		if state.Status != Running {
			break
		}
		state.Epoch = epoch

		trainLoss, err := l.trainEpoch(network, train)
		if err != nil {
			return state, fmt.Errorf("train epoch %d: %w", epoch, err)
		}
		valLoss, err := l.valEpoch(network, val)
		if err != nil {
			return state, fmt.Errorf("validation epoch %d: %w", epoch, err)
		}
		state.TrainLoss = append(state.TrainLoss, trainLoss)
		state.ValLoss = append(state.ValLoss, valLoss)
		history.Push(trainLoss, valLoss)

		log.Info().
			Int("epoch", epoch).
			Float64("train-loss", trainLoss).
			Float64("val-loss", valLoss).
			Msg("epoch done")

		if state.Observe(valLoss, l.Patience) {
			state.Best = network.Snapshot()
			log.Info().
				Int("epoch", epoch).
				Float64("min-loss", state.BestLoss).
				Msg("new best checkpoint")
		} else if state.Status == EarlyStopped {
			network.Restore(state.Best)
			log.Info().
				Int("epoch", epoch).
				Int("patience", l.Patience).
				Float64("min-loss", state.BestLoss).
				Msg("early stopping")
			metrics.Observer.IncrementEarlyStops(string(l.Method))
		}

		metrics.Observer.IncrementEpochs(string(l.Method))
		metrics.Observer.TrackLoss(trainLoss, string(l.Method), "train")
		metrics.Observer.TrackLoss(valLoss, string(l.Method), "validation")
	}

	// a full epoch budget exits with the live parameters of the last epoch,
	// the best snapshot is only restored on the early-stop path
	if state.Status == Running {
		state.Status = Converged
	}
	if history.Size() > 0 {
		stats := history.Stats()
		log.Info().
			Str("status", string(state.Status)).
			Int("epochs", history.Size()).
			Float64("avg-train-loss", stats[0].Avg()).
			Float64("avg-val-loss", stats[1].Avg()).
			Float64("min-val-loss", stats[1].Min()).
			Msg("training done")
	}
	return state, nil
}

func (l Loop) trainEpoch(network net.Network, batches *data.Batches) (float64, error) {
	losses := buffer.NewStats()
	err := batches.Scan(func(batch []mat.Matrix) error {
		loss, err := network.UpdateWeights(batch[0], batch[1])
		if err != nil {
			return err
		}
		losses.Push(loss)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return losses.Avg(), nil
}

// valEpoch runs the validation split forward-only, without weight updates.
func (l Loop) valEpoch(network net.Network, batches *data.Batches) (float64, error) {
	losses := buffer.NewStats()
	err := batches.Scan(func(batch []mat.Matrix) error {
		out, err := network.Forward(batch[0], batch[1])
		if err != nil {
			return err
		}
		loss, err := network.Loss(batch[0], batch[1], out)
		if err != nil {
			return err
		}
		losses.Push(loss)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return losses.Avg(), nil
}
