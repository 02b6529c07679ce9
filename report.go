package deepcca

import (
	"github.com/drakos74/deep-cca/internal/storage"
	"github.com/rs/zerolog/log"
)

// Report is the persisted summary of one fit run.
type Report struct {
	Run          string    `json:"run"`
	Method       string    `json:"method"`
	Status       string    `json:"status"`
	Epochs       int       `json:"epochs"`
	TrainLoss    []float64 `json:"train_loss"`
	ValLoss      []float64 `json:"val_loss"`
	BestLoss     float64   `json:"best_loss"`
	BatchSize    int       `json:"batch_size"`
	Correlations []float64 `json:"correlations,omitempty"`
}

func (w *Wrapper) reportKey() storage.Key {
	return storage.Key{
		Hash:   w.cfg.Seed,
		Run:    w.run,
		Method: string(w.cfg.Method),
	}
}

// saveReport writes the training report of the last fit call.
// Persistence failures are logged, not propagated; the fitted wrapper stays usable.
func (w *Wrapper) saveReport() {
	report := Report{
		Run:          w.run,
		Method:       string(w.cfg.Method),
		Status:       string(w.state.Status),
		Epochs:       len(w.state.TrainLoss),
		TrainLoss:    w.state.TrainLoss,
		ValLoss:      w.state.ValLoss,
		BestLoss:     w.state.BestLoss,
		BatchSize:    w.batch,
		Correlations: w.trainCorr,
	}
	if err := w.store.Store(w.reportKey(), report); err != nil {
		log.Warn().
			Err(err).
			Str("run", w.run).
			Msg("could not save training report")
	}
}
