package main

import (
	"flag"
	"fmt"
	"math/rand"

	deepcca "github.com/drakos74/deep-cca"
	"github.com/drakos74/deep-cca/infra/config"
	"github.com/drakos74/deep-cca/internal/metrics"
	"github.com/drakos74/deep-cca/internal/net"
	"github.com/drakos74/deep-cca/internal/storage"
	"github.com/drakos74/deep-cca/internal/storage/file"
	"github.com/drakos74/deep-cca/internal/storage/file/json"
	"github.com/drakos74/deep-cca/internal/train"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// settings is the file-loadable part of the demo run.
type settings struct {
	LatentDims   int     `json:"latent_dims"`
	LearningRate float64 `json:"learning_rate"`
	Lam          float64 `json:"lam"`
	Hidden1      []int   `json:"hidden_1"`
	Hidden2      []int   `json:"hidden_2"`
	Patience     int     `json:"patience"`
}

func main() {
	var (
		samples = flag.Int("samples", 500, "number of paired samples")
		epochs  = flag.Int("epochs", 50, "training budget")
		method  = flag.String("method", string(net.DCCAE), "model variant")
		seed    = flag.Int64("seed", 1, "rng seed")
		cfgKey  = flag.String("config", "", "config key under infra/config")
		data    = flag.String("data", "", "dataset file with paired views, empty generates synthetic data")
		persist = flag.Bool("persist", true, "persist the training report to disk")
		serve   = flag.Int("serve", 0, "datasource port, 0 disables serving")
	)
	flag.Parse()

	// hold out one extra batch of rows from the same generative process
	holdout := 100
	allA, allB := loadViews(*data, *samples+holdout, *seed)
	rows, ca := allA.Dims()
	_, cb := allB.Dims()
	if rows <= holdout {
		panic(fmt.Sprintf("need more than %d samples, got %d", holdout, rows))
	}
	cut := rows - holdout
	viewA := mat.DenseCopyOf(allA.Slice(0, cut, 0, ca))
	viewB := mat.DenseCopyOf(allB.Slice(0, cut, 0, cb))
	testA := mat.DenseCopyOf(allA.Slice(cut, rows, 0, ca))
	testB := mat.DenseCopyOf(allB.Slice(cut, rows, 0, cb))

	cfg := deepcca.NewConfig()
	cfg.Method = net.Method(*method)
	cfg.Epochs = *epochs
	cfg.Seed = *seed
	cfg.Lam = 0.1
	cfg.Hidden1 = []int{16}
	cfg.Hidden2 = []int{16}

	shard := storage.VoidShard("deep-cca")
	if *persist {
		shard = json.BlobShard("deep-cca")
	}
	store, err := shard(storage.ReportDir)
	if err != nil {
		panic(fmt.Sprintf("could not create report storage : %+v", err))
	}
	cfg.Store = store

	if *cfgKey != "" {
		var s settings
		config.MustLoad(*cfgKey, &s)
		cfg.LatentDims = s.LatentDims
		cfg.LearningRate = s.LearningRate
		cfg.Lam = s.Lam
		cfg.Hidden1 = s.Hidden1
		cfg.Hidden2 = s.Hidden2
		cfg.Patience = s.Patience
	}

	wrapper, err := deepcca.New(cfg)
	if err != nil {
		panic(fmt.Sprintf("could not create wrapper : %+v", err))
	}
	if _, err := wrapper.Fit(viewA, viewB); err != nil {
		panic(fmt.Sprintf("could not fit model : %+v", err))
	}

	fmt.Printf("run = %s\n", wrapper.Run())
	fmt.Printf("status = %s\n", wrapper.State().Status)
	fmt.Printf("train correlations = %+v\n", wrapper.TrainCorrelations())

	corr, err := wrapper.PredictCorr(testA, testB)
	if err != nil {
		panic(fmt.Sprintf("could not predict correlations : %+v", err))
	}
	fmt.Printf("test correlations = %+v\n", corr)

	lossA, lossB, err := wrapper.ReconLoss(testA, testB)
	if err != nil {
		panic(fmt.Sprintf("could not compute recon loss : %+v", err))
	}
	fmt.Printf("recon loss = %.4f , %.4f\n", lossA, lossB)

	if *serve > 0 {
		serveCurves(wrapper, *method, *serve)
		if err := metrics.Serve(*serve + 1); err != nil {
			panic(fmt.Sprintf("could not serve metrics : %+v", err))
		}
	}
}

// serveCurves exposes the loss and correlation curves of the finished run.
func serveCurves(wrapper *deepcca.Wrapper, method string, port int) {
	state := wrapper.State()
	metrics.NewServer("deep-cca", port).
		Tag("method", func() []string {
			return []string{method}
		}).
		Target("train-loss", func(_ map[string]interface{}) metrics.Series {
			return series("train-loss", state.TrainLoss)
		}).
		Target("val-loss", func(_ map[string]interface{}) metrics.Series {
			return series("val-loss", state.ValLoss)
		}).
		Target("correlations", func(_ map[string]interface{}) metrics.Series {
			return series("correlations", wrapper.TrainCorrelations())
		}).
		Annotations(func(_ string) []metrics.AnnotationInstance {
			if state.Status != train.EarlyStopped {
				return nil
			}
			return []metrics.AnnotationInstance{{
				Title: "early stop",
				Text:  fmt.Sprintf("best loss %.4f", state.BestLoss),
				Time:  int64(state.Epoch),
			}}
		}).
		Run()
}

func series(target string, values []float64) metrics.Series {
	points := make([][]float64, len(values))
	for i, v := range values {
		points[i] = []float64{v, float64(i)}
	}
	return metrics.Series{
		Target:     target,
		DataPoints: points,
	}
}

// loadViews reads the views from the given dataset file,
// or generates synthetic ones when no file is given.
func loadViews(path string, n int, seed int64) (*mat.Dense, *mat.Dense) {
	if path == "" {
		return syntheticViews(n, 10, 8, seed)
	}
	var dataset file.Dataset
	if err := dataset.Load(path); err != nil {
		panic(fmt.Sprintf("could not load dataset : %+v", err))
	}
	a, b, err := dataset.Views()
	if err != nil {
		panic(fmt.Sprintf("could not parse dataset : %+v", err))
	}
	return a, b
}

// syntheticViews builds two linear views of a shared 2-dimensional signal.
func syntheticViews(n, featuresA, featuresB int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))

	shared := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		shared.Set(i, 0, rng.NormFloat64())
		shared.Set(i, 1, rng.NormFloat64())
	}

	project := func(features int) *mat.Dense {
		w := mat.NewDense(2, features, nil)
		for i := 0; i < 2; i++ {
			for j := 0; j < features; j++ {
				w.Set(i, j, rng.NormFloat64())
			}
		}
		var view mat.Dense
		view.Mul(shared, w)
		for i := 0; i < n; i++ {
			for j := 0; j < features; j++ {
				view.Set(i, j, view.At(i, j)+0.1*rng.NormFloat64())
			}
		}
		return &view
	}

	return project(featuresA), project(featuresB)
}
