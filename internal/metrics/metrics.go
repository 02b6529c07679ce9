package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var Observer = &Metrics{
	mutex:      new(sync.RWMutex),
	prometheus: NewPrometheusMetrics(),
}

func init() {
	prometheus.MustRegister(Observer.prometheus.Epochs)
	prometheus.MustRegister(Observer.prometheus.EarlyStops)
	prometheus.MustRegister(Observer.prometheus.Loss)
}

type Metrics struct {
	mutex      *sync.RWMutex
	prometheus Prometheus
}

// IncrementEpochs counts one finished training epoch for the given method.
func (m *Metrics) IncrementEpochs(labels ...string) {
	m.prometheus.Epochs.WithLabelValues(labels...).Inc()
}

// IncrementEarlyStops counts one early-stop transition for the given method.
func (m *Metrics) IncrementEarlyStops(labels ...string) {
	m.prometheus.EarlyStops.WithLabelValues(labels...).Inc()
}

// TrackLoss exposes the latest epoch loss for the given method and stage.
func (m *Metrics) TrackLoss(loss float64, labels ...string) {
	m.prometheus.Loss.WithLabelValues(labels...).Set(loss)
}
