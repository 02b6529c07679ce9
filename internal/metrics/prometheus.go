package metrics

import "github.com/prometheus/client_golang/prometheus"

type Prometheus struct {
	Epochs     *prometheus.CounterVec
	EarlyStops *prometheus.CounterVec
	Loss       *prometheus.GaugeVec
}

func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		Epochs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cca",
				Name:      "epochs",
			}, []string{"method"}),
		EarlyStops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cca",
				Name:      "early_stops",
			}, []string{"method"}),
		Loss: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "cca",
				Name:      "loss",
			}, []string{"method", "stage"}),
	}
}
