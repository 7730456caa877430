package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var Observer = &Metrics{
	prometheus: NewPrometheusMetrics(),
}

func init() {
	prometheus.MustRegister(Observer.prometheus.collectors()...)
}

type Metrics struct {
	prometheus Prometheus
}

// TrainingLoss records the loss of the last epoch for the given split.
func (m *Metrics) TrainingLoss(split string, loss float64) {
	m.prometheus.Loss.WithLabelValues(split).Set(loss)
}

// EpochDone counts a completed epoch.
func (m *Metrics) EpochDone() {
	m.prometheus.Epochs.Inc()
}

// Fit records the outcome of a clustering fit.
func (m *Metrics) Fit(algorithm string, duration time.Duration, err error) {
	m.prometheus.Duration.WithLabelValues(algorithm).Observe(duration.Seconds())
	if err != nil {
		m.prometheus.Failures.WithLabelValues(algorithm).Inc()
		return
	}
	m.prometheus.Partitions.WithLabelValues(algorithm).Inc()
}

// Score records a quality metric for the partition of the given algorithm.
func (m *Metrics) Score(algorithm, metric string, value float64) {
	m.prometheus.Scores.WithLabelValues(algorithm, metric).Set(value)
}
