package metrics

import "github.com/prometheus/client_golang/prometheus"

type Prometheus struct {
	Loss       *prometheus.GaugeVec
	Epochs     prometheus.Counter
	Duration   *prometheus.HistogramVec
	Failures   *prometheus.CounterVec
	Scores     *prometheus.GaugeVec
	Partitions *prometheus.CounterVec
}

func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		Loss: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "vae",
				Name:      "loss",
				Help:      "loss of the last completed epoch",
			}, []string{"split"}),
		Epochs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vae",
				Name:      "epochs_total",
				Help:      "completed training epochs",
			}),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cluster",
				Name:      "fit_seconds",
				Help:      "duration of a clustering fit",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			}, []string{"algorithm"}),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cluster",
				Name:      "failures_total",
				Help:      "failed clustering fits",
			}, []string{"algorithm"}),
		Scores: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "cluster",
				Name:      "score",
				Help:      "quality score of the last partition",
			}, []string{"algorithm", "metric"}),
		Partitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cluster",
				Name:      "partitions_total",
				Help:      "produced partitions",
			}, []string{"algorithm"}),
	}
}

func (p Prometheus) collectors() []prometheus.Collector {
	return []prometheus.Collector{p.Loss, p.Epochs, p.Duration, p.Failures, p.Scores, p.Partitions}
}
