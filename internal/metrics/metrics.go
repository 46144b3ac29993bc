// Package metrics exposes Prometheus collectors for simulation batches.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "coastretreat_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	realizationsTotal  *prometheus.CounterVec
	realizationLatency prometheus.Histogram
	stormsSimulated    prometheus.Counter
	stormsDetected     prometheus.Gauge
	stageLatency       *prometheus.HistogramVec
	stageTotal         *prometheus.CounterVec
)

// Init registers the collectors with the default registry. It is safe to
// call more than once.
func Init() {
	registerOnce.Do(func() {
		realizationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "realizations_total",
				Help: "Total Monte-Carlo realizations by result",
			},
			[]string{"result"},
		)
		realizationLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "realization_duration_seconds",
				Help:    "Wall time of a single realization in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
		)
		stormsSimulated = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "storms_simulated_total",
				Help: "Total storms sampled across all realizations",
			},
		)
		stormsDetected = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "storms_detected",
				Help: "Storms detected in the wave record of the current run",
			},
		)
		stageTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "pipeline_stage_total",
				Help: "Total pipeline stage executions by stage and result",
			},
			[]string{"stage", "result"},
		)
		stageLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "pipeline_stage_duration_seconds",
				Help:    "Pipeline stage latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		)

		prometheus.MustRegister(
			realizationsTotal,
			realizationLatency,
			stormsSimulated,
			stormsDetected,
			stageTotal,
			stageLatency,
		)
	})
}

func resultLabel(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// BatchObserver feeds realization completions into the collectors.
type BatchObserver struct{}

// RealizationDone records one finished realization.
func (BatchObserver) RealizationDone(elapsed time.Duration, storms int, err error) {
	if realizationsTotal != nil {
		realizationsTotal.WithLabelValues(resultLabel(err)).Inc()
	}
	if realizationLatency != nil {
		realizationLatency.Observe(elapsed.Seconds())
	}
	if stormsSimulated != nil && storms > 0 {
		stormsSimulated.Add(float64(storms))
	}
}

// ObserveStage records the latency and result of a pipeline stage.
func ObserveStage(stage string, duration time.Duration, err error) {
	if stage == "" {
		stage = "unknown"
	}
	if stageTotal != nil {
		stageTotal.WithLabelValues(stage, resultLabel(err)).Inc()
	}
	if stageLatency != nil {
		stageLatency.WithLabelValues(stage).Observe(duration.Seconds())
	}
}

// SetStormsDetected records the size of the detected storm table.
func SetStormsDetected(n int) {
	if stormsDetected != nil {
		stormsDetected.Set(float64(n))
	}
}
