package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultPartial = "partial"
	resultFailure = "failure"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskdash_pipeline_runs_total",
		Help: "Total pipeline runs by result",
	}, []string{"result"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riskdash_pipeline_duration_seconds",
		Help:    "Pipeline run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	zeroFilled = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riskdash_zero_filled_features",
		Help:    "Number of schema features zero-filled per run",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})

	predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskdash_predictions_total",
		Help: "Total predicted rows by risk label",
	}, []string{"label"})
)
