package morphservice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "morphovis_report_duration_seconds",
		Help:    "Time to run the kernel catalog over one morphology",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
	})

	kernelEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "morphovis_kernel_evaluations_total",
		Help: "Single kernel evaluations by variable",
	}, []string{"variable"})

	skeletonBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "morphovis_skeleton_builds_total",
		Help: "Skeleton builds by mode and outcome",
	}, []string{"mode", "outcome"})

	skeletonPolylines = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "morphovis_skeleton_polylines",
		Help:    "Polylines emitted per skeleton build",
		Buckets: []float64{10, 100, 1000, 10000, 100000},
	})
)
