package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "morphovis_sync_runs_total",
		Help: "Library sync runs by trigger",
	}, []string{"trigger"})

	syncFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "morphovis_sync_files_total",
		Help: "Files handled by library sync, by outcome",
	}, []string{"outcome"})

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "morphovis_sync_duration_seconds",
		Help:    "Time to sync the whole library",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 120},
	})

	fileAnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "morphovis_file_analysis_duration_seconds",
		Help:    "Time to parse, analyze and store one morphology",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
	})
)
