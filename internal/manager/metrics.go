package manager

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	jobsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stemd",
			Subsystem: "jobs",
			Name:      "submitted_total",
			Help:      "Total separation jobs accepted",
		},
	)

	jobsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stemd",
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Jobs that reached a terminal outcome, by status",
		},
		[]string{"status"},
	)

	jobsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stemd",
			Subsystem: "jobs",
			Name:      "inflight",
			Help:      "Jobs currently being processed by a worker",
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stemd",
			Subsystem: "jobs",
			Name:      "queue_depth",
			Help:      "Jobs accepted but not yet picked up",
		},
	)

	separationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stemd",
			Subsystem: "engine",
			Name:      "separation_duration_seconds",
			Help:      "Wall time of successful separations",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	engineCrashesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stemd",
			Subsystem: "engine",
			Name:      "crashes_total",
			Help:      "Abnormal separation engine exits",
		},
	)

	modelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stemd",
			Subsystem: "models",
			Name:      "loads_total",
			Help:      "Model load attempts, by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	modelsResident = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stemd",
			Subsystem: "models",
			Name:      "resident",
			Help:      "Whether a model is currently resident (1) or not (0)",
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(
		jobsSubmittedTotal,
		jobsFinishedTotal,
		jobsInflight,
		queueDepth,
		separationDuration,
		engineCrashesTotal,
		modelLoadsTotal,
		modelsResident,
	)
}
