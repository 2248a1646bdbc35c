package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts finished try-on jobs by outcome (succeeded/failed)
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tryon_jobs_total",
			Help: "Total try-on jobs by outcome",
		},
		[]string{"outcome"},
	)

	// JobDuration tracks wall time from submission to completion in seconds
	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tryon_job_duration_seconds",
			Help:    "Try-on job duration in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		},
	)

	// JobsInFlight is the number of jobs currently talking to the hosted service
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tryon_jobs_in_flight",
			Help: "Try-on jobs currently running",
		},
	)

	// SubmissionsRejected counts submissions turned away before a job was created
	SubmissionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tryon_submissions_rejected_total",
			Help: "Try-on submissions rejected by reason",
		},
		[]string{"reason"},
	)

	// StreamConnections is the number of open websocket progress streams
	StreamConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tryon_stream_connections",
			Help: "Open websocket progress streams",
		},
	)
)
