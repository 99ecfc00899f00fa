package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docuflow_transitions_total",
			Help: "Total number of workflow transition requests by target state and outcome",
		},
		[]string{"to", "outcome"},
	)

	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docuflow_transition_duration_seconds",
			Help:    "Time spent handling a workflow transition request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	LockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docuflow_document_lock_wait_seconds",
			Help:    "Time spent waiting for the per-document transition lock",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docuflow_notifications_total",
			Help: "Notifications derived from audit records by result",
		},
		[]string{"result"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docuflow_events_published_total",
			Help: "Workflow event publication attempts by backend and result",
		},
		[]string{"backend", "result"},
	)
)
