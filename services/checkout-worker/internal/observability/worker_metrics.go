package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_worker",
			Name:      "outbox_published_total",
			Help:      "Outbox events confirmed by the broker and deleted",
		},
		[]string{"topic"},
	)

	OutboxPublishFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_worker",
			Name:      "outbox_publish_failed_total",
			Help:      "Outbox publish attempts the broker rejected",
		},
		[]string{"topic"},
	)

	OutboxBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "checkout_worker",
			Name:      "outbox_batch_duration_seconds",
			Help:      "Time to claim, publish and delete one outbox batch",
			Buckets:   prometheus.DefBuckets,
		},
	)

	ReleasesReconciled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "checkout_worker",
			Name:      "releases_reconciled_total",
			Help:      "Parked reservation releases that eventually succeeded",
		},
	)

	ReleaseRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "checkout_worker",
			Name:      "release_retries_total",
			Help:      "Release attempts that failed and were requeued",
		},
	)

	ReleasesDeadLettered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "checkout_worker",
			Name:      "releases_dead_lettered_total",
			Help:      "Release jobs that exhausted their attempt budget",
		},
	)

	ReleaseQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "checkout_worker",
			Name:      "release_queue_depth",
			Help:      "Release jobs currently parked for reconciliation",
		},
	)
)
