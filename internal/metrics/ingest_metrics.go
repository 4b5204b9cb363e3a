package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmitted counts accepted job submissions by kind.
	JobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_jobs_submitted_total",
		Help: "The total number of jobs submitted",
	}, []string{"kind"})

	// JobsFinished counts jobs reaching a terminal state by kind and state.
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_jobs_finished_total",
		Help: "The total number of jobs that reached a terminal state",
	}, []string{"kind", "state"})

	// RowsProcessed counts CSV data rows consumed by ingestion, split by outcome (accepted or rejected).
	RowsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_rows_processed_total",
		Help: "The total number of CSV rows consumed by ingestion",
	}, []string{"outcome"})

	// ProductsUpserted counts records written through the upsert engine.
	ProductsUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_products_upserted_total",
		Help: "The total number of product records upserted",
	})

	// ProductsDeleted counts products removed by bulk deletes.
	ProductsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_products_deleted_total",
		Help: "The total number of products deleted",
	})

	// BatchDuration observes how long one batch upsert takes.
	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "importer_batch_duration_seconds",
		Help:    "Histogram of batch upsert durations.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// WebhookTests counts webhook test invocations by outcome.
	WebhookTests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_webhook_tests_total",
		Help: "The total number of webhook test invocations",
	}, []string{"outcome"})

	// JobsExpired counts pending or running jobs failed by the janitor after their lease ran out.
	JobsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_jobs_expired_total",
		Help: "The total number of jobs failed for making no progress within the lease",
	})

	// JobsPurged counts expired jobs removed by the janitor.
	JobsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_jobs_purged_total",
		Help: "The total number of expired jobs purged",
	})
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeDisabled = "disabled"
)
