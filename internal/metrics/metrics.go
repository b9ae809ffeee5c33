package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RowsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boxoffice_rows_processed_total",
		Help: "CSV data rows read, labelled by validation result.",
	}, []string{"result"})

	RecordsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boxoffice_records_committed_total",
		Help: "Sale records durably written to sales_data.",
	})

	BatchCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boxoffice_batch_commits_total",
		Help: "Batch commits, labelled by status.",
	}, []string{"status"})

	BatchCommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "boxoffice_batch_commit_duration_ms",
		Help:    "Latency of one batch commit in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	BucketsMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boxoffice_summary_buckets_merged_total",
		Help: "Daily summary buckets inserted or updated by ingestion runs.",
	})

	Ingestions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boxoffice_ingestions_total",
		Help: "Finished ingestion runs, labelled by final state.",
	}, []string{"state"})

	IngestionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "boxoffice_ingestion_duration_seconds",
		Help:    "Wall time of a full ingestion run.",
		Buckets: prometheus.DefBuckets,
	})
)
