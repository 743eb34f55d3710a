// Package metrics exposes Prometheus instrumentation for the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsImported counts transactions written to the store by commits.
	RowsImported = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "statements",
		Name:      "rows_imported_total",
		Help:      "Number of transactions inserted by import commits.",
	})

	// DuplicatesSkipped counts candidate rows skipped as duplicates.
	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "statements",
		Name:      "duplicates_skipped_total",
		Help:      "Number of candidate rows skipped as duplicates.",
	})

	// RowErrors counts row-level failures by error code.
	RowErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statements",
		Name:      "row_errors_total",
		Help:      "Number of row-level import errors by code.",
	}, []string{"code"})

	// CommitDuration observes the wall time of commit calls.
	CommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "statements",
		Name:      "commit_duration_seconds",
		Help:      "Duration of import commit calls.",
		Buckets:   prometheus.DefBuckets,
	})

	// PreviewsTotal counts preview (analyze) calls.
	PreviewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "statements",
		Name:      "previews_total",
		Help:      "Number of statement preview calls.",
	})
)
