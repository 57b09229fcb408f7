package metrics

import "github.com/prometheus/client_golang/prometheus"

// Completion and selection Prometheus metrics.
var (
	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Total number of chat completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	CompletionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_request_duration_seconds",
			Help:      "Chat completion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	CompletionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_tokens_total",
			Help:      "Total completion tokens consumed",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "completion"
	)

	CompletionRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_retries_total",
			Help:      "Completion attempts retried after a transient failure",
		},
		[]string{"provider", "model"},
	)

	SelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Constrained selector calls by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	SelectionDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_dropped_tokens_total",
			Help:      "Model output pieces that did not map to a candidate",
		},
		[]string{"mode"},
	)

	SelectionCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "selection_candidates",
			Help:      "Candidates offered per selector call",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 200, 300},
		},
		[]string{"mode"},
	)

	NarrowingRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrowing_runs_total",
			Help:      "Narrowing runs by strategy and outcome",
		},
		[]string{"strategy", "status"},
	)

	NarrowingBatches = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "narrowing_batches",
			Help:      "Batches per narrowing run",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"strategy"},
	)

	NarrowingSkippedBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrowing_skipped_batches_total",
			Help:      "Batches skipped after a provider or decode failure",
		},
		[]string{"strategy"},
	)

	NarrowingRoundDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "narrowing_round_duration_seconds",
			Help:      "Duration of one narrowing round in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"strategy", "round"},
	)
)

var selectionMetricsRegistered bool

// RegisterSelectionMetrics registers completion, selector and narrowing metrics. Must be called once from main.
func RegisterSelectionMetrics() {
	if selectionMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		CompletionRequestsTotal,
		CompletionRequestDuration,
		CompletionTokensTotal,
		CompletionRetriesTotal,
		SelectionsTotal,
		SelectionDroppedTotal,
		SelectionCandidates,
		NarrowingRunsTotal,
		NarrowingBatches,
		NarrowingSkippedBatchesTotal,
		NarrowingRoundDuration,
	)
	selectionMetricsRegistered = true
}
