package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "statutefinder"

// Embedding provider, cache and budget metrics.
var (
	// EmbeddingRequestsTotal counts provider calls. status is "success" or the failure reason.
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Embedding provider calls by outcome",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding provider call duration in seconds, retries included",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	EmbeddingInputs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_inputs",
			Help:      "Texts sent per embedding call",
			Buckets:   []float64{1, 8, 32, 128, 512, 2048},
		},
		[]string{"provider"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_tokens_total",
			Help:      "Tokens billed by the embedding provider",
		},
		[]string{"provider", "model"},
	)

	EmbeddingRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_retries_total",
			Help:      "Embedding attempts retried after a transient failure",
		},
		[]string{"provider", "model"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	// BudgetTokensRemaining is shared by completions and embeddings, labelled by scope.
	BudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "budget_tokens_remaining",
			Help:      "Remaining token budget per scope and period",
		},
		[]string{"scope", "period"},
	)
)

var embeddingMetricsRegistered bool

// RegisterEmbeddingMetrics registers embedding, cache and budget metrics. Must be called once from main.
func RegisterEmbeddingMetrics() {
	if embeddingMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingInputs,
		EmbeddingTokensTotal,
		EmbeddingRetriesTotal,
		EmbeddingCacheTotal,
		BudgetTokensRemaining,
	)
	embeddingMetricsRegistered = true
}
