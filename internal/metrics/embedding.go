package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding and indexing Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragline",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding provider requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragline",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingRateLimitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragline",
			Name:      "embedding_rate_limits_total",
			Help:      "Total rate-limit retries against the embedding provider",
		},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragline",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	IndexChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragline",
			Name:      "index_chunks_total",
			Help:      "Chunks processed during indexing by outcome",
		},
		[]string{"outcome"}, // "cached" / "store_cached" / "new" / "failed"
	)

	IndexBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragline",
			Name:      "index_batches_total",
			Help:      "Point upload batches by status",
		},
		[]string{"status"}, // "ok" / "failed"
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragline",
			Name:      "chat_requests_total",
			Help:      "Total LLM chat requests",
		},
		[]string{"model", "status"},
	)
)

var registered bool

// Register registers pipeline Prometheus metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingRateLimitsTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(IndexChunksTotal)
	prometheus.MustRegister(IndexBatchesTotal)
	prometheus.MustRegister(ChatRequestsTotal)
	registered = true
}
