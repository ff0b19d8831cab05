package metrics

import "github.com/prometheus/client_golang/prometheus"

// Chat pipeline Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutrichat",
			Name:      "generation_requests_total",
			Help:      "Total number of generation requests",
		},
		[]string{"model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nutrichat",
			Name:      "generation_request_duration_seconds",
			Help:      "Generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
		[]string{"model"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutrichat",
			Name:      "generation_tokens_total",
			Help:      "Total generation tokens consumed",
		},
		[]string{"model", "type"}, // "prompt" / "completion" / "total"
	)

	ResponseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutrichat",
			Name:      "response_cache_total",
			Help:      "Response cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	LimiterQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nutrichat",
			Name:      "limiter_queue_depth",
			Help:      "Callers waiting for a generation slot",
		},
	)

	DatasetRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nutrichat",
			Name:      "dataset_records",
			Help:      "Food records loaded into the catalog",
		},
	)
)

var chatMetricsRegistered bool

// RegisterChatMetrics registers chat pipeline metrics. Must be called once from main.
func RegisterChatMetrics() {
	if chatMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(GenerationTokensTotal)
	prometheus.MustRegister(ResponseCacheTotal)
	prometheus.MustRegister(LimiterQueueDepth)
	prometheus.MustRegister(DatasetRecords)
	chatMetricsRegistered = true
}
