package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedOperations counts aggregator operations by name and outcome.
	FeedOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lufeed_feed_operations_total",
		Help: "Total feed aggregator operations by operation and result",
	}, []string{"operation", "result"})

	// FeedLoadLatency records how long a full feed load takes.
	FeedLoadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lufeed_feed_load_latency_seconds",
		Help:    "Feed load latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// FeedItems is the number of items in the in-memory feed.
	FeedItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lufeed_feed_items",
		Help: "Number of items in the in-memory feed",
	})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lufeed_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})
)

// ObserveFeedOperation records the outcome of one aggregator operation.
func ObserveFeedOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	FeedOperations.WithLabelValues(operation, result).Inc()
}
