package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evimap_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evimap_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	AggregateDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evimap_aggregate_duration_ms",
		Help:    "Region aggregation duration in milliseconds",
		Buckets: []float64{0.5, 1, 5, 10, 20, 50, 100, 200, 500},
	}, []string{"level"})
	AggregateCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evimap_aggregate_cache_hits_total",
		Help: "Total aggregation memo hits",
	})
	AggregateCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evimap_aggregate_cache_misses_total",
		Help: "Total aggregation memo misses",
	})
	JoinMatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evimap_join_matches_total",
		Help: "POIs joined to regions by match kind (id, name, unmatched)",
	}, []string{"level", "kind"})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evimap_redis_hits_total",
		Help: "Total redis row cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evimap_redis_misses_total",
		Help: "Total redis row cache misses",
	})
	SnapshotReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evimap_snapshot_reloads_total",
		Help: "Snapshot reloads by status",
	}, []string{"status"})
	SnapshotVersion = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "evimap_snapshot_version",
		Help: "Version of the active snapshot",
	})
	SnapshotSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "evimap_snapshot_size",
		Help: "Records in the active snapshot by kind",
	}, []string{"kind"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evimap_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(AggregateDurationMs)
	prometheus.MustRegister(AggregateCacheHitsTotal)
	prometheus.MustRegister(AggregateCacheMissesTotal)
	prometheus.MustRegister(JoinMatchesTotal)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(SnapshotReloadsTotal)
	prometheus.MustRegister(SnapshotVersion)
	prometheus.MustRegister(SnapshotSize)
	prometheus.MustRegister(RateLimitedTotal)
}

// 文档注释：返回 Prometheus 指标处理器
// 背景：在 <API_BASE>/metrics 挂载，供 Prometheus 抓取。
func Handler() http.Handler { return promhttp.Handler() }
