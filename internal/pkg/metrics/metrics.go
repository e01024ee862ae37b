package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gigguard",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gigguard",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gigguard",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// External provider metrics
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gigguard",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Calls to external providers by outcome (ok, empty, exhausted, rejected)",
	}, []string{"provider", "outcome"})

	ProviderRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gigguard",
		Subsystem: "provider",
		Name:      "retries_total",
		Help:      "Retried attempts against external providers",
	}, []string{"provider"})

	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gigguard",
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "Duration of a provider call including retries",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 45},
	}, []string{"provider"})

	// SOS metrics
	CategoryResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gigguard",
		Subsystem: "sos",
		Name:      "category_results",
		Help:      "Ranked results returned per category",
		Buckets:   []float64{0, 1, 2, 3, 4, 5},
	}, []string{"category"})

	CategoryTaskFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gigguard",
		Subsystem: "sos",
		Name:      "category_task_failures_total",
		Help:      "Category tasks that failed and were replaced by an empty list",
	}, []string{"category"})

	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gigguard",
		Subsystem: "sos",
		Name:      "resolutions_total",
		Help:      "SOS resolutions by result (ok, invalid, cancelled)",
	}, []string{"result"})

	ResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gigguard",
		Subsystem: "sos",
		Name:      "resolution_duration_seconds",
		Help:      "Wall-clock duration of a full SOS resolution",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 60},
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gigguard",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gigguard",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gigguard",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gigguard",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gigguard",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gigguard",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat reported as gauges.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool stats into the db gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}
