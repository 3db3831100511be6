package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecenter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecenter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecenter_chat_requests_total",
			Help: "Chat turns handled, by classified intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecenter_cache_lookups_total",
			Help: "Cache lookups by cache name and result (hit, miss, error)",
		},
		[]string{"cache", "result"},
	)

	CompletionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecenter_completion_errors_total",
			Help: "Completion service failures by error kind",
		},
		[]string{"kind"},
	)

	CompletionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ecenter_completion_latency_seconds",
			Help:    "Completion service latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	CronRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecenter_cron_runs_total",
			Help: "Scheduled job runs by job name and status",
		},
		[]string{"job", "status"},
	)
)

// Middleware records request count and latency per matched route
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		method := c.Method()
		RequestCount.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the default registry in the Prometheus text format
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
