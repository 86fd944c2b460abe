// Package middleware holds Fiber middleware and the Prometheus instrumentation
package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	businessflow "github.com/amirphl/Kusanagi/business_flow"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// In-flight HTTP requests
	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Metrics returns a Fiber v3 middleware that records basic Prometheus metrics.
// Labels are kept low-cardinality by using the matched route path when available.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

// DomainMetrics exports short link events as Prometheus counters
type DomainMetrics struct {
	cacheOps     *prometheus.CounterVec
	resolutions  *prometheus.CounterVec
	linksCreated *prometheus.CounterVec
	clicks       *prometheus.CounterVec
	expired      prometheus.Counter
}

var _ businessflow.Metrics = (*DomainMetrics)(nil)

// NewDomainMetrics registers the counters on reg; pass prometheus.DefaultRegisterer in production
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	factory := promauto.With(reg)
	return &DomainMetrics{
		cacheOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kusanagi_link_cache_operations_total",
				Help: "Link cache operations by operation and result",
			},
			[]string{"op", "result"},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kusanagi_resolutions_total",
				Help: "Short code resolutions by outcome",
			},
			[]string{"outcome"},
		),
		linksCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kusanagi_links_created_total",
				Help: "Create requests by how they were satisfied",
			},
			[]string{"kind"},
		),
		clicks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kusanagi_clicks_tracked_total",
				Help: "Click tracking attempts by result",
			},
			[]string{"result"},
		),
		expired: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kusanagi_links_expired_swept_total",
				Help: "Links deactivated by the expiry sweep",
			},
		),
	}
}

func (m *DomainMetrics) CacheResult(op, result string) {
	m.cacheOps.WithLabelValues(op, result).Inc()
}

func (m *DomainMetrics) Resolution(outcome string) {
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *DomainMetrics) LinkCreated(kind string) {
	m.linksCreated.WithLabelValues(kind).Inc()
}

func (m *DomainMetrics) ClickRecorded(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.clicks.WithLabelValues(result).Inc()
}

func (m *DomainMetrics) ExpiredSwept(n int) {
	if n > 0 {
		m.expired.Add(float64(n))
	}
}
