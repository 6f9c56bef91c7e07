package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. Each instance owns its registry so
// tests can build independent copies.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	AttemptsStarted   prometheus.Counter
	AttemptsFinalized *prometheus.CounterVec
	IntegrityFailures prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		AttemptsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_attempts_started_total",
			Help: "Assessment attempts started",
		}),
		AttemptsFinalized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_attempts_finalized_total",
				Help: "Assessment attempts finalized, by final status",
			},
			[]string{"status"},
		),
		IntegrityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secure_file_integrity_failures_total",
			Help: "Secure files that failed decryption or authentication",
		}),
	}

	m.registry.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.AttemptsStarted,
		m.AttemptsFinalized,
		m.IntegrityFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) AttemptStarted() {
	if m == nil {
		return
	}
	m.AttemptsStarted.Inc()
}

func (m *Metrics) AttemptFinalized(status string) {
	if m == nil {
		return
	}
	m.AttemptsFinalized.WithLabelValues(status).Inc()
}

func (m *Metrics) IntegrityFailure() {
	if m == nil {
		return
	}
	m.IntegrityFailures.Inc()
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
