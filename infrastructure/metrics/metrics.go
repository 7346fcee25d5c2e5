// Package metrics exposes publish pipeline counters for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var histogramBuckets = []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600}

type Metrics struct {
	registry       *prometheus.Registry
	publishResults *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	tokenRefreshes *prometheus.CounterVec
	requestTotal   *prometheus.CounterVec
}

// New builds the collectors on a private registry so tests can create as many
// instances as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		publishResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "social_publisher",
			Subsystem: "publish",
			Name:      "platform_results_total",
			Help:      "Platform publish attempts by outcome tag",
		}, []string{"platform", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "social_publisher",
			Subsystem: "publish",
			Name:      "job_duration_seconds",
			Help:      "Wall time of one job execution",
			Buckets:   histogramBuckets,
		}, []string{"state"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "social_publisher",
			Subsystem: "credentials",
			Name:      "token_refreshes_total",
			Help:      "Provider token refresh exchanges",
		}, []string{"provider", "result"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "social_publisher",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.publishResults, m.jobDuration, m.tokenRefreshes, m.requestTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePlatformResult counts one platform attempt; outcome is "published" or an error tag.
func (m *Metrics) ObservePlatformResult(platform, outcome string) {
	m.publishResults.WithLabelValues(platform, outcome).Inc()
}

func (m *Metrics) ObserveJob(state string, d time.Duration) {
	m.jobDuration.WithLabelValues(state).Observe(d.Seconds())
}

func (m *Metrics) ObserveTokenRefresh(provider string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.tokenRefreshes.WithLabelValues(provider, result).Inc()
}

// Middleware counts requests by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
