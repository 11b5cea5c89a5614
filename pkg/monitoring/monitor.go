// Package monitoring 暴露 Prometheus 指标。
package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Calls to the generative model, by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	LLMDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Latency of generative model calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 60},
		},
		[]string{"operation"},
	)

	ShapeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_shape_failures_total",
			Help: "Model responses rejected by the recommendation validator",
		},
		[]string{"reason"},
	)
)

var registerOnce sync.Once

// Init 注册所有指标，可重复调用。
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter, RequestDuration, LLMRequests, LLMDuration, ShapeFailures)
	})
}

// ObserveLLM 记录一次模型调用的结果与耗时。
func ObserveLLM(operation string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	LLMRequests.WithLabelValues(operation, status).Inc()
	LLMDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// MetricsMiddleware 统计 HTTP 请求数量与耗时。
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
