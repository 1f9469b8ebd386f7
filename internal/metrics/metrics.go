package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	// RequestCount counts HTTP requests
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "textscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)

	// UploadCount counts stored files by identity outcome
	UploadCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textscan_uploads_total",
			Help: "Uploads by outcome (canonical, duplicate, rejected)",
		},
		[]string{"outcome"},
	)

	// ComparisonCount counts similarity comparisons
	ComparisonCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textscan_comparisons_total",
			Help: "Similarity comparisons by mode and status",
		},
		[]string{"mode", "status"},
	)

	// CacheLookups counts analysis cache hits and misses
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textscan_cache_lookups_total",
			Help: "Analysis cache lookups by result",
		},
		[]string{"kind", "result"},
	)

	// BatchDuration measures batch comparison duration
	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "textscan_batch_duration_seconds",
			Help:    "Batch comparison duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

var registerOnce sync.Once

// InitPrometheus registers the collectors with the default registry. Safe to call more than once.
func InitPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCount)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(UploadCount)
		prometheus.MustRegister(ComparisonCount)
		prometheus.MustRegister(CacheLookups)
		prometheus.MustRegister(BatchDuration)
	})
}

// Middleware records request count and latency for every routed request.
func Middleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RequestCount.WithLabelValues(service, c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(service, c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// StartServer serves /metrics on its own port and returns the server for shutdown.
func StartServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("port", port).Msg("Metrics server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return srv
}

// Shutdown stops the metrics server, waiting at most timeout.
func Shutdown(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}
}
