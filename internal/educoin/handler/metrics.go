package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/educoin/internal/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "educoin_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "educoin_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	blocksSealedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "educoin_blocks_sealed_total",
		Help: "Total blocks sealed since start (genesis excluded).",
	})

	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "educoin_transactions_total",
		Help: "Total sealed transactions by kind (reward or transfer).",
	}, []string{"kind"})

	coinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "educoin_coins_total",
		Help: "Total EduCoin moved by kind (reward or transfer).",
	}, []string{"kind"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "educoin_rejections_total",
		Help: "Total rejected submissions by error code.",
	}, []string{"code"})

	chainLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "educoin_chain_length",
		Help: "Number of blocks in the chain, genesis included.",
	})

	coinSupply = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "educoin_supply",
		Help: "EduCoin in circulation (sum of sealed rewards).",
	})

	feedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "educoin_feed_subscribers",
		Help: "Active block feed subscribers.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		requestsTotal.WithLabelValues(method, path, status).Inc()
		requestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordSeal records a sealed block and its transactions.
func RecordSeal(b *ledger.Block) {
	blocksSealedTotal.Inc()
	chainLength.Set(float64(b.Index))
	for _, tx := range b.Transactions {
		kind := "transfer"
		if tx.IsReward() {
			kind = "reward"
			coinSupply.Add(float64(tx.Amount))
		}
		transactionsTotal.WithLabelValues(kind).Inc()
		coinsTotal.WithLabelValues(kind).Add(float64(tx.Amount))
	}
}

// RecordRejection records a rejected submission by error code.
func RecordRejection(code string) {
	rejectionsTotal.WithLabelValues(code).Inc()
}

// SetChainLength sets the chain length gauge.
func SetChainLength(n int) {
	chainLength.Set(float64(n))
}

// SetFeedSubscribers sets the feed subscriber gauge. It matches feed.CountFunc.
func SetFeedSubscribers(n int) {
	feedSubscribers.Set(float64(n))
}
