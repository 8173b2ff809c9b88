package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once

	httpRequestDuration *prometheus.HistogramVec
	httpRequestTotal    *prometheus.CounterVec
	tokensIssued        *prometheus.CounterVec
	tokenRedemptions    *prometheus.CounterVec
	quotaOutcomes       *prometheus.CounterVec
	rateLimited         *prometheus.CounterVec
	eventsPublished     *prometheus.CounterVec
	tokensSwept         prometheus.Counter
)

func initMetrics() {
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mixmint",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration observed at the API layer.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status"},
	)

	httpRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mixmint",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the API.",
		},
		[]string{"method", "route", "status"},
	)

	tokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mixmint",
			Subsystem: "downloads",
			Name:      "tokens_issued_total",
			Help:      "Download tokens issued, by access source.",
		},
		[]string{"access_source"},
	)

	tokenRedemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mixmint",
			Subsystem: "downloads",
			Name:      "redemptions_total",
			Help:      "Download token redemption attempts, by result.",
		},
		[]string{"result"},
	)

	quotaOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mixmint",
			Subsystem: "quota",
			Name:      "consumptions_total",
			Help:      "Quota consumptions at redemption, by outcome.",
		},
		[]string{"outcome"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mixmint",
			Subsystem: "downloads",
			Name:      "rate_limited_total",
			Help:      "Requests refused by the download rate limiter, by backend.",
		},
		[]string{"backend"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mixmint",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Download events handed to the broker, by event type and result.",
		},
		[]string{"event_type", "result"},
	)

	tokensSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mixmint",
			Subsystem: "sweeper",
			Name:      "tokens_deleted_total",
			Help:      "Expired download tokens deleted by the cleanup sweeper.",
		},
	)

	prometheus.MustRegister(
		httpRequestDuration,
		httpRequestTotal,
		tokensIssued,
		tokenRedemptions,
		quotaOutcomes,
		rateLimited,
		eventsPublished,
		tokensSwept,
	)
}

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	metricsOnce.Do(initMetrics)
	return promhttp.Handler()
}

// RecordHTTPRequest observes one served request
func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	metricsOnce.Do(initMetrics)

	statusCode := strconv.Itoa(status)
	httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(elapsed.Seconds())
	httpRequestTotal.WithLabelValues(method, route, statusCode).Inc()
}

func RecordTokenIssued(accessSource string) {
	metricsOnce.Do(initMetrics)
	tokensIssued.WithLabelValues(accessSource).Inc()
}

// RecordRedemption counts a redemption attempt; result is "served" or an error class
func RecordRedemption(result string) {
	metricsOnce.Do(initMetrics)
	tokenRedemptions.WithLabelValues(result).Inc()
}

func RecordQuotaOutcome(outcome string) {
	metricsOnce.Do(initMetrics)
	quotaOutcomes.WithLabelValues(outcome).Inc()
}

func RecordRateLimited(backend string) {
	metricsOnce.Do(initMetrics)
	rateLimited.WithLabelValues(backend).Inc()
}

func RecordEventPublished(eventType string, ok bool) {
	metricsOnce.Do(initMetrics)
	result := "ok"
	if !ok {
		result = "failed"
	}
	eventsPublished.WithLabelValues(eventType, result).Inc()
}

func RecordTokensSwept(n int64) {
	metricsOnce.Do(initMetrics)
	tokensSwept.Add(float64(n))
}
