package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "instasplit_http_request_duration_seconds",
		Help:    "HTTP request latency by route, method, and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	splitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "instasplit_split_calculation_duration_seconds",
		Help:    "Split engine calculation latency.",
		Buckets: prometheus.ExponentialBuckets(1e-5, 10, 6),
	})
)

func observeSplit(d time.Duration) {
	splitDuration.Observe(d.Seconds())
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WithMetrics wraps a handler and records its duration and status under the
// given route label. Routes are static strings, not raw paths, to keep the
// label cardinality bounded.
func WithMetrics(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)
		requestDuration.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	}
}
