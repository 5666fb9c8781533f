package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler is the "handler" label used to partition metrics by chi route
// pattern rather than the raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New so that tests can inject a fresh
// prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// chatRequestsTotal counts completed /chat requests, partitioned by
	// outcome: "ok", "degraded", "invalid", or "error".
	chatRequestsTotal *prometheus.CounterVec

	// chatDurationSeconds records the wall-clock duration of each /chat request.
	chatDurationSeconds *prometheus.HistogramVec

	// degradedTotal counts degraded answers by generation failure reason.
	degradedTotal *prometheus.CounterVec

	// loginsTotal counts /login attempts by outcome: "accepted" or "rejected".
	loginsTotal *prometheus.CounterVec

	// httpRequestsTotal counts all HTTP requests, partitioned by method,
	// route pattern, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg. When stats is
// non-nil the index registry's partition count and load counter are exported
// as function-backed collectors so they are read at scrape time.
func newServerMetrics(reg prometheus.Registerer, stats PartitionStats) *serverMetrics {
	factory := promauto.With(reg)

	m := &serverMetrics{
		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rolerag",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of /chat requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		chatDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rolerag",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /chat requests from receipt to response.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),

		degradedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rolerag",
			Subsystem: "generation",
			Name:      "degraded_total",
			Help:      "Answers replaced by the fallback text, partitioned by failure reason.",
		}, []string{"reason"}),

		loginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rolerag",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts, partitioned by outcome.",
		}, []string{"outcome"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rolerag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rolerag",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}

	if stats != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "rolerag",
			Subsystem: "index",
			Name:      "partitions_loaded",
			Help:      "Number of role partitions currently cached in memory.",
		}, func() float64 { return float64(stats.Len()) })

		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "rolerag",
			Subsystem: "index",
			Name:      "loads_total",
			Help:      "Number of completed partition loads from storage.",
		}, func() float64 { return float64(stats.Loads()) })
	}

	return m
}

// observeChat records one /chat request.
func (m *serverMetrics) observeChat(outcome string, start time.Time) {
	m.chatRequestsTotal.WithLabelValues(outcome).Inc()
	m.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// instrument records request count and latency per chi route pattern.
func (m *serverMetrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		start := time.Now()
		next.ServeHTTP(ww, r)

		pattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(statusOf(ww))).Inc()
		m.httpDurationSeconds.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
