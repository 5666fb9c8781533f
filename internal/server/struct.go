package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/rolerag/internal/pipeline"
	"github.com/54b3r/rolerag/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// exceed ChatTimeout so a slow answer is not cut off mid-write.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds a single /chat request end to end, including
	// retrieval and every generation attempt (default: 60s).
	ChatTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /ready.
	// If empty, /ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// Partitions exposes index registry counters as metrics. Optional.
	Partitions PartitionStats
	// RateLimit is the sustained request rate allowed per IP on /login and
	// /chat (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// AllowedOrigin is the Access-Control-Allow-Origin value (default: "*").
	AllowedOrigin string
	// MetricsRegistry receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer is served on GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// orchestrator is the request pipeline the handlers delegate to.
// *pipeline.Service satisfies it; tests inject a fake.
type orchestrator interface {
	// Login exchanges a username and password for a bearer token.
	Login(ctx context.Context, username, password string) (pipeline.TokenResponse, error)
	// Chat answers a query grounded in the token role's partition.
	Chat(ctx context.Context, token, query string) (pipeline.ChatResponse, error)
	// Retrieve returns the documents Chat would ground its answer in.
	Retrieve(ctx context.Context, token, query string) ([]string, error)
	// History returns the token subject's recent exchanges.
	History(ctx context.Context, token string, limit int) ([]store.Exchange, error)
}

// PartitionStats is the read-only view of the index registry used for metrics.
// *index.Registry satisfies it.
type PartitionStats interface {
	// Len returns the number of cached partitions.
	Len() int
	// Loads returns the number of completed partition loads.
	Loads() int64
}

// Server is the HTTP server that exposes the role-scoped RAG pipeline.
type Server struct {
	// svc is the pipeline every handler delegates to.
	svc orchestrator
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// handler is the fully assembled router with middleware.
	handler http.Handler
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /chat.
type chatRequest struct {
	// Query is the user's natural language question.
	Query string `json:"query"`
}

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	// Detail is the client-safe failure message.
	Detail string `json:"detail"`
}
