package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/rolerag/internal/logging"
	"github.com/54b3r/rolerag/internal/server"
	"github.com/54b3r/rolerag/internal/tracing"
)

// NewServeCmd constructs the `rolerag serve` command, which starts the HTTP
// server exposing /login, /chat, /test-retrieve, and /history.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var rateLimit float64
	var rateBurst int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the rolerag HTTP server",
		Long: `Start the rolerag HTTP server.

Partitions are loaded lazily on the first request for each role, from file
artifacts in VECTOR_DIR or from Qdrant when INDEX_BACKEND=qdrant. A missing
completion credential does not prevent startup; answers are degraded until
one is configured and /ready reports the problem.

Examples:
  rolerag serve
  rolerag serve --port 9090
  INDEX_BACKEND=qdrant MODEL_PROVIDER=ollama rolerag serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			flush, ok := tracing.Setup(tracing.FromEnv(), log)
			if ok {
				defer flush()
			}

			a, err := buildApp(ctx, log, true)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("ROLERAG_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("ROLERAG_PORT", port)
			}

			srv, err := server.New(a.service, &server.Config{
				Host:        host,
				Port:        port,
				ChatTimeout: getEnvDuration("ROLERAG_CHAT_TIMEOUT", 0),
				Logger:      log,
				Pingers:     a.pingers,
				Partitions:  a.registry,
				RateLimit:   rateLimit,
				RateBurst:   rateBurst,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			log.Info("serve starting", slog.String("host", host), slog.Int("port", port))
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "TCP port to listen on")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "Sustained requests per second per client IP on /login and /chat (default 10)")
	cmd.Flags().IntVar(&rateBurst, "rate-burst", 0, "Burst size per client IP on /login and /chat (default 20)")

	return cmd
}
