// Package tracing wires optional Langfuse tracing into the eino callback
// system. When enabled, every completion call made by the generator is
// reported as a trace span, with prompts and answers visible to operators.
package tracing

import (
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is used when LANGFUSE_HOST is unset.
const defaultHost = "http://localhost:3000"

// Config holds Langfuse connection settings.
type Config struct {
	// Host is the Langfuse API base URL.
	Host string
	// PublicKey is the Langfuse project public key.
	PublicKey string
	// SecretKey is the Langfuse project secret key.
	SecretKey string
}

// FromEnv reads LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY.
func FromEnv() Config {
	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = defaultHost
	}
	return Config{
		Host:      host,
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
}

// Enabled reports whether both keys are present.
func (c Config) Enabled() bool { return c.PublicKey != "" && c.SecretKey != "" }

// Setup registers a global Langfuse callback handler when cfg is enabled and
// returns a flush function that must be called before process exit so that
// buffered traces are sent. When tracing is disabled the flush function is a
// no-op and enabled is false.
func Setup(cfg Config, log *slog.Logger) (flush func(), enabled bool) {
	if !cfg.Enabled() {
		log.Debug("tracing: langfuse disabled (LANGFUSE_PUBLIC_KEY/LANGFUSE_SECRET_KEY unset)")
		return func() {}, false
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      cfg.Host,
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
	})
	callbacks.AppendGlobalHandlers(handler)

	log.Info("tracing: langfuse enabled", slog.String("host", cfg.Host))
	return flusher, true
}
