package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/54b3r/rolerag/internal/auth"
	"github.com/54b3r/rolerag/internal/budget"
	"github.com/54b3r/rolerag/internal/embedder"
	"github.com/54b3r/rolerag/internal/generator"
	"github.com/54b3r/rolerag/internal/index"
	"github.com/54b3r/rolerag/internal/pipeline"
	"github.com/54b3r/rolerag/internal/provider"
	"github.com/54b3r/rolerag/internal/rag"
	"github.com/54b3r/rolerag/internal/server"
	"github.com/54b3r/rolerag/internal/store"
)

// Defaults for settings read directly by the commands.
const (
	defaultCredentialsFile   = "users.yaml"
	defaultVectorDir         = "vector_data"
	defaultTokenTTLSeconds   = 1800
	defaultGenerationRetries = 0
)

// app holds the long-lived components shared by serve and ask. Everything is
// constructed once and passed explicitly; nothing lives in package globals.
type app struct {
	// service is the request orchestrator.
	service *pipeline.Service

	// registry caches loaded partitions; exposed for metrics.
	registry *index.Registry

	// pingers are the readiness probes for the configured dependencies.
	pingers []server.Pinger

	// closers release resources in reverse construction order.
	closers []func()
}

// Close releases every resource acquired by buildApp.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires credentials, tokens, embedder, partition loader, generator,
// and (optionally) the history store into a pipeline.Service.
func buildApp(ctx context.Context, log *slog.Logger, withHistory bool) (*app, error) {
	a := &app{}

	credsPath := getEnvOrDefault("ROLERAG_CREDENTIALS_FILE", defaultCredentialsFile)
	creds, err := auth.LoadCredentials(credsPath)
	if err != nil {
		return nil, err
	}
	log.Info("credentials loaded", slog.String("path", credsPath), slog.Int("users", creds.Len()))

	tokens, err := buildTokens()
	if err != nil {
		return nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	embedder.WarnIfChatModel(log)
	log.Info("embedder initialised", slog.String("model", emb.Model()))

	loader, pinger, closeLoader, err := buildLoader(emb.Model(), log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeLoader)
	a.pingers = append(a.pingers, pinger)

	topK := getEnvInt("ROLERAG_TOP_K", rag.DefaultTopK)
	a.registry = index.NewRegistry(loader)
	retriever, err := rag.NewRetriever(emb, a.registry, topK)
	if err != nil {
		a.Close()
		return nil, err
	}

	gen, providerCfg, err := buildGenerator(ctx, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pingers = append(a.pingers, server.NewCompletionPinger(
		string(providerCfg.Backend), gen.Configured(), provider.NewHealthChecker(providerCfg),
	))

	var history store.HistoryStore
	if withHistory {
		if hs := openHistory(log); hs != nil {
			history = hs
			a.pingers = append(a.pingers, hs)
			a.closers = append(a.closers, func() { _ = hs.Close() })
		}
	}

	a.service, err = pipeline.New(pipeline.Config{
		Credentials: creds,
		Tokens:      tokens,
		Policy:      auth.DefaultPolicy(),
		Retriever:   retriever,
		Generator:   gen,
		History:     history,
		TopK:        topK,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// buildTokens constructs the token service from JWT_SECRET, JWT_ALGORITHM,
// and JWT_EXPIRATION_SECONDS.
func buildTokens() (*auth.TokenService, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	ttl := getEnvInt("JWT_EXPIRATION_SECONDS", defaultTokenTTLSeconds)
	return auth.NewTokenService(auth.TokenConfig{
		Secret:    []byte(secret),
		Algorithm: getEnvOrDefault("JWT_ALGORITHM", auth.DefaultAlgorithm),
		TTL:       time.Duration(ttl) * time.Second,
	})
}

// buildLoader returns the partition loader selected by INDEX_BACKEND along
// with its readiness probe and a release function.
func buildLoader(model string, log *slog.Logger) (index.Loader, server.Pinger, func(), error) {
	switch backend := getEnvOrDefault("INDEX_BACKEND", "file"); backend {
	case "file":
		dir := getEnvOrDefault("VECTOR_DIR", defaultVectorDir)
		log.Info("index: using file artifacts", slog.String("dir", dir))
		l := index.NewFileLoader(dir, model)
		return l, l, func() {}, nil
	case "qdrant":
		cfg := qdrantConfigFromEnv()
		client, err := index.NewQdrantClient(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("index: using qdrant",
			slog.String("host", cfg.Host),
			slog.Int("port", cfg.Port),
			slog.String("collection_prefix", cfg.CollectionPrefix),
		)
		l := index.NewQdrantLoader(client, cfg, model)
		return l, l, func() { _ = client.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown INDEX_BACKEND %q (valid: file, qdrant)", backend)
	}
}

// qdrantConfigFromEnv reads the QDRANT_* variables.
func qdrantConfigFromEnv() *index.QdrantConfig {
	return &index.QdrantConfig{
		Host:             getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:             getEnvInt("QDRANT_PORT", 6334),
		APIKey:           os.Getenv("QDRANT_API_KEY"),
		UseTLS:           os.Getenv("QDRANT_TLS") == "true",
		CollectionPrefix: os.Getenv("QDRANT_COLLECTION_PREFIX"),
	}
}

// buildGenerator constructs the chat model and wraps it in a Generator. A
// missing backend credential is not fatal: the service starts and every
// answer degrades until the credential is supplied.
func buildGenerator(ctx context.Context, log *slog.Logger) (*generator.Generator, *provider.Config, error) {
	cfg := provider.ConfigFromEnv()
	chatModel, err := provider.New(ctx, cfg)
	switch {
	case errors.Is(err, provider.ErrMissingCredential):
		log.Warn("provider: no credential configured, answers will be degraded",
			slog.String("provider", string(cfg.Backend)),
			slog.Any("error", err),
		)
		chatModel = nil
	case err != nil:
		return nil, nil, fmt.Errorf("failed to initialise model provider: %w", err)
	default:
		log.Info("provider initialised",
			slog.String("provider", string(cfg.Backend)),
			slog.String("model", cfg.ModelName()),
		)
	}

	gen := generator.New(generator.Config{
		Model:            chatModel,
		ModelName:        cfg.ModelName(),
		Temperature:      &cfg.Tuning.Temperature,
		MaxTokens:        cfg.Tuning.MaxTokens,
		Timeout:          getEnvDuration("GENERATION_TIMEOUT", generator.DefaultTimeout),
		MaxRetries:       uint64(max(getEnvInt("GENERATION_MAX_RETRIES", defaultGenerationRetries), 0)), //nolint:gosec // clamped non-negative
		MaxInFlight:      int64(getEnvInt("GENERATION_MAX_INFLIGHT", generator.DefaultMaxInFlight)),
		MaxContextTokens: getEnvInt("GENERATION_MAX_CONTEXT_TOKENS", budget.DefaultMaxContextTokens),
	})
	log.Info("generator ready", slog.Uint64("max_retries", gen.MaxRetries()))
	return gen, cfg, nil
}

// openHistory opens the SQLite history store. ROLERAG_HISTORY_DB overrides
// the default path (~/.rolerag/history.db); "disabled" turns history off. A
// store that cannot be opened is logged and skipped.
func openHistory(log *slog.Logger) *store.SQLiteStore {
	dbPath := os.Getenv("ROLERAG_HISTORY_DB")
	if dbPath == "disabled" {
		log.Info("history: disabled via ROLERAG_HISTORY_DB=disabled")
		return nil
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
	}

	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if unset or unparseable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration parses the named variable as a Go duration ("30s") or a
// bare number of seconds, returning fallback if unset or unparseable.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
