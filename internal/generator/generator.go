// Package generator turns a query and its retrieved documents into an answer
// through an external chat model. The call is bounded in concurrency, time,
// and retries, and every failure is contained in the returned Answer rather
// than surfaced as an error.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"golang.org/x/sync/semaphore"

	"github.com/54b3r/rolerag/internal/budget"
	"github.com/54b3r/rolerag/internal/logging"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxInFlight  = 8
	DefaultQueueTimeout = 5 * time.Second
	DefaultTemperature  = float32(0.7)
	DefaultMaxTokens    = 500
	defaultRetryBackoff = 500 * time.Millisecond
)

// Config holds the Generator settings.
type Config struct {
	// Model is the chat model to call. Nil means no backend credential is
	// configured; every call then degrades with ReasonMissingCredential.
	Model model.BaseChatModel
	// ModelName labels logs and traces.
	ModelName string
	// Temperature is the sampling temperature passed on every call. Nil
	// selects 0.7; zero is a valid setting.
	Temperature *float32
	// MaxTokens caps the generated answer length. Zero selects 500.
	MaxTokens int
	// Timeout bounds a single completion attempt. Defaults to 30s.
	Timeout time.Duration
	// MaxRetries is the number of retries after a failed attempt. Zero means
	// a single attempt.
	MaxRetries uint64
	// RetryBackoff is the initial wait between retries. Defaults to 500ms.
	RetryBackoff time.Duration
	// MaxInFlight bounds concurrent completion calls. Defaults to 8.
	MaxInFlight int64
	// QueueTimeout bounds how long a call waits for a free slot before
	// degrading with ReasonCapacity. Defaults to 5s.
	QueueTimeout time.Duration
	// MaxContextTokens is the prompt budget; lowest-ranked documents are
	// dropped to fit. Zero disables trimming.
	MaxContextTokens int
}

// Generator produces answers from a chat model. It is safe for concurrent use.
type Generator struct {
	// cfg is the resolved configuration.
	cfg Config
	// sem bounds in-flight completion calls.
	sem *semaphore.Weighted
}

// New returns a Generator with defaults applied to cfg.
func New(cfg Config) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = DefaultQueueTimeout
	}
	if cfg.Temperature == nil || *cfg.Temperature < 0 {
		t := DefaultTemperature
		cfg.Temperature = &t
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	return &Generator{cfg: cfg, sem: semaphore.NewWeighted(cfg.MaxInFlight)}
}

// Configured reports whether a chat model is available.
func (g *Generator) Configured() bool { return g.cfg.Model != nil }

// MaxRetries returns the number of retries after a failed attempt.
func (g *Generator) MaxRetries() uint64 { return g.cfg.MaxRetries }

// Generate answers query from docs. It never returns an error: on any failure
// the Answer carries DegradedAnswer and a Failure with the cause, which is
// also logged.
func (g *Generator) Generate(ctx context.Context, query string, docs []string) Answer {
	log := logging.FromContext(ctx).With(slog.String("model", g.cfg.ModelName))

	if g.cfg.Model == nil {
		log.Warn("generator: no completion backend configured")
		return degraded(ReasonMissingCredential, nil)
	}

	kept := budget.TrimDocuments(
		budget.EstimateMessages(BuildMessages(query, nil)),
		docs,
		budget.Estimate(contextSeparator),
		g.cfg.MaxContextTokens,
	)
	if len(kept) < len(docs) {
		log.Warn("generator: context trimmed to fit token budget",
			slog.Int("documents", len(docs)),
			slog.Int("kept", len(kept)),
			slog.Int("budget", g.cfg.MaxContextTokens),
		)
	}
	msgs := BuildMessages(query, kept)

	if err := g.acquire(ctx); err != nil {
		reason := ReasonCapacity
		if ctx.Err() != nil {
			reason = ReasonTimeout
		}
		log.Warn("generator: no in-flight slot available", slog.String("reason", string(reason)), slog.Any("error", err))
		return degraded(reason, err)
	}
	defer g.sem.Release(1)

	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      "rolerag.generate",
		Type:      g.cfg.ModelName,
		Component: components.ComponentOfChatModel,
	})

	start := time.Now()
	var text string
	attempt := 0
	op := func() (err error) {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				err = backoff.Permanent(fmt.Errorf("%w: %v", errModelPanic, r))
			}
		}()

		resp, err := g.cfg.Model.Generate(callCtx, msgs,
			model.WithTemperature(*g.cfg.Temperature),
			model.WithMaxTokens(g.cfg.MaxTokens),
		)
		if err != nil {
			return err
		}
		if resp == nil || strings.TrimSpace(resp.Content) == "" {
			return backoff.Permanent(errEmptyResponse)
		}
		text = strings.TrimSpace(resp.Content)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.cfg.RetryBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(b, g.cfg.MaxRetries), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		log.Warn("generator: completion failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.Any("error", err),
		)
	})
	if err != nil {
		reason := classify(ctx, err)
		log.Error("generator: completion failed",
			slog.String("reason", string(reason)),
			slog.Int("attempts", attempt),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)
		return degraded(reason, err)
	}

	log.Info("generator: completion succeeded",
		slog.Int("attempts", attempt),
		slog.Int("documents", len(kept)),
		slog.Duration("duration", time.Since(start)),
	)
	return Answer{Text: text}
}

var (
	// errEmptyResponse marks a completion with no text.
	errEmptyResponse = errors.New("empty completion")
	// errModelPanic marks a chat model that panicked instead of returning.
	errModelPanic = errors.New("completion panic")
)

// acquire waits up to QueueTimeout for an in-flight slot.
func (g *Generator) acquire(ctx context.Context) error {
	qctx, cancel := context.WithTimeout(ctx, g.cfg.QueueTimeout)
	defer cancel()
	if err := g.sem.Acquire(qctx, 1); err != nil {
		return fmt.Errorf("acquire slot: %w", err)
	}
	return nil
}

// classify maps a completion error to a failure Reason.
func classify(ctx context.Context, err error) Reason {
	switch {
	case errors.Is(err, errEmptyResponse):
		return ReasonEmptyResponse
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonUpstream
	}
}
