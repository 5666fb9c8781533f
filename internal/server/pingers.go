package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/54b3r/rolerag/internal/provider"
)

// errNoCompletionBackend is reported by CompletionPinger when no chat model
// could be constructed.
var errNoCompletionBackend = errors.New("no completion backend configured; answers will be degraded")

// CompletionPinger reports the readiness of the completion backend. It uses
// the provider's zero-cost health check (model listing or tag listing) so a
// probe never spends tokens.
type CompletionPinger struct {
	// configured is false when the chat model could not be built.
	configured bool
	// check is the backend health check; nil when the backend has none.
	check provider.HealthChecker
	// name identifies the backend in readiness responses (e.g. "openrouter").
	name string
}

// NewCompletionPinger constructs a CompletionPinger. configured reports
// whether a chat model is available; check may be nil.
func NewCompletionPinger(name string, configured bool, check provider.HealthChecker) *CompletionPinger {
	return &CompletionPinger{configured: configured, check: check, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *CompletionPinger) Name() string { return p.name }

// Ping fails when no backend is configured, otherwise delegates to the
// provider health check if one exists.
func (p *CompletionPinger) Ping(ctx context.Context) error {
	if !p.configured {
		return errNoCompletionBackend
	}
	if p.check == nil {
		return nil
	}
	if err := p.check.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%s health check failed: %w", p.name, err)
	}
	return nil
}
