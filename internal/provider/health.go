package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// HealthChecker probes a backend without spending completion tokens.
type HealthChecker interface {
	// HealthCheck returns nil when the backend is reachable and accepts the
	// configured credential.
	HealthCheck(ctx context.Context) error
}

// NewHealthChecker returns a zero-cost probe for cfg's backend, or nil when the
// backend has no such endpoint.
func NewHealthChecker(cfg *Config) HealthChecker {
	switch cfg.Backend {
	case BackendOpenRouter:
		c := openai.DefaultConfig(cfg.OpenRouter.APIKey)
		c.BaseURL = cfg.OpenRouter.BaseURL
		return &modelListCheck{client: openai.NewClientWithConfig(c)}
	case BackendOpenAI:
		return &modelListCheck{client: openai.NewClient(cfg.OpenAI.APIKey)}
	case BackendAzure:
		c := openai.DefaultAzureConfig(cfg.AzureOpenAI.APIKey, cfg.AzureOpenAI.Endpoint)
		c.APIVersion = cfg.AzureOpenAI.APIVersion
		return &modelListCheck{client: openai.NewClientWithConfig(c)}
	case BackendOllama:
		return &ollamaTagsCheck{
			host:   strings.TrimRight(cfg.Ollama.Host, "/"),
			client: &http.Client{Timeout: 5 * time.Second},
		}
	default:
		return nil
	}
}

// modelListCheck lists models on an OpenAI-compatible API.
type modelListCheck struct {
	// client is the go-openai client for the backend.
	client *openai.Client
}

// HealthCheck calls GET /models.
func (c *modelListCheck) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// ollamaTagsCheck lists local models on an Ollama server.
type ollamaTagsCheck struct {
	// host is the Ollama base URL.
	host string
	// client is a short-timeout HTTP client.
	client *http.Client
}

// HealthCheck calls GET /api/tags.
func (c *ollamaTagsCheck) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
