// Package provider defines the chat model configuration and factory for
// selecting and constructing LLM backend implementations at runtime.
// Supported backends: OpenRouter (default), Ollama, OpenAI, Azure OpenAI,
// Google Gemini, and Volcengine Ark.
package provider

import (
	"errors"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOpenRouter selects the OpenRouter OpenAI-compatible gateway.
	BackendOpenRouter Backend = "openrouter"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendArk selects the Volcengine Ark model runtime.
	BackendArk Backend = "ark"
)

// ErrMissingCredential is wrapped by Validate when the selected backend has no
// API key. Callers may start anyway and serve degraded answers.
var ErrMissingCredential = errors.New("provider: missing credential")

// Default OpenRouter settings.
const (
	// DefaultOpenRouterURL is the OpenRouter OpenAI-compatible API base.
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"
	// DefaultOpenRouterModel is the completion model used when none is set.
	DefaultOpenRouterModel = "mistralai/mistral-7b-instruct"
)

// Default generation tuning.
const (
	// DefaultMaxTokens caps generated tokens per answer.
	DefaultMaxTokens = 500
	// DefaultTemperature is the sampling temperature.
	DefaultTemperature float32 = 0.7
)

// ProviderOpenRouter holds OpenRouter settings.
type ProviderOpenRouter struct {
	// APIKey is read from OPENROUTER_KEY.
	APIKey string
	// Model is the OpenRouter model slug (OPENROUTER_MODEL).
	Model string
	// BaseURL overrides the API base (OPENROUTER_BASE_URL).
	BaseURL string
}

// ProviderOllama holds Ollama settings.
type ProviderOllama struct {
	// Host is the Ollama base URL (OLLAMA_HOST).
	Host string
	// Model is the chat model name (OLLAMA_MODEL).
	Model string
}

// ProviderOpenAI holds OpenAI settings.
type ProviderOpenAI struct {
	// APIKey is read from OPENAI_API_KEY.
	APIKey string
	// Model is the chat model name (OPENAI_MODEL).
	Model string
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	// APIKey is read from AZURE_OPENAI_API_KEY.
	APIKey string
	// Endpoint is the resource endpoint (AZURE_OPENAI_ENDPOINT).
	Endpoint string
	// Deployment is the deployment name (AZURE_OPENAI_DEPLOYMENT).
	Deployment string
	// APIVersion is the REST API version (AZURE_OPENAI_API_VERSION).
	APIVersion string
}

// ProviderGemini holds Google Gemini settings.
type ProviderGemini struct {
	// APIKey is read from GOOGLE_API_KEY.
	APIKey string
	// Model is the Gemini model name (GEMINI_MODEL).
	Model string
}

// ProviderArk holds Volcengine Ark settings.
type ProviderArk struct {
	// APIKey is read from ARK_API_KEY.
	APIKey string
	// Model is the Ark endpoint or model ID (ARK_MODEL).
	Model string
	// BaseURL overrides the Ark API base (ARK_BASE_URL).
	BaseURL string
}

// SharedTuning holds generation parameters common to all backends.
type SharedTuning struct {
	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int
	// Temperature controls response randomness.
	Temperature float32
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend
	// OpenRouter is used when Backend is openrouter.
	OpenRouter ProviderOpenRouter
	// Ollama is used when Backend is ollama.
	Ollama ProviderOllama
	// OpenAI is used when Backend is openai.
	OpenAI ProviderOpenAI
	// AzureOpenAI is used when Backend is azure.
	AzureOpenAI ProviderAzureOpenAI
	// Gemini is used when Backend is gemini.
	Gemini ProviderGemini
	// Ark is used when Backend is ark.
	Ark ProviderArk
	// Tuning applies to every backend.
	Tuning SharedTuning
}

// ModelName returns the model identifier of the selected backend.
func (c *Config) ModelName() string {
	switch c.Backend {
	case BackendOpenRouter:
		return c.OpenRouter.Model
	case BackendOllama:
		return c.Ollama.Model
	case BackendOpenAI:
		return c.OpenAI.Model
	case BackendAzure:
		return c.AzureOpenAI.Deployment
	case BackendGemini:
		return c.Gemini.Model
	case BackendArk:
		return c.Ark.Model
	default:
		return ""
	}
}
