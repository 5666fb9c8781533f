package embedder

import "strings"

// OllamaConfig holds the settings for constructing an Ollama embedder.
type OllamaConfig struct {
	// Host is the Ollama server base URL (e.g. "http://localhost:11434").
	Host string
	// Model is the embedding model name (e.g. "all-minilm").
	Model string
}

// NewOllamaEmbedder returns an embedder for a local Ollama server. Ollama
// serves an OpenAI-compatible /v1/embeddings endpoint, so the go-openai
// client is reused; the bearer key it sends is ignored. Model() reports
// "ollama/<model>".
func NewOllamaEmbedder(cfg *OllamaConfig) *OpenAIEmbedder {
	e := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL: strings.TrimRight(cfg.Host, "/") + "/v1",
		APIKey:  "ollama",
		Model:   cfg.Model,
	})
	e.tag = "ollama/" + cfg.Model
	e.name = "ollama embedder"
	return e
}
