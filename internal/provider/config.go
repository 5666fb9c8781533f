package provider

import (
	"fmt"
)

// Validate checks that the fields required by the selected backend are set.
// A missing API key wraps ErrMissingCredential; every other problem is a
// plain configuration error.
func (c *Config) Validate() error {
	missingKey := func(env string) error {
		return fmt.Errorf("%w: %s is required for %s backend", ErrMissingCredential, env, c.Backend)
	}
	missing := func(env string) error {
		return fmt.Errorf("provider: %s is required for %s backend", env, c.Backend)
	}

	if c.Tuning.MaxTokens < 0 {
		return fmt.Errorf("provider: MODEL_MAX_TOKENS must not be negative, got %d", c.Tuning.MaxTokens)
	}
	if c.Tuning.Temperature < 0 || c.Tuning.Temperature > 2 {
		return fmt.Errorf("provider: MODEL_TEMPERATURE must be within [0, 2], got %g", c.Tuning.Temperature)
	}

	switch c.Backend {
	case BackendOpenRouter:
		if c.OpenRouter.Model == "" {
			return missing("OPENROUTER_MODEL")
		}
		if c.OpenRouter.APIKey == "" {
			return missingKey("OPENROUTER_KEY")
		}
	case BackendOllama:
		if c.Ollama.Host == "" {
			return missing("OLLAMA_HOST")
		}
		if c.Ollama.Model == "" {
			return missing("OLLAMA_MODEL")
		}
	case BackendOpenAI:
		if c.OpenAI.Model == "" {
			return missing("OPENAI_MODEL")
		}
		if c.OpenAI.APIKey == "" {
			return missingKey("OPENAI_API_KEY")
		}
	case BackendAzure:
		if c.AzureOpenAI.Endpoint == "" {
			return missing("AZURE_OPENAI_ENDPOINT")
		}
		if c.AzureOpenAI.Deployment == "" {
			return missing("AZURE_OPENAI_DEPLOYMENT")
		}
		if c.AzureOpenAI.APIKey == "" {
			return missingKey("AZURE_OPENAI_API_KEY")
		}
	case BackendGemini:
		if c.Gemini.Model == "" {
			return missing("GEMINI_MODEL")
		}
		if c.Gemini.APIKey == "" {
			return missingKey("GOOGLE_API_KEY")
		}
	case BackendArk:
		if c.Ark.Model == "" {
			return missing("ARK_MODEL")
		}
		if c.Ark.APIKey == "" {
			return missingKey("ARK_API_KEY")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q (valid: openrouter, ollama, openai, azure, gemini, ark)", c.Backend)
	}
	return nil
}
