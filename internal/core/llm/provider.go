package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/neilberkman/escriba/internal/core/config"
	"github.com/neilberkman/escriba/internal/core/models"
)

// Provider is the interface for LLM backends
type Provider interface {
	// GenerateText sends prompt as a single user message and returns the reply
	GenerateText(ctx context.Context, prompt string) (string, error)

	// Name returns the provider name (e.g., "openrouter", "openai", "bedrock")
	Name() string
}

// NewProvider builds the provider named by cfg.Provider
func NewProvider(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "openrouter", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm api key is not configured (set llm.api_key or ESCRIBA_LLM_API_KEY)")
		}
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		name := cfg.Provider
		if name == "" {
			name = "openrouter"
		}
		return NewChatProvider(ChatConfig{
			Name:        name,
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     timeout,
		})
	case "bedrock":
		return NewBedrockProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// WithSettings overlays the user's saved settings on the configured LLM section
func WithSettings(cfg config.LLMConfig, s models.Settings) config.LLMConfig {
	if s.LLMAPIKey != "" {
		cfg.APIKey = s.LLMAPIKey
	}
	if s.Model != "" {
		cfg.Model = s.Model
	}
	if s.Temperature != nil {
		t := *s.Temperature
		cfg.Temperature = &t
	}
	if s.MaxTokens > 0 {
		cfg.MaxTokens = s.MaxTokens
	}
	return cfg
}
