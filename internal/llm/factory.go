package llm

import (
	"context"
	"fmt"

	"github.com/avvvet/foodbuddy-agent/internal/config"
)

// NewProvider builds the provider selected by cfg.LLMProvider. A failure here is
// a startup configuration error.
func NewProvider(ctx context.Context, cfg *config.Config) (LLMProvider, error) {
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		return NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.LLMTimeout)
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
