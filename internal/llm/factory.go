package llm

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/deskmate/internal/config"
	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// New builds the client selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig, log *logger.Logger) (domain.LLM, error) {
	opts := []Option{
		WithTemperature(cfg.Temperature),
		WithMaxTokens(cfg.MaxTokens),
		WithTimeout(cfg.Timeout),
	}
	if cfg.Proxy != "" {
		hc, err := NewSOCKSClient(cfg.Proxy, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithHTTPClient(hc))
		log.Info("llm: routing %s through socks5 %s", cfg.Provider, cfg.Proxy)
	}

	switch cfg.Provider {
	case "azure":
		return NewAzureClient(cfg.Endpoint, cfg.APIKey, cfg.APIVersion, log, opts...), nil
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Endpoint, log, opts...), nil
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, log, opts...), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, log, opts...)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
