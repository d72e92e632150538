package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/deskmate/internal/config"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

func TestNewSelectsProvider(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	base := config.LLMConfig{APIKey: "k", Endpoint: "https://example.openai.azure.com", Timeout: time.Second, MaxTokens: 64}

	tests := []struct {
		provider string
		check    func(t *testing.T, v any)
	}{
		{"azure", func(t *testing.T, v any) { assert.IsType(t, &AzureClient{}, v) }},
		{"openai", func(t *testing.T, v any) { assert.IsType(t, &OpenAIClient{}, v) }},
		{"anthropic", func(t *testing.T, v any) { assert.IsType(t, &AnthropicClient{}, v) }},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := base
			cfg.Provider = tt.provider
			c, err := New(context.Background(), cfg, log)
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: "carrier-pigeon"}, logger.New(logger.LevelOff, nil))
	assert.Error(t, err)
}

func TestNewWithProxy(t *testing.T) {
	cfg := config.LLMConfig{Provider: "openai", APIKey: "k", Proxy: "127.0.0.1:1080", Timeout: time.Second}
	c, err := New(context.Background(), cfg, logger.New(logger.LevelOff, nil))
	require.NoError(t, err)
	oc := c.(*OpenAIClient)
	assert.NotNil(t, oc.opts.HTTPClient.Transport)
}
