package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Compile-time interface check.
var _ domain.LLM = (*AnthropicClient)(nil)

// AnthropicClient calls the Messages API through anthropic-sdk-go.
type AnthropicClient struct {
	client anthropic.Client
	opts   Options
	log    *logger.Logger
}

// NewAnthropicClient creates an Anthropic client.
func NewAnthropicClient(apiKey string, log *logger.Logger, opts ...Option) *AnthropicClient {
	o := buildOptions(opts)
	return &AnthropicClient{
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(o.HTTPClient),
			option.WithMaxRetries(0),
		),
		opts: o,
		log:  log,
	}
}

// Generate sends the prompt as a single user turn and concatenates the
// text blocks of the reply.
func (c *AnthropicClient) Generate(ctx context.Context, prompt, model string) (string, error) {
	c.log.Debug("anthropic: generate model=%s (%d chars)", model, len(prompt))

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(c.opts.MaxTokens),
		Temperature: anthropic.Float(c.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", wrapStatus("anthropic", apiErr.StatusCode, err)
		}
		if ctx.Err() != nil {
			return "", err
		}
		return "", wrapTransport("anthropic", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		b.WriteString(block.Text)
	}
	content := b.String()
	if content == "" {
		return "", errors.New("anthropic: empty response content")
	}
	c.log.Debug("anthropic: reply (%d chars): %s", len(content), truncate(content, 120))
	return content, nil
}
