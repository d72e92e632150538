package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Compile-time interface check.
var _ domain.LLM = (*OpenAIClient)(nil)

// OpenAIClient calls the chat-completions API through openai-go.
type OpenAIClient struct {
	client openai.Client
	opts   Options
	log    *logger.Logger
}

// NewOpenAIClient creates an OpenAI client. baseURL may be empty for the
// public API or point at any compatible server.
func NewOpenAIClient(apiKey, baseURL string, log *logger.Logger, opts ...Option) *OpenAIClient {
	o := buildOptions(opts)
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(o.HTTPClient),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client: openai.NewClient(reqOpts...),
		opts:   o,
		log:    log,
	}
}

// Generate sends the prompt as a single user message.
func (c *OpenAIClient) Generate(ctx context.Context, prompt, model string) (string, error) {
	c.log.Debug("openai: generate model=%s (%d chars)", model, len(prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(c.opts.Temperature),
		MaxTokens:   openai.Int(int64(c.opts.MaxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", wrapStatus("openai", apiErr.StatusCode, err)
		}
		if ctx.Err() != nil {
			return "", err
		}
		return "", wrapTransport("openai", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", errors.New("openai: empty message content")
	}
	c.log.Debug("openai: reply (%d chars): %s", len(content), truncate(content, 120))
	return content, nil
}
