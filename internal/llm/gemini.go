package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Compile-time interface check.
var _ domain.LLM = (*GeminiClient)(nil)

// GeminiClient calls the Gemini API through google.golang.org/genai.
type GeminiClient struct {
	client *genai.Client
	opts   Options
	log    *logger.Logger
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, apiKey string, log *logger.Logger, opts ...Option) (*GeminiClient, error) {
	o := buildOptions(opts)
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{client: client, opts: o, log: log}, nil
}

// Generate sends the prompt as a single user content and joins the text
// parts of every candidate, skipping thought parts.
func (c *GeminiClient) Generate(ctx context.Context, prompt, model string) (string, error) {
	c.log.Debug("gemini: generate model=%s (%d chars)", model, len(prompt))

	temp := float32(c.opts.Temperature)
	result, err := c.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			Temperature:     &temp,
			MaxOutputTokens: int32(c.opts.MaxTokens),
		},
	)
	if err != nil {
		if code, ok := geminiStatus(err); ok {
			return "", wrapStatus("gemini", code, err)
		}
		if ctx.Err() != nil {
			return "", err
		}
		return "", wrapTransport("gemini", err)
	}

	var b strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text == "" || part.Thought {
				continue
			}
			b.WriteString(part.Text)
		}
	}
	content := b.String()
	if content == "" {
		return "", errors.New("gemini: empty response content")
	}
	c.log.Debug("gemini: reply (%d chars): %s", len(content), truncate(content, 120))
	return content, nil
}

func geminiStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code, true
	}
	return 0, false
}
