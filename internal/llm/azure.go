package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Compile-time interface check.
var _ domain.LLM = (*AzureClient)(nil)

// ── Wire types ───────────────────────────────────────────────────

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// message is a single chat-completion message.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// payload is the request body sent to the chat-completions endpoint.
type payload struct {
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	MaxTokens   int       `json:"max_tokens"`
}

// apiResponse is the top-level response envelope.
type apiResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// ── Client ───────────────────────────────────────────────────────

// AzureClient talks to an Azure OpenAI resource. The model argument of
// Generate is the deployment name.
type AzureClient struct {
	endpoint   string // https://<resource>.openai.azure.com
	apiKey     string
	apiVersion string
	opts       Options
	log        *logger.Logger
}

// NewAzureClient creates an Azure OpenAI chat client.
func NewAzureClient(endpoint, apiKey, apiVersion string, log *logger.Logger, opts ...Option) *AzureClient {
	return &AzureClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		apiVersion: apiVersion,
		opts:       buildOptions(opts),
		log:        log,
	}
}

func (c *AzureClient) url(deployment string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(deployment), url.QueryEscape(c.apiVersion))
}

// Generate sends the prompt as a single user message and returns the
// assistant's reply.
func (c *AzureClient) Generate(ctx context.Context, prompt, model string) (string, error) {
	body := payload{
		Messages:    []message{{Role: RoleUser, Content: prompt}},
		Temperature: c.opts.Temperature,
		TopP:        0.95,
		MaxTokens:   c.opts.MaxTokens,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("azure: marshal payload: %w", err)
	}

	endpoint := c.url(model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("azure: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	c.log.Debug("azure: POST %s (%d bytes)", endpoint, len(jsonData))

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("azure: %w", ctx.Err())
		}
		return "", wrapTransport("azure", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapTransport("azure", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", wrapStatus("azure", resp.StatusCode, errors.New(truncate(string(respBody), 200)))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("azure: unmarshal response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", errors.New("azure: empty response (no choices)")
	}

	reply := result.Choices[0].Message.Content
	c.log.Debug("azure: reply (%d chars): %s", len(reply), truncate(reply, 120))
	return reply, nil
}
