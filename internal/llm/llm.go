// Package llm provides the language-model clients behind domain.LLM:
// Azure OpenAI over plain HTTP, and the OpenAI, Anthropic and Gemini
// SDKs. Every client classifies provider failures into
// domain.ErrTransient or domain.ErrModelNotFound so callers can decide
// whether a fallback model is worth trying.
package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

// Options holds settings shared by every provider client.
type Options struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Option configures a provider client.
type Option func(*Options)

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = t }
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithHTTPClient routes requests through the given client, e.g. one built
// by NewSOCKSClient.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

func buildOptions(opts []Option) Options {
	o := Options{
		Temperature: 0.2,
		MaxTokens:   1024,
		Timeout:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	return o
}

// classifyStatus maps an HTTP status to the domain error it represents,
// or nil when the status is neither transient nor a missing model.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusNotFound:
		return domain.ErrModelNotFound
	case code == http.StatusTooManyRequests,
		code == http.StatusRequestTimeout,
		code >= 500:
		return domain.ErrTransient
	default:
		return nil
	}
}

// wrapStatus annotates err with the classification for code, keeping
// the provider error in the chain.
func wrapStatus(provider string, code int, err error) error {
	if kind := classifyStatus(code); kind != nil {
		return fmt.Errorf("%s: %w (status %d): %w", provider, kind, code, err)
	}
	return fmt.Errorf("%s: status %d: %w", provider, code, err)
}

// wrapTransport classifies errors that never reached the provider.
// Timeouts and connection failures are treated as transient.
func wrapTransport(provider string, err error) error {
	if errors.Is(err, domain.ErrTransient) || errors.Is(err, domain.ErrModelNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", provider, domain.ErrTransient, err)
}

// IsRetryable reports whether err warrants a retry with a fallback model.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrTransient) || errors.Is(err, domain.ErrModelNotFound)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
