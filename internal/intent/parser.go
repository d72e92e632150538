// Package intent turns free-form utterances into structured commands by
// asking a language model for a strictly shaped JSON reply.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hammamikhairi/deskmate/internal/dispatch"
	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/llm"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Catalog is the view of the handler registry the parser needs.
type Catalog interface {
	Known
	Catalog() []dispatch.Entry
}

// Option configures the Parser.
type Option func(*Parser)

// WithModel sets the primary model identifier.
func WithModel(model string) Option {
	return func(p *Parser) { p.model = model }
}

// WithFallbackModel sets the model tried once after a transient or
// model-not-found failure. Empty disables the retry.
func WithFallbackModel(model string) Option {
	return func(p *Parser) { p.fallback = model }
}

// WithTimeout bounds each LLM call.
func WithTimeout(d time.Duration) Option {
	return func(p *Parser) { p.timeout = d }
}

// Parser converts utterances to commands. It never returns an error:
// every failure becomes the "error" sentinel command.
type Parser struct {
	llm      domain.LLM
	catalog  Catalog
	log      *logger.Logger
	model    string
	fallback string
	timeout  time.Duration
}

// NewParser creates a parser over the given catalog.
func NewParser(client domain.LLM, catalog Catalog, log *logger.Logger, opts ...Option) *Parser {
	p := &Parser{
		llm:     client,
		catalog: catalog,
		log:     log,
		model:   "gpt-4o-mini",
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse converts utterance into a Command.
func (p *Parser) Parse(ctx context.Context, utterance string) domain.Command {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return domain.ErrorCommand("empty request")
	}

	prompt := BuildPrompt(p.catalog.Catalog(), utterance)

	reply, err := p.generate(ctx, prompt)
	if err != nil {
		p.log.Error("intent: llm failed for %q: %v", utterance, err)
		return domain.ErrorCommand(fmt.Sprintf("language model unavailable: %v", err))
	}

	cmd, err := p.interpret(reply)
	if err != nil {
		p.log.Warn("intent: rejecting reply for %q: %v", utterance, err)
		return domain.ErrorCommand(reason(err))
	}

	p.log.Debug("intent: %q -> action=%q steps=%d", utterance, cmd.Action, len(cmd.Steps))
	return cmd
}

// generate calls the primary model, then the fallback once if the first
// failure is retryable.
func (p *Parser) generate(ctx context.Context, prompt string) (string, error) {
	reply, err := p.call(ctx, prompt, p.model)
	if err == nil {
		return reply, nil
	}
	if p.fallback == "" || !llm.IsRetryable(err) || ctx.Err() != nil {
		return "", err
	}

	p.log.Warn("intent: %s failed (%v), retrying with %s", p.model, err, p.fallback)
	return p.call(ctx, prompt, p.fallback)
}

func (p *Parser) call(ctx context.Context, prompt, model string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.llm.Generate(ctx, prompt, model)
}

// interpret runs extraction, decoding and validation on a raw reply.
func (p *Parser) interpret(reply string) (domain.Command, error) {
	raw, err := ExtractJSON(reply)
	if err != nil {
		return domain.Command{}, err
	}
	cmd, err := Decode(raw)
	if err != nil {
		return domain.Command{}, err
	}
	if err := Validate(cmd, p.catalog); err != nil {
		return domain.Command{}, err
	}
	return cmd, nil
}

// reason renders a validation error as a user-facing sentence.
func reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownAction):
		return fmt.Sprintf("I don't know how to do that (%v)", err)
	default:
		return fmt.Sprintf("I couldn't understand the request (%v)", err)
	}
}
