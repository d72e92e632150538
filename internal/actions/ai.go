package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

const chatPersona = `You are deskmate, a friendly assistant living on the user's desktop. Reply in one to three short sentences that sound natural when spoken aloud. No markdown, no lists.`

// historyTurns is how many earlier records conversational_ai replays to
// the model.
const historyTurns = 10

func (h *handlers) generate(ctx context.Context, prompt string) (string, error) {
	reply, err := h.LLM.Generate(ctx, prompt, h.Model)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("empty reply from model")
	}
	return reply, nil
}

func (h *handlers) conversational(ctx context.Context, p domain.Params) domain.Result {
	msg := p.String("message", "")
	if msg == "" {
		return domain.MissingParam("message")
	}

	var b strings.Builder
	b.WriteString(chatPersona)
	b.WriteString("\n\n")
	if h.History != nil {
		recs, err := h.History.Recent(ctx, h.Context, historyTurns)
		if err != nil {
			h.Log.Warn("actions: loading history: %v", err)
		}
		if len(recs) > 0 {
			b.WriteString("Conversation so far:\n")
			for _, r := range recs {
				fmt.Fprintf(&b, "%s: %s\n", speaker(r.Role), r.Content)
			}
			b.WriteByte('\n')
		}
	}
	fmt.Fprintf(&b, "User: %s\nAssistant:", msg)

	reply, err := h.generate(ctx, b.String())
	if err != nil {
		return domain.Failf("Failed to get a reply: %v", err)
	}
	return domain.OK(reply)
}

func speaker(role string) string {
	if role == "assistant" {
		return "Assistant"
	}
	return "User"
}

func (h *handlers) generateText(ctx context.Context, p domain.Params) domain.Result {
	prompt := p.String("prompt", "")
	if prompt == "" {
		return domain.MissingParam("prompt")
	}
	text, err := h.generate(ctx, prompt)
	if err != nil {
		return domain.Failf("Failed to generate text: %v", err)
	}
	return domain.OK(text)
}

func (h *handlers) generateCode(ctx context.Context, p domain.Params) domain.Result {
	lang := p.String("language", "")
	desc := p.String("description", "")
	switch {
	case lang == "":
		return domain.MissingParam("language")
	case desc == "":
		return domain.MissingParam("description")
	}

	prompt := fmt.Sprintf("Write %s code that does the following: %s\nReply with only the code in one fenced code block. Keep comments brief.", lang, desc)
	reply, err := h.generate(ctx, prompt)
	if err != nil {
		return domain.Failf("Failed to generate %s code: %v", lang, err)
	}

	r := domain.OKf("Generated %s code for %s", lang, desc)
	r.GeneratedCode = codeBlock(reply)
	return r.WithData("language", strings.ToLower(lang))
}

// codeBlock returns the body of the first fenced block in s, or s itself
// when there is none.
func codeBlock(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return strings.TrimSpace(s)
	}
	body := s[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:] // drop the language tag line
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimRight(body, " \n\t")
}

func (h *handlers) writeLetter(ctx context.Context, p domain.Params) domain.Result {
	recipient := p.String("recipient", "")
	topic := p.String("topic", "")
	tone := p.String("tone", "friendly")
	switch {
	case recipient == "":
		return domain.MissingParam("recipient")
	case topic == "":
		return domain.MissingParam("topic")
	}

	prompt := fmt.Sprintf("Write a %s letter to %s about %s. Include a greeting and a sign-off. Plain text only.", tone, recipient, topic)
	letter, err := h.generate(ctx, prompt)
	if err != nil {
		return domain.Failf("Failed to write the letter: %v", err)
	}
	r := domain.OKf("Wrote a %s letter to %s about %s", tone, recipient, topic)
	r.GeneratedCode = letter
	return r.WithData("language", "text")
}
