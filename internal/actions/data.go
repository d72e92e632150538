package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/intent"
	"github.com/hammamikhairi/deskmate/internal/speech"
)

// ── Messaging ────────────────────────────────────────────────────

var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

// normalizePhone strips the separators people say or type in numbers.
func normalizePhone(raw string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, raw)
}

func (h *handlers) sendWhatsApp(ctx context.Context, p domain.Params) domain.Result {
	phone := normalizePhone(p.String("phone", ""))
	msg := p.String("message", "")
	switch {
	case phone == "":
		return domain.MissingParam("phone")
	case msg == "":
		return domain.MissingParam("message")
	case !phonePattern.MatchString(phone):
		return domain.Failf("Invalid phone number: %s", phone)
	}
	if err := h.Messenger.SendWhatsApp(ctx, phone, msg); err != nil {
		return domain.Failf("Failed to send WhatsApp message to %s: %v", phone, err)
	}
	return domain.OKf("✅ WhatsApp message sent to %s", phone)
}

// ── Notes ────────────────────────────────────────────────────────

const notesNamespace = "notes"

func (h *handlers) addNote(ctx context.Context, p domain.Params) domain.Result {
	text := p.String("text", "")
	if text == "" {
		return domain.MissingParam("text")
	}
	// RFC 3339 keys sort chronologically.
	key := h.Now().UTC().Format(time.RFC3339Nano)
	if err := h.KV.Put(ctx, notesNamespace, key, text); err != nil {
		return domain.Failf("Failed to save the note: %v", err)
	}
	return domain.OKf("Added a note: %s", text)
}

func (h *handlers) listNotes(ctx context.Context, _ domain.Params) domain.Result {
	notes, err := h.KV.List(ctx, notesNamespace)
	if err != nil {
		return domain.Failf("Failed to read notes: %v", err)
	}
	if len(notes) == 0 {
		return domain.OK("You have no notes")
	}
	keys := make([]string, 0, len(notes))
	for k := range notes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	texts := make([]string, len(keys))
	for i, k := range keys {
		texts[i] = notes[k]
	}
	return domain.OKf("You have %s: %s", countNoun(len(texts), "note"), strings.Join(texts, "; ")).
		WithData("notes", texts)
}

func countNoun(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// ── Reminders ────────────────────────────────────────────────────

func (h *handlers) setReminder(_ context.Context, p domain.Params) domain.Result {
	text := p.String("text", "")
	minutes := p.Int("minutes", 0)
	switch {
	case text == "":
		return domain.MissingParam("text")
	case minutes <= 0:
		return domain.MissingParam("minutes")
	}
	in := time.Duration(minutes) * time.Minute
	r := h.Reminders.Add(text, in)
	return domain.OKf("Set a reminder to %s in %s", text, speech.FormatDurationSpeech(in)).WithData("id", r.ID)
}

func (h *handlers) listReminders(context.Context, domain.Params) domain.Result {
	list := h.Reminders.List()
	if len(list) == 0 {
		return domain.OK("You have no reminders")
	}
	now := h.Now()
	parts := make([]string, len(list))
	for i, r := range list {
		if r.Fired {
			parts[i] = r.Text + " (due now)"
			continue
		}
		parts[i] = fmt.Sprintf("%s in %s", r.Text, speech.FormatDurationSpeech(r.Due.Sub(now)))
	}
	return domain.OKf("You have %s: %s", countNoun(len(list), "reminder"), strings.Join(parts, "; "))
}

// dismissReminder cancels the soonest reminder whose ID matches or whose
// text contains the given text.
func (h *handlers) dismissReminder(_ context.Context, p domain.Params) domain.Result {
	q := strings.TrimSpace(p.String("text", ""))
	if q == "" {
		return domain.MissingParam("text")
	}
	for _, r := range h.Reminders.List() {
		if r.ID != q && !strings.Contains(strings.ToLower(r.Text), strings.ToLower(q)) {
			continue
		}
		if err := h.Reminders.Dismiss(r.ID); err != nil {
			return domain.Failf("Failed to dismiss the reminder: %v", err)
		}
		return domain.OKf("Dismissed the reminder to %s", r.Text)
	}
	return domain.Failf("No reminder matches %q", q)
}

// ── Workflows ────────────────────────────────────────────────────

type workflowDepthKey struct{}

// maxWorkflowDepth bounds run_workflow calling run_workflow.
const maxWorkflowDepth = 3

func (h *handlers) saveWorkflow(ctx context.Context, p domain.Params) domain.Result {
	name := p.String("name", "")
	if name == "" {
		return domain.MissingParam("name")
	}
	steps, err := h.decodeSteps(p["steps"])
	if err != nil {
		if errors.Is(err, domain.ErrMissingParam) {
			return domain.MissingParam("steps")
		}
		return domain.Failf("Failed to save workflow %s: %v", name, err)
	}
	w, err := h.Workflows.Save(ctx, name, p.String("description", ""), steps)
	if err != nil {
		return domain.Failf("Failed to save workflow %s: %v", name, err)
	}
	return domain.OKf("Saved workflow %s with %s", w.Name, countNoun(len(w.Steps), "step")).
		WithData("version", w.Version)
}

// decodeSteps accepts steps as a decoded JSON array or as a JSON string
// and validates them like a parsed workflow.
func (h *handlers) decodeSteps(v any) ([]domain.Command, error) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return nil, domain.ErrMissingParam
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, domain.ErrMissingParam
		}
		raw = []byte(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("steps: %w", err)
		}
		raw = b
	}

	wrapped := fmt.Sprintf(`{"steps": %s, "description": "saved"}`, raw)
	cmd, err := intent.Decode(wrapped)
	if err != nil {
		return nil, err
	}
	if err := intent.Validate(cmd, h.known); err != nil {
		return nil, err
	}
	return cmd.Steps, nil
}

func (h *handlers) listWorkflows(ctx context.Context, _ domain.Params) domain.Result {
	list := h.Workflows.List(ctx)
	if len(list) == 0 {
		return domain.OK("There are no saved workflows")
	}
	parts := make([]string, len(list))
	names := make([]string, len(list))
	for i, s := range list {
		parts[i] = fmt.Sprintf("%s (%s)", s.Name, countNoun(s.Steps, "step"))
		names[i] = s.Name
	}
	return domain.OKf("Saved workflows: %s", strings.Join(parts, ", ")).WithData("workflows", names)
}

func (h *handlers) runWorkflow(ctx context.Context, p domain.Params) domain.Result {
	name := p.String("name", "")
	if name == "" {
		return domain.MissingParam("name")
	}
	depth, _ := ctx.Value(workflowDepthKey{}).(int)
	if depth >= maxWorkflowDepth {
		return domain.Failf("Failed to run workflow %s: workflows nested too deeply", name)
	}
	w, err := h.Workflows.Get(ctx, name)
	if err != nil {
		return domain.Failf("Failed to run workflow %s: no such workflow", name)
	}
	ctx = context.WithValue(ctx, workflowDepthKey{}, depth+1)
	return h.Runner.Dispatch(ctx, w.Command())
}

// ── Session ──────────────────────────────────────────────────────

func (h *handlers) toggleBrief(_ context.Context, p domain.Params) domain.Result {
	on := p.Bool("enabled", !h.Brief.Brief())
	h.Brief.SetBrief(on)
	if on {
		return domain.OK("Set brief mode on")
	}
	return domain.OK("Set brief mode off")
}

func (h *handlers) showHistory(ctx context.Context, p domain.Params) domain.Result {
	limit := p.Int("limit", 10)
	if limit <= 0 {
		limit = 10
	}
	recs, err := h.History.Recent(ctx, h.Context, limit)
	if err != nil {
		return domain.Failf("Failed to read history: %v", err)
	}
	if len(recs) == 0 {
		return domain.OK("There is no history yet")
	}
	var b strings.Builder
	if len(recs) == 1 {
		b.WriteString("Here is the last message:")
	} else {
		fmt.Fprintf(&b, "Here are the last %d messages:", len(recs))
	}
	for _, r := range recs {
		fmt.Fprintf(&b, "\n[%s] %s: %s", r.Timestamp.Format("15:04"), r.Role, truncate(r.Content, 120))
	}
	return domain.OK(b.String()).WithData("count", len(recs))
}
