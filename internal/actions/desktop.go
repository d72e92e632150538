package actions

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

// ── Launcher ─────────────────────────────────────────────────────

func (h *handlers) openApp(ctx context.Context, p domain.Params) domain.Result {
	app := p.String("app_name", "")
	if app == "" {
		return domain.MissingParam("app_name")
	}
	if err := h.Launcher.Launch(ctx, app); err != nil {
		return domain.Failf("Failed to open %s: %v", app, err)
	}
	return domain.OKf("Opened %s", app)
}

func (h *handlers) openURL(ctx context.Context, p domain.Params) domain.Result {
	raw := p.String("url", "")
	if raw == "" {
		return domain.MissingParam("url")
	}
	u := normalizeURL(raw)
	if err := h.Launcher.OpenURL(ctx, u); err != nil {
		return domain.Failf("Failed to open %s: %v", u, err)
	}
	return domain.OKf("Opened %s", u).WithData("url", u)
}

// normalizeURL adds https:// to bare host names.
func normalizeURL(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

func (h *handlers) searchWeb(ctx context.Context, p domain.Params) domain.Result {
	q := p.String("query", "")
	if q == "" {
		return domain.MissingParam("query")
	}
	u := "https://www.google.com/search?q=" + url.QueryEscape(q)
	if err := h.Launcher.OpenURL(ctx, u); err != nil {
		return domain.Failf("Failed to search for %s: %v", q, err)
	}
	return domain.OKf("Searched the web for %s", q).WithData("url", u)
}

func (h *handlers) playMusic(ctx context.Context, p domain.Params) domain.Result {
	q := p.String("query", "")
	if q == "" {
		return domain.MissingParam("query")
	}
	u := "https://www.youtube.com/results?search_query=" + url.QueryEscape(q)
	if err := h.Launcher.OpenURL(ctx, u); err != nil {
		return domain.Failf("Failed to play %s: %v", q, err)
	}
	return domain.OKf("Playing %s", q).WithData("url", u)
}

// ── Media ────────────────────────────────────────────────────────

var mediaCommands = map[string]string{
	"play":       "play",
	"resume":     "play",
	"pause":      "pause",
	"toggle":     "play-pause",
	"play-pause": "play-pause",
	"next":       "next",
	"skip":       "next",
	"previous":   "previous",
	"prev":       "previous",
	"back":       "previous",
	"stop":       "stop",
}

func (h *handlers) mediaControl(ctx context.Context, p domain.Params) domain.Result {
	raw := strings.ToLower(p.String("command", ""))
	if raw == "" {
		return domain.MissingParam("command")
	}
	cmd, ok := mediaCommands[raw]
	if !ok {
		return domain.Failf("Unknown media command: %s", raw)
	}
	if err := h.Media.Media(ctx, cmd); err != nil {
		return domain.Failf("Failed to send %s to the media player: %v", cmd, err)
	}
	return domain.OKf("Sent %s to the media player", cmd)
}

// ── Keyboard ─────────────────────────────────────────────────────

func (h *handlers) typeText(ctx context.Context, p domain.Params) domain.Result {
	text := p.String("text", "")
	if text == "" {
		return domain.MissingParam("text")
	}
	if err := h.Keyboard.Type(ctx, text); err != nil {
		return domain.Failf("Failed to type text: %v", err)
	}
	return domain.OKf("Typed %d characters", len([]rune(text)))
}

func (h *handlers) pressKey(ctx context.Context, p domain.Params) domain.Result {
	keys := p.String("keys", "")
	if keys == "" {
		return domain.MissingParam("keys")
	}
	if err := h.Keyboard.Press(ctx, keys); err != nil {
		return domain.Failf("Failed to press %s: %v", keys, err)
	}
	return domain.OKf("Pressed %s", keys)
}

// ── Screen and clipboard ─────────────────────────────────────────

func (h *handlers) takeScreenshot(ctx context.Context, p domain.Params) domain.Result {
	path := p.String("path", "")
	if path == "" {
		path = filepath.Join(h.Screenshots, "screenshot-"+h.Now().Format("20060102-150405")+".png")
	}
	if err := h.Screenshotter.Capture(ctx, path); err != nil {
		return domain.Failf("Failed to take a screenshot: %v", err)
	}
	return domain.OKf("Screenshot saved to %s", path).WithData("path", path)
}

func (h *handlers) copyToClipboard(_ context.Context, p domain.Params) domain.Result {
	text := p.String("text", "")
	if text == "" {
		return domain.MissingParam("text")
	}
	if err := h.Clipboard.WriteAll(text); err != nil {
		return domain.Failf("Failed to copy to the clipboard: %v", err)
	}
	return domain.OKf("Copied %d characters to the clipboard", len([]rune(text)))
}

func (h *handlers) readClipboard(_ context.Context, _ domain.Params) domain.Result {
	text, err := h.Clipboard.ReadAll()
	if err != nil {
		return domain.Failf("Failed to read the clipboard: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.OK("The clipboard is empty")
	}
	return domain.OKf("The clipboard says: %s", truncate(text, 200)).WithData("text", text)
}

// ── Shell ────────────────────────────────────────────────────────

// runCommand runs the command line unsandboxed, with the user's
// privileges.
func (h *handlers) runCommand(ctx context.Context, p domain.Params) domain.Result {
	command := p.String("command", "")
	if command == "" {
		return domain.MissingParam("command")
	}
	h.Log.Info("actions: running %q", command)
	out, err := h.Shell.Run(ctx, command)
	if err != nil {
		return domain.Failf("Failed to run %s: %v", command, err).WithData("output", out)
	}
	msg := fmt.Sprintf("Ran %s", command)
	if s := strings.TrimSpace(out); s != "" {
		msg += ": " + truncate(s, 200)
	}
	return domain.OK(msg).WithData("output", out)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
