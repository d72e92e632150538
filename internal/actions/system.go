package actions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Launcher      = (*ExecLauncher)(nil)
	_ domain.Keyboard      = (*Xdotool)(nil)
	_ domain.Screenshotter = (*ScreenshotTool)(nil)
	_ domain.Clipboard     = SystemClipboard{}
	_ MediaController      = (*Playerctl)(nil)
	_ Shell                = (*SystemShell)(nil)
)

// execFunc runs a program. When wait is false the program is started
// and reaped in the background; output is then always nil.
type execFunc func(ctx context.Context, wait bool, name string, args ...string) ([]byte, error)

func systemExec(ctx context.Context, wait bool, name string, args ...string) ([]byte, error) {
	if !wait {
		// Detached programs outlive the request; do not tie them to ctx.
		cmd := exec.Command(name, args...)
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		go func() { _ = cmd.Wait() }()
		return nil, nil
	}
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// ── Launcher ─────────────────────────────────────────────────────

// ExecLauncher starts applications and URLs with the platform opener.
type ExecLauncher struct {
	goos string
	exec execFunc
	look func(string) (string, error)
	log  *logger.Logger
}

// NewExecLauncher creates a launcher for the running OS.
func NewExecLauncher(log *logger.Logger) *ExecLauncher {
	return &ExecLauncher{goos: runtime.GOOS, exec: systemExec, look: exec.LookPath, log: log}
}

// Launch implements domain.Launcher. On Linux an executable on PATH is
// started directly; anything else goes through the desktop opener.
func (l *ExecLauncher) Launch(ctx context.Context, app string, args ...string) error {
	var name string
	var argv []string
	switch l.goos {
	case "darwin":
		name, argv = "open", append([]string{"-a", app}, withArgs(args)...)
	case "windows":
		name, argv = "cmd", append([]string{"/c", "start", "", app}, args...)
	default:
		bin := strings.ToLower(strings.ReplaceAll(app, " ", "-"))
		if path, err := l.look(bin); err == nil {
			name, argv = path, args
		} else {
			name, argv = "gtk-launch", []string{bin}
		}
	}
	l.log.Debug("actions: launch %s %v", name, argv)
	_, err := l.exec(ctx, false, name, argv...)
	if err != nil {
		return fmt.Errorf("launch %s: %w", app, err)
	}
	return nil
}

func withArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	return append([]string{"--args"}, args...)
}

// OpenURL implements domain.Launcher.
func (l *ExecLauncher) OpenURL(ctx context.Context, u string) error {
	var name string
	var argv []string
	switch l.goos {
	case "darwin":
		name, argv = "open", []string{u}
	case "windows":
		name, argv = "rundll32", []string{"url.dll,FileProtocolHandler", u}
	default:
		name, argv = "xdg-open", []string{u}
	}
	if _, err := l.exec(ctx, false, name, argv...); err != nil {
		return fmt.Errorf("open %s: %w", u, err)
	}
	return nil
}

// ── Keyboard ─────────────────────────────────────────────────────

// Xdotool types and presses keys through the xdotool binary (X11).
type Xdotool struct {
	exec execFunc
}

// NewXdotool creates the keyboard driver.
func NewXdotool() *Xdotool { return &Xdotool{exec: systemExec} }

// Type implements domain.Keyboard.
func (x *Xdotool) Type(ctx context.Context, text string) error {
	_, err := x.exec(ctx, true, "xdotool", "type", "--delay", "12", "--", text)
	return err
}

// Press implements domain.Keyboard. keys is a combination such as
// "ctrl+shift+t" or "enter".
func (x *Xdotool) Press(ctx context.Context, keys string) error {
	_, err := x.exec(ctx, true, "xdotool", "key", "--", keySym(keys))
	return err
}

var keyNames = map[string]string{
	"control":   "ctrl",
	"cmd":       "super",
	"win":       "super",
	"windows":   "super",
	"enter":     "Return",
	"return":    "Return",
	"esc":       "Escape",
	"escape":    "Escape",
	"tab":       "Tab",
	"space":     "space",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"del":       "Delete",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Prior",
	"pagedown":  "Next",
}

// keySym converts "Ctrl + Enter" style input to an xdotool key spec.
func keySym(keys string) string {
	parts := strings.FieldsFunc(strings.ToLower(keys), func(r rune) bool { return r == '+' || r == ' ' })
	for i, p := range parts {
		if n, ok := keyNames[p]; ok {
			parts[i] = n
		} else if isFunctionKey(p) {
			parts[i] = strings.ToUpper(p)
		}
	}
	return strings.Join(parts, "+")
}

// isFunctionKey matches f1..f24.
func isFunctionKey(k string) bool {
	if len(k) < 2 || len(k) > 3 || k[0] != 'f' {
		return false
	}
	for _, c := range k[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ── Screenshots ──────────────────────────────────────────────────

// ScreenshotTool captures the screen with the first capture program
// found on PATH.
type ScreenshotTool struct {
	goos string
	exec execFunc
	look func(string) (string, error)
}

// NewScreenshotTool creates a screenshotter for the running OS.
func NewScreenshotTool() *ScreenshotTool {
	return &ScreenshotTool{goos: runtime.GOOS, exec: systemExec, look: exec.LookPath}
}

// Capture implements domain.Screenshotter.
func (s *ScreenshotTool) Capture(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var candidates [][]string
	switch s.goos {
	case "darwin":
		candidates = [][]string{{"screencapture", "-x", path}}
	default:
		candidates = [][]string{
			{"gnome-screenshot", "-f", path},
			{"grim", path},
			{"scrot", "-o", path},
			{"import", "-window", "root", path},
		}
	}
	for _, c := range candidates {
		if _, err := s.look(c[0]); err != nil {
			continue
		}
		_, err := s.exec(ctx, true, c[0], c[1:]...)
		return err
	}
	return fmt.Errorf("no screenshot tool found: %w", domain.ErrDeviceUnavailable)
}

// ── Media ────────────────────────────────────────────────────────

// Playerctl drives MPRIS media players.
type Playerctl struct {
	exec execFunc
}

// NewPlayerctl creates the media controller.
func NewPlayerctl() *Playerctl { return &Playerctl{exec: systemExec} }

// Media implements MediaController.
func (p *Playerctl) Media(ctx context.Context, command string) error {
	_, err := p.exec(ctx, true, "playerctl", command)
	return err
}

// ── Shell ────────────────────────────────────────────────────────

// SystemShell runs command lines through the platform shell with a
// time limit. It is not sandboxed.
type SystemShell struct {
	timeout time.Duration
	exec    execFunc
}

// NewSystemShell creates a shell runner. timeout <= 0 means 30s.
func NewSystemShell(timeout time.Duration) *SystemShell {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SystemShell{timeout: timeout, exec: systemExec}
}

// Run implements Shell.
func (s *SystemShell) Run(ctx context.Context, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	name, flag := "sh", "-c"
	if runtime.GOOS == "windows" {
		name, flag = "cmd", "/C"
	}
	out, err := s.exec(ctx, true, name, flag, command)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return string(out), fmt.Errorf("timed out after %s", s.timeout)
	}
	return string(out), err
}

// ── Clipboard ────────────────────────────────────────────────────

// SystemClipboard is the OS clipboard.
type SystemClipboard struct{}

// ReadAll implements domain.Clipboard.
func (SystemClipboard) ReadAll() (string, error) {
	if clipboard.Unsupported {
		return "", domain.ErrDeviceUnavailable
	}
	return clipboard.ReadAll()
}

// WriteAll implements domain.Clipboard.
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return domain.ErrDeviceUnavailable
	}
	return clipboard.WriteAll(text)
}
