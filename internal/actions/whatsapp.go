package actions

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

var _ domain.Messenger = (*WebWhatsApp)(nil)

// sendButton matches the compose box send button in WhatsApp Web.
const sendButton = `span[data-icon="send"], button[aria-label="Send"]`

// WhatsAppConfig configures the WhatsApp Web driver.
type WhatsAppConfig struct {
	Browser     string        // browser binary; empty lets rod find or download one
	ProfileDir  string        // browser profile, keeps the WhatsApp login between runs
	SendTimeout time.Duration // how long to wait for the chat to load
}

// WebWhatsApp sends messages by driving WhatsApp Web in a real browser.
// The first send opens the browser; the user scans the QR code once and
// the profile directory keeps the session.
type WebWhatsApp struct {
	cfg WhatsAppConfig
	log *logger.Logger

	mu      sync.Mutex
	browser *rod.Browser
	launch  *launcher.Launcher
}

// NewWebWhatsApp creates the messenger. No browser starts until the
// first message.
func NewWebWhatsApp(cfg WhatsAppConfig, log *logger.Logger) *WebWhatsApp {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 90 * time.Second
	}
	return &WebWhatsApp{cfg: cfg, log: log}
}

// sendURL builds the click-to-chat URL for phone with text prefilled.
func sendURL(phone, text string) string {
	q := url.Values{}
	q.Set("phone", strings.TrimPrefix(phone, "+"))
	q.Set("text", text)
	return "https://web.whatsapp.com/send?" + q.Encode()
}

func (w *WebWhatsApp) connect(ctx context.Context) (*rod.Browser, error) {
	if w.browser != nil {
		return w.browser, nil
	}
	l := launcher.New().Headless(false)
	if w.cfg.Browser != "" {
		l = l.Bin(w.cfg.Browser)
	}
	if w.cfg.ProfileDir != "" {
		l = l.UserDataDir(w.cfg.ProfileDir)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	w.log.Info("actions: whatsapp browser started (profile=%s)", w.cfg.ProfileDir)
	// Later sends bring their own contexts.
	w.browser = b.Context(context.Background())
	w.launch = l
	return w.browser, nil
}

// SendWhatsApp implements domain.Messenger.
func (w *WebWhatsApp) SendWhatsApp(ctx context.Context, phone, message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := w.connect(ctx)
	if err != nil {
		return err
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: sendURL(phone, message)})
	if err != nil {
		return fmt.Errorf("open chat: %w", err)
	}
	defer page.Close()

	btn, err := page.Context(ctx).Timeout(w.cfg.SendTimeout).Element(sendButton)
	if err != nil {
		return fmt.Errorf("chat with %s did not load (is WhatsApp Web logged in?): %w", phone, err)
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click send: %w", err)
	}
	// Give the message a moment to leave before the tab closes.
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
	}
	w.log.Debug("actions: whatsapp message sent to %s", phone)
	return nil
}

// Close shuts the browser down.
func (w *WebWhatsApp) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.browser == nil {
		return nil
	}
	err := w.browser.Close()
	w.launch.Kill()
	w.browser, w.launch = nil, nil
	return err
}
