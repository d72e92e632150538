package display

import (
	"context"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

var _ domain.Notifier = (*Notifier)(nil)

// PrintFunc prints one line of already styled text.
type PrintFunc func(text string)

// Notifier prints out-of-band messages such as due reminders.
type Notifier struct {
	log    *logger.Logger
	normal PrintFunc
	urgent PrintFunc
}

// NewNotifier prints through ui. A nil ui prints to stdout.
func NewNotifier(ui *UI, log *logger.Logger) *Notifier {
	if ui == nil {
		ui = NewUI()
	}
	return &Notifier{log: log, normal: ui.PrintChat, urgent: ui.PrintUrgent}
}

// Notify prints a normal notification.
func (n *Notifier) Notify(_ context.Context, message string) error {
	n.log.Debug("notify: %s", message)
	n.normal(message)
	return nil
}

// NotifyUrgent prints an urgent notification.
func (n *Notifier) NotifyUrgent(_ context.Context, message string) error {
	n.log.Debug("notify-urgent: %s", message)
	n.urgent("⏰ " + message)
	return nil
}
