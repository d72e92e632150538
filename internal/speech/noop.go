// Package speech provides speech input (capture, recognition, file
// decoding) and output (synthesis, playback, feedback tones).
package speech

import (
	"context"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Compile-time interface check.
var _ domain.Speaker = (*NoOp)(nil)

// NoOp is the speaker when text-to-speech is off. Replies are only
// logged.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a silent speaker.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Speak logs the text at debug level.
func (n *NoOp) Speak(_ context.Context, text string) error {
	n.log.Debug("speech no-op: would say %q", text)
	return nil
}
