package speech

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*SpeakingNotifier)(nil)

// SpeakingNotifier forwards to an inner notifier (console, bus) and also
// queues the message on the Mouth. Urgent messages interrupt whatever is
// being said.
type SpeakingNotifier struct {
	text  domain.Notifier
	mouth *Mouth
	log   *logger.Logger
}

// NewSpeakingNotifier creates a notifier that both prints and speaks.
func NewSpeakingNotifier(text domain.Notifier, mouth *Mouth, log *logger.Logger) *SpeakingNotifier {
	return &SpeakingNotifier{
		text:  text,
		mouth: mouth,
		log:   log,
	}
}

// Notify prints the message and queues it for speech at normal priority.
func (n *SpeakingNotifier) Notify(ctx context.Context, message string) error {
	if err := n.text.Notify(ctx, message); err != nil {
		return err
	}
	n.mouth.Say(cleanForSpeech(message), PriorityNormal)
	return nil
}

// NotifyUrgent prints the message and queues it for speech at high priority.
func (n *SpeakingNotifier) NotifyUrgent(ctx context.Context, message string) error {
	if err := n.text.NotifyUrgent(ctx, message); err != nil {
		return err
	}
	n.mouth.Interrupt()
	n.mouth.Say(cleanForSpeech(message), PriorityHigh)
	return nil
}

var (
	bracketPrefix = regexp.MustCompile(`^\[[A-Za-z]+\]\s*`)
	ansiCodes     = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	codeFence     = regexp.MustCompile("(?s)```.*?```")
	markdownMarks = strings.NewReplacer("**", "", "__", "", "`", "", "# ", "")
)

// cleanForSpeech strips ANSI codes, tag prefixes, code blocks and
// markdown emphasis so the TTS engine does not read them out.
func cleanForSpeech(msg string) string {
	s := ansiCodes.ReplaceAllString(msg, "")
	s = bracketPrefix.ReplaceAllString(s, "")
	s = codeFence.ReplaceAllString(s, "")
	s = markdownMarks.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
