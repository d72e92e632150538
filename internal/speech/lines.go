package speech

// Fixed strings the assistant says outside of command replies. Reply
// phrasing lives in the persona package.

import (
	"fmt"
	"math/rand"
	"time"
)

// ── Lifecycle ────────────────────────────────────────────────────

// LineWelcome is spoken once when the console starts.
func LineWelcome() string {
	return "Hi, I'm ready when you are."
}

func LineShutdown() string {
	return "Shutting down. See you later."
}

// LineStoppedListening answers the stop phrase.
func LineStoppedListening() string {
	return "Okay, I'll stop listening."
}

// ── Listening acknowledgment ─────────────────────────────────────
// Spoken after the wake phrase so the user knows to start talking.

var listeningFillers = []string{
	"I'm listening.",
	"Yes?",
	"What can I do?",
	"Go ahead.",
	"I'm here.",
}

// LineListening returns a random wake acknowledgment.
func LineListening() string {
	return listeningFillers[rand.Intn(len(listeningFillers))]
}

// ListeningFillers returns every acknowledgment, for Mouth.Prefetch.
func ListeningFillers() []string {
	out := make([]string, len(listeningFillers))
	copy(out, listeningFillers)
	return out
}

// ── Reminders ────────────────────────────────────────────────────

func LineReminder(text string) string {
	return fmt.Sprintf("Reminder: %s.", text)
}

func LineReminderAgain(text string, overdue time.Duration) string {
	return fmt.Sprintf("Still waiting on: %s. That was due %s ago.", text, FormatDurationSpeech(overdue))
}

// FormatDurationSpeech returns a human-friendly spoken duration.
func FormatDurationSpeech(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0 && m == 0:
		return plural(h, "hour")
	case h > 0:
		return plural(h, "hour") + " " + plural(m, "minute")
	case m == 0:
		return plural(s, "second")
	case s == 0:
		return plural(m, "minute")
	default:
		return plural(m, "minute") + " " + plural(s, "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
