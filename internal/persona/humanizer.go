// Package persona shapes dispatcher results into conversational replies
// and keeps the per-process session mood.
package persona

import (
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Periodic line cadence.
const (
	EncourageEvery = 5
	TipEvery       = 8
	MilestoneEvery = 10
)

// PrefixClass is the category a reply's opening phrase is drawn from.
type PrefixClass int

const (
	PrefixSuccess PrefixClass = iota
	PrefixUpbeat
	PrefixCelebratory
	PrefixMildApology
	PrefixStrongApology
)

// String returns a human-readable prefix class.
func (c PrefixClass) String() string {
	switch c {
	case PrefixSuccess:
		return "success"
	case PrefixUpbeat:
		return "upbeat"
	case PrefixCelebratory:
		return "celebratory"
	case PrefixMildApology:
		return "mild_apology"
	case PrefixStrongApology:
		return "strong_apology"
	default:
		return "unknown"
	}
}

// Phrases returns the phrase set for the class.
func (c PrefixClass) Phrases() []string {
	switch c {
	case PrefixUpbeat:
		return UpbeatPrefixes
	case PrefixCelebratory:
		return CelebratoryPrefixes
	case PrefixMildApology:
		return MildApologyPrefixes
	case PrefixStrongApology:
		return StrongApologyPrefixes
	default:
		return SuccessPrefixes
	}
}

// upbeatActions are the launch/search/playback actions that get an
// upbeat prefix on success.
var upbeatActions = map[string]bool{
	"open_app":      true,
	"open_url":      true,
	"search_web":    true,
	"play_music":    true,
	"media_control": true,
	"run_workflow":  true,
}

// IsUpbeatAction reports whether action belongs to the launch/search/
// playback affinity set.
func IsUpbeatAction(action string) bool {
	if upbeatActions[action] {
		return true
	}
	for _, p := range []string{"open_", "search_", "play_", "launch_"} {
		if strings.HasPrefix(action, p) {
			return true
		}
	}
	return false
}

// ClassifyPrefix picks the prefix class for a result. prevErrors is the
// consecutive error count before this result, errors the count after.
func ClassifyPrefix(action string, success bool, prevErrors, errors int) PrefixClass {
	switch {
	case success && prevErrors > 0:
		return PrefixCelebratory
	case success && IsUpbeatAction(action):
		return PrefixUpbeat
	case success:
		return PrefixSuccess
	case errors >= 3:
		return PrefixStrongApology
	default:
		return PrefixMildApology
	}
}

// Option configures the Humanizer.
type Option func(*Humanizer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(h *Humanizer) { h.now = now }
}

// WithRand overrides the phrase picker's random source.
func WithRand(rng *rand.Rand) Option {
	return func(h *Humanizer) { h.rng = rng }
}

// WithBrief starts the humanizer in brief mode.
func WithBrief(on bool) Option {
	return func(h *Humanizer) { h.brief = on }
}

// Humanizer turns results into replies and owns the SessionState.
type Humanizer struct {
	mu    sync.Mutex
	state domain.SessionState
	brief bool
	rng   *rand.Rand
	now   func() time.Time
	log   *logger.Logger
}

// New creates a humanizer with a fresh session.
func New(log *logger.Logger, opts ...Option) *Humanizer {
	h := &Humanizer{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
		log: log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetBrief toggles brief mode.
func (h *Humanizer) SetBrief(on bool) {
	h.mu.Lock()
	h.brief = on
	h.mu.Unlock()
	h.log.Debug("persona: brief mode=%v", on)
}

// Brief reports whether brief mode is on.
func (h *Humanizer) Brief() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.brief
}

// State returns a copy of the session state.
func (h *Humanizer) State() domain.SessionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Shape updates the session and returns the reply for a result.
// utterance may be empty; it only feeds mood detection.
func (h *Humanizer) Shape(action string, r domain.Result, utterance string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	prevErrors := h.state.ConsecutiveErrors
	h.state.InteractionCount++
	h.state.LastInteraction = h.now()
	if r.Success {
		h.state.ConsecutiveErrors = 0
	} else {
		h.state.ConsecutiveErrors++
	}
	if strings.TrimSpace(utterance) != "" {
		h.state.Mood = DetectMood(utterance)
	}

	msg := strings.TrimSpace(r.Message)

	if h.brief {
		opener := BriefFailure
		if r.Success {
			opener = BriefSuccess
		}
		return joinSentences(opener, msg)
	}

	class := ClassifyPrefix(action, r.Success, prevErrors, h.state.ConsecutiveErrors)
	h.log.Debug("persona: action=%s class=%s errors=%d mood=%s count=%d",
		action, class, h.state.ConsecutiveErrors, h.state.Mood, h.state.InteractionCount)

	parts := []string{pick(h.rng, class.Phrases()), FirstPerson(msg)}
	parts = append(parts, h.moodLine(r.Success)...)

	if h.state.Mood != domain.MoodBusy {
		if r.Success {
			parts = append(parts, pick(h.rng, SuccessFollowUps))
		} else {
			parts = append(parts, pick(h.rng, FailureFollowUps))
		}
	}

	if h.state.InteractionCount == 1 {
		parts = append(parts, pick(h.rng, SmallTalkFor(h.state.LastInteraction)))
	}
	parts = append(parts, h.periodicLines()...)

	return joinSentences(parts...)
}

func (h *Humanizer) moodLine(success bool) []string {
	switch h.state.Mood {
	case domain.MoodFrustrated:
		return []string{pick(h.rng, EmpathyLines)}
	case domain.MoodTired:
		if success {
			return []string{pick(h.rng, RestLines)}
		}
	}
	return nil
}

func (h *Humanizer) periodicLines() []string {
	n := h.state.InteractionCount
	var out []string
	if n%EncourageEvery == 0 {
		out = append(out, pick(h.rng, Encouragements))
	}
	if n%TipEvery == 0 {
		out = append(out, pick(h.rng, Tips))
	}
	if n%MilestoneEvery == 0 {
		out = append(out, milestoneLine(h.rng, n))
	}
	return out
}

// SmallTalkFor returns the small-talk set for the hour of t: morning
// 5–11, afternoon 12–16, evening 17–20, night otherwise.
func SmallTalkFor(t time.Time) []string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return MorningSmallTalk
	case h >= 12 && h < 17:
		return AfternoonSmallTalk
	case h >= 17 && h < 21:
		return EveningSmallTalk
	default:
		return NightSmallTalk
	}
}

// joinSentences joins non-empty parts with single spaces, adding a
// period to a part that does not end in punctuation or an emoji.
func joinSentences(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
		last, _ := utf8.DecodeLastRuneInString(p)
		if !strings.ContainsRune(".!?…", last) && !unicode.Is(unicode.So, last) && !strings.Contains(p, "\n") {
			b.WriteByte('.')
		}
	}
	return b.String()
}
