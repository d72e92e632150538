// Package voice runs the voice activation loop: capture a phrase,
// transcribe it, gate on a wake phrase and hand the command text to a
// submit callback. The loop never learns what the command did.
package voice

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
	"github.com/hammamikhairi/deskmate/internal/speech"
)

// Default capture bounds.
const (
	DefaultPhraseLimit    = 5 * time.Second
	DefaultSilenceTimeout = 1 * time.Second
	DefaultCalibration    = 1 * time.Second
)

// State is the loop's listening state, reported through the state hook.
type State int

const (
	StateIdle      State = iota // not running
	StateWaiting                // waiting for a wake phrase
	StateArmed                  // wake phrase heard, next phrase is a command
	StateCapturing              // single-shot capture in progress
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateArmed:
		return "armed"
	case StateCapturing:
		return "capturing"
	default:
		return "idle"
	}
}

// ToneSink plays feedback tones without blocking. *speech.Tones
// satisfies it.
type ToneSink interface {
	Play(speech.Tone)
}

// Option configures the Listener.
type Option func(*Listener)

// WithWakeWords enables the wake gate with the given phrases. An empty
// list disables it: every utterance is a command.
func WithWakeWords(words ...string) Option {
	return func(l *Listener) { l.wakeWords = words }
}

// WithStopPhrase sets the phrase that ends Run.
func WithStopPhrase(p string) Option {
	return func(l *Listener) { l.stopPhrase = p }
}

// WithBounds sets the initial-silence timeout and maximum phrase length.
func WithBounds(silenceTimeout, phraseLimit time.Duration) Option {
	return func(l *Listener) {
		if silenceTimeout > 0 {
			l.silenceTimeout = silenceTimeout
		}
		if phraseLimit > 0 {
			l.phraseLimit = phraseLimit
		}
	}
}

// WithCalibration sets how long Run samples ambient noise at start.
func WithCalibration(d time.Duration) Option {
	return func(l *Listener) { l.calibration = d }
}

// WithTones enables audible feedback.
func WithTones(t ToneSink) Option {
	return func(l *Listener) { l.tones = t }
}

// WithEar replaces capture+transcribe with a single-step ear.
func WithEar(e domain.Ear) Option {
	return func(l *Listener) { l.ear = e }
}

// WithBusy sets a func that reports when the assistant is talking. The
// loop does not capture while it returns true.
func WithBusy(busy func() bool) Option {
	return func(l *Listener) { l.busy = busy }
}

// WithAnnouncer sets where short spoken acknowledgements go: the wake
// reply and the goodbye on the stop phrase.
func WithAnnouncer(say func(text string)) Option {
	return func(l *Listener) { l.announce = say }
}

// WithStateHook observes listening state changes.
func WithStateHook(fn func(State)) Option {
	return func(l *Listener) { l.onState = fn }
}

// WithClipDir saves every captured clip as a WAV file in dir.
func WithClipDir(dir string) Option {
	return func(l *Listener) { l.clipDir = dir }
}

// Listener owns the microphone for the voice loop. Single-shot and
// continuous capture share one device lock, so a gesture-triggered
// ListenOnce waits for an in-flight continuous capture to finish.
type Listener struct {
	capturer   domain.Capturer
	recognizer domain.Recognizer
	ear        domain.Ear
	submit     func(string)
	tones      ToneSink
	busy       func() bool
	announce   func(string)
	onState    func(State)
	log        *logger.Logger

	wakeWords      []string
	stopPhrase     string
	silenceTimeout time.Duration
	phraseLimit    time.Duration
	calibration    time.Duration
	clipDir        string

	device  sync.Mutex
	running atomic.Bool
	clips   atomic.Int64
}

// NewListener creates a listener. capturer and recognizer may be nil
// when WithEar is used. submit receives each command transcript.
func NewListener(capturer domain.Capturer, recognizer domain.Recognizer, submit func(string), log *logger.Logger, opts ...Option) *Listener {
	l := &Listener{
		capturer:       capturer,
		recognizer:     recognizer,
		submit:         submit,
		log:            log,
		stopPhrase:     DefaultStopPhrase,
		silenceTimeout: DefaultSilenceTimeout,
		phraseLimit:    DefaultPhraseLimit,
		calibration:    DefaultCalibration,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Running reports whether Run is active.
func (l *Listener) Running() bool { return l.running.Load() }

// Stop asks Run to exit. It returns after the current iteration.
func (l *Listener) Stop() {
	if l.running.CompareAndSwap(true, false) {
		l.log.Info("voice: stop requested")
	}
}

// ListenOnce captures and transcribes a single phrase with start and
// stop tones. Recognition failures are swallowed: ok is false and the
// error is only logged.
func (l *Listener) ListenOnce(ctx context.Context) (domain.AudioUtterance, bool) {
	l.setState(StateCapturing)
	defer l.setState(l.restingState())

	l.play(speech.ToneListenStart)
	utt, err := l.hear(ctx)
	l.play(speech.ToneListenStop)

	if err != nil {
		l.logMiss(err)
		return domain.AudioUtterance{}, false
	}
	return utt, true
}

// Run is the continuous loop. It calibrates once, then captures phrases
// until the stop phrase is heard, Stop is called, or ctx ends.
func (l *Listener) Run(ctx context.Context) {
	if !l.running.CompareAndSwap(false, true) {
		l.log.Warn("voice: loop already running")
		return
	}
	defer func() {
		l.running.Store(false)
		l.setState(StateIdle)
		l.log.Info("voice: stopped")
	}()

	if l.capturer != nil && l.ear == nil && l.calibration > 0 {
		if err := l.capturer.Calibrate(ctx, l.calibration); err != nil {
			l.log.Warn("voice: calibration failed: %v", err)
		}
	}

	gated := len(l.wakeWords) > 0
	armed := false
	l.setState(l.restingState())
	l.log.Info("voice: listening (wake=%v, stop=%q)", l.wakeWords, l.stopPhrase)

	for l.running.Load() && ctx.Err() == nil {
		if l.busy != nil && l.busy() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		utt, err := l.hear(ctx)
		if err != nil {
			l.logMiss(err)
			if gated && armed {
				armed = false
				l.setState(StateWaiting)
			}
			continue
		}
		text := utt.Transcript
		l.log.Debug("voice: heard %q (armed=%v)", text, armed)

		if IsStopPhrase(text, l.stopPhrase) {
			l.log.Info("voice: stop phrase heard")
			l.say(speech.LineStoppedListening())
			return
		}

		switch {
		case !gated:
			l.submit(text)

		case armed:
			armed = false
			l.setState(StateWaiting)
			l.submit(text)

		default:
			rest, found := StripWake(text, l.wakeWords)
			if !found {
				continue
			}
			l.play(speech.ToneSuccess)
			if rest != "" {
				l.submit(rest)
				continue
			}
			armed = true
			l.setState(StateArmed)
			l.say(speech.LineListening())
		}
	}
}

// hear runs one capture+transcribe cycle under the device lock.
func (l *Listener) hear(ctx context.Context) (domain.AudioUtterance, error) {
	l.device.Lock()
	defer l.device.Unlock()

	if l.ear != nil {
		return l.ear.Hear(ctx, l.phraseLimit)
	}
	if l.capturer == nil || l.recognizer == nil {
		return domain.AudioUtterance{}, domain.ErrDeviceUnavailable
	}

	pcm, err := l.capturer.Listen(ctx, l.silenceTimeout, l.phraseLimit)
	if err != nil {
		return domain.AudioUtterance{}, err
	}
	l.saveClip(pcm)

	utt, err := l.recognizer.Transcribe(ctx, pcm)
	if err != nil {
		return domain.AudioUtterance{}, err
	}
	if utt.Empty() {
		return domain.AudioUtterance{}, domain.ErrRecognitionMiss
	}
	return utt, nil
}

func (l *Listener) saveClip(pcm []float32) {
	if l.clipDir == "" || len(pcm) == 0 {
		return
	}
	n := l.clips.Add(1)
	path := filepath.Join(l.clipDir, fmt.Sprintf("clip-%s-%03d.wav", time.Now().Format("150405"), n))
	if err := speech.WriteWAVFile(path, pcm, speech.CaptureRate); err != nil {
		l.log.Warn("voice: saving clip: %v", err)
	}
}

func (l *Listener) logMiss(err error) {
	switch {
	case errors.Is(err, domain.ErrRecognitionMiss):
		l.log.Debug("voice: nothing recognized")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		l.log.Warn("voice: recognition failed: %v", err)
	}
}

func (l *Listener) play(t speech.Tone) {
	if l.tones != nil {
		l.tones.Play(t)
	}
}

func (l *Listener) say(text string) {
	if l.announce != nil {
		l.announce(text)
	}
}

func (l *Listener) restingState() State {
	if !l.running.Load() {
		return StateIdle
	}
	return StateWaiting
}

func (l *Listener) setState(s State) {
	if l.onState != nil {
		l.onState(s)
	}
}
