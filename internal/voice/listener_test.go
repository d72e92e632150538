package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
	"github.com/hammamikhairi/deskmate/internal/speech"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ── Fakes ────────────────────────────────────────────────────────

type fakeCapturer struct {
	mu         sync.Mutex
	calibrated int
	listens    int
	err        error
}

func (f *fakeCapturer) Calibrate(context.Context, time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calibrated++
	return nil
}

func (f *fakeCapturer) Listen(ctx context.Context, _, _ time.Duration) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listens++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, ctx.Err()
}

// scriptedRecognizer returns one scripted result per call; entries that
// are errors are returned as errors. Once exhausted it misses.
type scriptedRecognizer struct {
	mu     sync.Mutex
	script []any
}

func (r *scriptedRecognizer) Transcribe(context.Context, []float32) (domain.AudioUtterance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.script) == 0 {
		time.Sleep(time.Millisecond)
		return domain.AudioUtterance{}, domain.ErrRecognitionMiss
	}
	next := r.script[0]
	r.script = r.script[1:]
	if err, ok := next.(error); ok {
		return domain.AudioUtterance{}, err
	}
	return domain.AudioUtterance{Transcript: next.(string), Source: domain.SourceMic}, nil
}

type submissions struct {
	mu  sync.Mutex
	got []string
}

func (s *submissions) submit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, text)
}

func (s *submissions) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

type toneLog struct {
	mu    sync.Mutex
	tones []speech.Tone
}

func (t *toneLog) Play(tone speech.Tone) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tones = append(t.tones, tone)
}

func newTestListener(rec domain.Recognizer, sub *submissions, opts ...Option) (*Listener, *fakeCapturer) {
	capt := &fakeCapturer{}
	return NewListener(capt, rec, sub.submit, logger.New(logger.LevelOff, nil), opts...), capt
}

func runWithTimeout(t *testing.T, l *Listener) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		l.Stop()
		<-done
		t.Fatal("loop did not exit")
	}
}

// ── Continuous mode ──────────────────────────────────────────────

func TestUnknownWakeThenStopPhrase(t *testing.T) {
	sub := &submissions{}
	rec := &scriptedRecognizer{script: []any{"hello", "stop listening"}}
	l, capt := newTestListener(rec, sub, WithWakeWords("hey desk"))

	runWithTimeout(t, l)

	assert.Empty(t, sub.all())
	assert.Equal(t, 1, capt.calibrated)
	assert.False(t, l.Running())
}

func TestWakeThenCommand(t *testing.T) {
	sub := &submissions{}
	tones := &toneLog{}
	rec := &scriptedRecognizer{script: []any{
		"what's up",
		"Hey, desk!",
		"open chrome",
		"open firefox",
		"stop listening",
	}}
	var states []State
	var mu sync.Mutex
	l, _ := newTestListener(rec, sub,
		WithWakeWords("hey desk"),
		WithTones(tones),
		WithStateHook(func(s State) { mu.Lock(); states = append(states, s); mu.Unlock() }),
	)

	runWithTimeout(t, l)

	assert.Equal(t, []string{"open chrome"}, sub.all(), "only the phrase after the wake phrase is a command")
	assert.Equal(t, []speech.Tone{speech.ToneSuccess}, tones.tones)
	mu.Lock()
	assert.Contains(t, states, StateArmed)
	assert.Equal(t, StateIdle, states[len(states)-1])
	mu.Unlock()
}

func TestWakeAndCommandInOneBreath(t *testing.T) {
	sub := &submissions{}
	rec := &scriptedRecognizer{script: []any{"hey deskmate what time is it", "stop listening"}}
	l, _ := newTestListener(rec, sub, WithWakeWords("deskmate", "hey deskmate"))

	runWithTimeout(t, l)

	assert.Equal(t, []string{"what time is it"}, sub.all())
}

func TestOneBreathKeepsCommandText(t *testing.T) {
	sub := &submissions{}
	rec := &scriptedRecognizer{script: []any{
		"Hey deskmate, send WhatsApp to +15551234 saying hi!",
		"deskmate open example.com/docs",
		"stop listening",
	}}
	l, _ := newTestListener(rec, sub, WithWakeWords("deskmate", "hey deskmate"))

	runWithTimeout(t, l)

	assert.Equal(t, []string{
		"send WhatsApp to +15551234 saying hi!",
		"open example.com/docs",
	}, sub.all())
}

func TestAnnouncesWakeAndGoodbye(t *testing.T) {
	sub := &submissions{}
	rec := &scriptedRecognizer{script: []any{"computer", "open mail", "stop listening"}}
	var mu sync.Mutex
	var said []string
	l, _ := newTestListener(rec, sub,
		WithWakeWords("computer"),
		WithAnnouncer(func(text string) { mu.Lock(); said = append(said, text); mu.Unlock() }),
	)

	runWithTimeout(t, l)

	assert.Equal(t, []string{"open mail"}, sub.all())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, said, 2)
	assert.Contains(t, speech.ListeningFillers(), said[0])
	assert.Equal(t, speech.LineStoppedListening(), said[1])
}

func TestStopPhraseWhileArmed(t *testing.T) {
	sub := &submissions{}
	rec := &scriptedRecognizer{script: []any{"computer", "please stop listening now"}}
	l, _ := newTestListener(rec, sub, WithWakeWords("computer"))

	runWithTimeout(t, l)

	assert.Empty(t, sub.all())
}

func TestUngatedSubmitsEveryPhraseAndSwallowsFailures(t *testing.T) {
	sub := &submissions{}
	rec := &scriptedRecognizer{script: []any{
		"open chrome",
		domain.ErrRecognitionMiss,
		errors.New("recognizer transport down"),
		"type hello",
		"stop listening",
	}}
	l, _ := newTestListener(rec, sub)

	runWithTimeout(t, l)

	assert.Equal(t, []string{"open chrome", "type hello"}, sub.all())
}

func TestMissDisarms(t *testing.T) {
	sub := &submissions{}
	rec := &scriptedRecognizer{script: []any{"computer", domain.ErrRecognitionMiss, "open chrome", "stop listening"}}
	l, _ := newTestListener(rec, sub, WithWakeWords("computer"))

	runWithTimeout(t, l)

	assert.Empty(t, sub.all(), "a miss returns the loop to waiting")
}

func TestStopEndsLoop(t *testing.T) {
	sub := &submissions{}
	l, _ := newTestListener(&scriptedRecognizer{}, sub, WithWakeWords("computer"))

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()
	require.Eventually(t, l.Running, time.Second, time.Millisecond)

	l.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not end the loop")
	}
}

func TestContextCancelEndsLoop(t *testing.T) {
	sub := &submissions{}
	l, _ := newTestListener(&scriptedRecognizer{}, sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	require.Eventually(t, l.Running, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestBusyHoldsCapture(t *testing.T) {
	sub := &submissions{}
	rec := &scriptedRecognizer{script: []any{"stop listening"}}
	var mu sync.Mutex
	busy := true
	l, capt := newTestListener(rec, sub, WithBusy(func() bool { mu.Lock(); defer mu.Unlock(); return busy }))

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()
	time.Sleep(150 * time.Millisecond)
	capt.mu.Lock()
	assert.Equal(t, 0, capt.listens)
	capt.mu.Unlock()

	mu.Lock()
	busy = false
	mu.Unlock()
	<-done
}

// ── Single-shot ──────────────────────────────────────────────────

func TestListenOnce(t *testing.T) {
	sub := &submissions{}
	tones := &toneLog{}
	rec := &scriptedRecognizer{script: []any{"take a screenshot"}}
	l, _ := newTestListener(rec, sub, WithTones(tones))

	utt, ok := l.ListenOnce(context.Background())
	require.True(t, ok)
	assert.Equal(t, "take a screenshot", utt.Transcript)
	assert.Equal(t, []speech.Tone{speech.ToneListenStart, speech.ToneListenStop}, tones.tones)
	assert.Empty(t, sub.all(), "single-shot returns the utterance instead of submitting it")
}

func TestListenOnceSwallowsMiss(t *testing.T) {
	l, _ := newTestListener(&scriptedRecognizer{script: []any{""}}, &submissions{})
	_, ok := l.ListenOnce(context.Background())
	assert.False(t, ok)

	l2, capt := newTestListener(&scriptedRecognizer{}, &submissions{})
	capt.err = domain.ErrDeviceUnavailable
	_, ok = l2.ListenOnce(context.Background())
	assert.False(t, ok)
}

type fakeEar struct{ text string }

func (e fakeEar) Hear(context.Context, time.Duration) (domain.AudioUtterance, error) {
	return domain.AudioUtterance{Transcript: e.text}, nil
}

func TestListenOnceWithEar(t *testing.T) {
	l := NewListener(nil, nil, func(string) {}, logger.New(logger.LevelOff, nil), WithEar(fakeEar{text: "open notes"}))
	utt, ok := l.ListenOnce(context.Background())
	require.True(t, ok)
	assert.Equal(t, "open notes", utt.Transcript)
}

// ── Wake matching ────────────────────────────────────────────────

func TestStripWake(t *testing.T) {
	words := []string{"desk", "hey desk", "computer"}
	tests := []struct {
		in    string
		rest  string
		found bool
	}{
		{"hey desk open chrome", "open chrome", true},
		{"Hey, Desk!", "", true},
		{"um computer, what's the time", "what's the time", true},
		{"desktop is messy", "", false},
		{"Hey desk, send WhatsApp to +15551234 saying hi!", "send WhatsApp to +15551234 saying hi!", true},
		{"desk open example.com/docs", "open example.com/docs", true},
		{"computer: open ~/Notes/todo.txt", "open ~/Notes/todo.txt", true},
		{"hello there", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			rest, found := StripWake(tt.in, words)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestIsStopPhrase(t *testing.T) {
	assert.True(t, IsStopPhrase("Stop listening.", DefaultStopPhrase))
	assert.True(t, IsStopPhrase("okay stop listening please", DefaultStopPhrase))
	assert.False(t, IsStopPhrase("stop", DefaultStopPhrase))
	assert.False(t, IsStopPhrase("anything", ""))
}
