package gesture

import (
	"context"
	"errors"
	"time"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Defaults for the loop.
const (
	DefaultAttention = domain.GestureOpenPalm
	DefaultCooldown  = 3 * time.Second
)

// Option configures the Loop.
type Option func(*Loop)

// WithAttention sets the gesture that triggers voice capture.
func WithAttention(name string) Option {
	return func(l *Loop) {
		if name != "" {
			l.attention = name
		}
	}
}

// WithCooldown sets the minimum time between triggers.
func WithCooldown(d time.Duration) Option {
	return func(l *Loop) { l.cooldown = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithObserver receives every classified gesture, e.g. for the console.
func WithObserver(fn func(domain.GestureEvent)) Option {
	return func(l *Loop) { l.observe = fn }
}

// Loop reads frames and fires trigger on the attention gesture. It owns
// the frame source and closes it when Run returns.
type Loop struct {
	src      domain.FrameSource
	detector LandmarkDetector
	stages   []Stage
	trigger  func(context.Context)
	log      *logger.Logger

	attention string
	cooldown  time.Duration
	now       func() time.Time
	observe   func(domain.GestureEvent)
	last      time.Time
}

// NewLoop creates a gesture loop. trigger runs synchronously on the loop
// goroutine; frames are not read while it runs.
func NewLoop(src domain.FrameSource, det LandmarkDetector, stages []Stage, trigger func(context.Context), log *logger.Logger, opts ...Option) *Loop {
	l := &Loop{
		src:       src,
		detector:  det,
		stages:    stages,
		trigger:   trigger,
		log:       log,
		attention: DefaultAttention,
		cooldown:  DefaultCooldown,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run processes frames until ctx ends or the source fails.
func (l *Loop) Run(ctx context.Context) error {
	defer l.src.Close()
	l.log.Info("gesture: watching for %s (cooldown=%s, stages=%d)", l.attention, l.cooldown, len(l.stages))

	for {
		f, err := l.src.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		l.Step(ctx, f)
	}
}

// Step handles one frame and reports whether it fired the trigger.
func (l *Loop) Step(ctx context.Context, f domain.Frame) bool {
	hand, ok, err := l.detector.Detect(ctx, f)
	if err != nil {
		l.log.Debug("gesture: detect: %v", err)
		return false
	}
	if !ok {
		return false
	}

	now := l.now()
	ev, ok := Classify(l.stages, hand, now)
	if !ok {
		return false
	}
	if l.observe != nil {
		l.observe(ev)
	}
	if ev.Name != l.attention {
		return false
	}
	if !l.last.IsZero() && now.Sub(l.last) < l.cooldown {
		return false
	}

	l.log.Info("gesture: %s (%.2f via %s), listening", ev.Name, ev.Confidence, ev.Source)
	l.last = now
	l.trigger(ctx)
	// A long capture must not let a still-held gesture fire right away.
	l.last = l.now()
	return true
}
