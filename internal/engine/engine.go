// Package engine runs one request through the assistant pipeline:
// parse, dispatch, humanize, record history and speak the reply.
package engine

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/deskmate/internal/dispatch"
	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Source names where a request came from.
type Source string

const (
	SourceConsole Source = "console"
	SourceVoice   Source = "voice"
	SourceGesture Source = "gesture"
	SourceBus     Source = "bus"
)

// Parser turns an utterance into a command.
type Parser interface {
	Parse(ctx context.Context, utterance string) domain.Command
}

// Dispatcher executes a command.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd domain.Command) domain.Result
}

// Humanizer shapes a result into the spoken reply.
type Humanizer interface {
	Shape(action string, r domain.Result, utterance string) string
}

// Reply is the outcome of one handled request.
type Reply struct {
	ID       string
	Source   Source
	Input    string
	Command  domain.Command
	Result   domain.Result
	Text     string
	At       time.Time
	Duration time.Duration
}

// Action returns the action name used for shaping. Workflows report
// "workflow".
func (r Reply) Action() string {
	if r.Command.IsWorkflow() {
		return "workflow"
	}
	return r.Command.Action
}

// Option configures the engine.
type Option func(*Engine)

// WithHistory records every exchange under contextName.
func WithHistory(store domain.HistoryStore, contextName string) Option {
	return func(e *Engine) {
		e.history = store
		if contextName != "" {
			e.contextName = contextName
		}
	}
}

// WithSpeaker speaks every reply.
func WithSpeaker(s domain.Speaker) Option {
	return func(e *Engine) { e.speaker = s }
}

// WithQueueSize sets how many submitted requests may wait.
func WithQueueSize(n int) Option {
	return func(e *Engine) { e.queueSize = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs overrides request ID generation.
func WithIDs(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// Engine wires the parser, dispatcher and humanizer together. All
// submitted requests are handled by a single consumer so commands never
// run concurrently.
type Engine struct {
	parser     Parser
	dispatcher Dispatcher
	humanizer  Humanizer
	log        *logger.Logger

	history     domain.HistoryStore
	contextName string
	speaker     domain.Speaker
	queueSize   int
	now         func() time.Time
	newID       func() string

	queue    *dispatch.Queue
	handling atomic.Bool

	mu    sync.RWMutex
	sinks []func(Reply)
}

// New creates an engine with the given dependencies and options.
func New(parser Parser, dispatcher Dispatcher, humanizer Humanizer, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		parser:      parser,
		dispatcher:  dispatcher,
		humanizer:   humanizer,
		log:         log,
		contextName: "default",
		queueSize:   16,
		now:         time.Now,
		newID:       newRequestID,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.queue = dispatch.NewQueue(e.queueSize, log)
	return e
}

// OnReply registers fn to receive every reply. Sinks run on the
// consumer goroutine and must not block for long.
func (e *Engine) OnReply(fn func(Reply)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, fn)
}

// Busy reports whether a request is being handled right now.
func (e *Engine) Busy() bool { return e.handling.Load() }

// Pending returns the number of submitted requests not yet started.
func (e *Engine) Pending() int { return e.queue.Len() }

// ── Pipeline ────────────────────────────────────────────────────

// Handle runs text through the whole pipeline synchronously and
// delivers the reply to every sink. It never fails: parse and dispatch
// errors surface as a failed Result with a shaped apology.
func (e *Engine) Handle(ctx context.Context, source Source, text string) Reply {
	e.handling.Store(true)
	defer e.handling.Store(false)

	text = strings.TrimSpace(text)
	start := e.now()
	reply := Reply{ID: e.newID(), Source: source, Input: text, At: start}
	e.log.Info("engine: [%s] %s request %q", shortID(reply.ID), source, text)

	reply.Command = e.parser.Parse(ctx, text)
	if reply.Command.IsError() {
		e.log.Debug("engine: [%s] parse failed: %s", shortID(reply.ID), reply.Command.ErrorReason())
	}

	reply.Result = e.dispatcher.Dispatch(ctx, reply.Command)
	reply.Text = e.humanizer.Shape(reply.Action(), reply.Result, text)
	reply.Duration = e.now().Sub(start)

	e.log.Info("engine: [%s] %s success=%v in %s",
		shortID(reply.ID), reply.Action(), reply.Result.Success, reply.Duration.Round(time.Millisecond))

	e.record(ctx, reply)
	e.deliver(reply)
	e.speak(ctx, reply)
	return reply
}

// Submit enqueues text for the consumer started by Run. It blocks while
// the queue is full.
func (e *Engine) Submit(ctx context.Context, source Source, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return e.queue.Submit(ctx, func(ctx context.Context) {
		e.Handle(ctx, source, text)
	})
}

// Submitter adapts Submit to the callback shape producer loops expect.
func (e *Engine) Submitter(ctx context.Context, source Source) func(string) {
	return func(text string) {
		if err := e.Submit(ctx, source, text); err != nil {
			e.log.Warn("engine: dropped %s request %q: %v", source, text, err)
		}
	}
}

// Run consumes submitted requests until ctx is cancelled. Blocks.
func (e *Engine) Run(ctx context.Context) {
	e.log.Debug("engine: consumer started")
	e.queue.Run(ctx)
	e.log.Debug("engine: consumer stopped")
}

func (e *Engine) record(ctx context.Context, r Reply) {
	if e.history == nil {
		return
	}
	for _, rec := range []domain.HistoryRecord{
		{Context: e.contextName, Role: "user", Content: r.Input, Timestamp: r.At},
		{Context: e.contextName, Role: "assistant", Content: r.Text, Timestamp: r.At.Add(r.Duration)},
	} {
		if err := e.history.Append(ctx, rec); err != nil {
			e.log.Warn("engine: saving history: %v", err)
			return
		}
	}
}

func (e *Engine) deliver(r Reply) {
	e.mu.RLock()
	sinks := slices.Clone(e.sinks)
	e.mu.RUnlock()
	for _, fn := range sinks {
		fn(r)
	}
}

func (e *Engine) speak(ctx context.Context, r Reply) {
	if e.speaker == nil || r.Text == "" {
		return
	}
	if err := e.speaker.Speak(ctx, r.Text); err != nil {
		e.log.Warn("engine: speaking reply: %v", err)
	}
}
