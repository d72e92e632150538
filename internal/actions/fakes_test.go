package actions

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/deskmate/internal/dispatch"
	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
	"github.com/hammamikhairi/deskmate/internal/reminder"
	"github.com/hammamikhairi/deskmate/internal/storage"
	"github.com/hammamikhairi/deskmate/internal/workflows"
)

var errBroken = errors.New("broken")

// calls is a mutex-guarded call log shared by the fakes.
type calls struct {
	mu  sync.Mutex
	log []string
}

func (c *calls) add(s string) {
	c.mu.Lock()
	c.log = append(c.log, s)
	c.mu.Unlock()
}

func (c *calls) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

type fakeLauncher struct {
	*calls
	fail bool
}

func (f fakeLauncher) Launch(_ context.Context, app string, _ ...string) error {
	f.add("launch " + app)
	if f.fail {
		return errBroken
	}
	return nil
}

func (f fakeLauncher) OpenURL(_ context.Context, u string) error {
	f.add("url " + u)
	if f.fail {
		return errBroken
	}
	return nil
}

type fakeKeyboard struct{ *calls }

func (f fakeKeyboard) Type(_ context.Context, text string) error {
	f.add("type " + text)
	return nil
}

func (f fakeKeyboard) Press(_ context.Context, keys string) error {
	if keys == "fail" {
		return errBroken
	}
	f.add("press " + keys)
	return nil
}

type fakeScreen struct{ *calls }

func (f fakeScreen) Capture(_ context.Context, path string) error {
	f.add("shot " + path)
	return nil
}

type fakeClipboard struct{ text string }

func (f *fakeClipboard) ReadAll() (string, error) { return f.text, nil }
func (f *fakeClipboard) WriteAll(t string) error  { f.text = t; return nil }

type fakeMessenger struct{ *calls }

func (f fakeMessenger) SendWhatsApp(_ context.Context, phone, msg string) error {
	f.add(phone + ": " + msg)
	return nil
}

type fakeMedia struct{ *calls }

func (f fakeMedia) Media(_ context.Context, cmd string) error {
	f.add("media " + cmd)
	return nil
}

type fakeShell struct{}

func (fakeShell) Run(_ context.Context, command string) (string, error) {
	if strings.HasPrefix(command, "false") {
		return "", errBroken
	}
	return "ok\n", nil
}

// fakeLLM replies with a fixed string and remembers the last prompt.
type fakeLLM struct {
	mu     sync.Mutex
	reply  string
	err    error
	prompt string
}

func (f *fakeLLM) Generate(_ context.Context, prompt, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompt = prompt
	return f.reply, f.err
}

type fakeBrief struct{ on bool }

func (f *fakeBrief) SetBrief(on bool) { f.on = on }
func (f *fakeBrief) Brief() bool      { return f.on }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) error       { return nil }
func (nopNotifier) NotifyUrgent(context.Context, string) error { return nil }

// env is a fully wired handler table over fakes.
type env struct {
	calls     *calls
	llm       *fakeLLM
	clip      *fakeClipboard
	brief     *fakeBrief
	store     *storage.MemoryStore
	reminders *reminder.Supervisor
	slept     []time.Duration
	reg       *dispatch.Registry
	disp      *dispatch.Dispatcher
}

var fixedNow = time.Date(2026, 10, 19, 15, 4, 0, 0, time.Local)

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	e := &env{
		calls: &calls{},
		llm:   &fakeLLM{reply: "Sure thing."},
		clip:  &fakeClipboard{},
		brief: &fakeBrief{},
		store: storage.NewMemoryStore(log),
		reg:   dispatch.NewRegistry(),
	}
	e.reminders = reminder.New(nopNotifier{}, log, reminder.WithClock(func() time.Time { return fixedNow }))
	lib, err := workflows.Open("", log)
	require.NoError(t, err)

	deps := Deps{
		Launcher:      fakeLauncher{calls: e.calls},
		Keyboard:      fakeKeyboard{e.calls},
		Screenshotter: fakeScreen{e.calls},
		Clipboard:     e.clip,
		Messenger:     fakeMessenger{e.calls},
		Media:         fakeMedia{e.calls},
		Shell:         fakeShell{},
		LLM:           e.llm,
		Model:         "test-model",
		History:       e.store,
		KV:            e.store,
		Reminders:     e.reminders,
		Workflows:     lib,
		Runner: RunnerFunc(func(ctx context.Context, cmd domain.Command) domain.Result {
			return e.disp.Dispatch(ctx, cmd)
		}),
		Brief:       e.brief,
		Screenshots: "/tmp/shots",
		Now:         func() time.Time { return fixedNow },
		Sleep:       func(d time.Duration) { e.slept = append(e.slept, d) },
		Log:         log,
	}
	require.NoError(t, Register(e.reg, deps))
	e.reg.Freeze()
	e.disp = dispatch.New(e.reg, log)
	return e
}

func (e *env) run(action string, p domain.Params) domain.Result {
	return e.disp.Dispatch(context.Background(), domain.Command{Action: action, Parameters: p})
}
