package engine

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hammamikhairi/deskmate/internal/actions"
	"github.com/hammamikhairi/deskmate/internal/dispatch"
	"github.com/hammamikhairi/deskmate/internal/intent"
	"github.com/hammamikhairi/deskmate/internal/logger"
	"github.com/hammamikhairi/deskmate/internal/persona"
	"github.com/hammamikhairi/deskmate/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2026, 10, 19, 15, 4, 0, 0, time.Local)

// ── Fakes ───────────────────────────────────────────────────────

// scriptedLLM answers the intent prompt from a table keyed by the
// user request embedded in it.
type scriptedLLM struct {
	replies map[string]string
}

func (s scriptedLLM) Generate(_ context.Context, prompt, _ string) (string, error) {
	if strings.HasPrefix(prompt, "Write a ") {
		return "Dear Ana,\nThe trip was lovely.\nBest, Sam", nil
	}
	start := strings.Index(prompt, "User request:\n")
	end := strings.LastIndex(prompt, "\n\nJSON:")
	if start < 0 || end < start {
		return "", errors.New("unexpected prompt")
	}
	req := prompt[start+len("User request:\n") : end]
	if r, ok := s.replies[req]; ok {
		return r, nil
	}
	return "I am not sure what you mean.", nil
}

type desk struct {
	mu       sync.Mutex
	calls    []string
	failKeys bool
}

func (d *desk) add(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, s)
}

func (d *desk) Launch(_ context.Context, app string, _ ...string) error {
	d.add("launch " + app)
	if app == "broken" {
		return errors.New("no such application")
	}
	return nil
}

func (d *desk) OpenURL(_ context.Context, u string) error {
	d.add("url " + u)
	return nil
}

func (d *desk) Type(_ context.Context, text string) error {
	d.add("type " + text)
	if d.failKeys {
		return errors.New("keyboard unavailable")
	}
	return nil
}

func (d *desk) Press(_ context.Context, keys string) error {
	d.add("press " + keys)
	return nil
}

func (d *desk) Capture(_ context.Context, path string) error {
	d.add("capture " + path)
	return nil
}

type recordingSpeaker struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordingSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
	return nil
}

type harness struct {
	engine  *Engine
	desk    *desk
	history *storage.MemoryStore
	speaker *recordingSpeaker
	brief   *persona.Humanizer
}

var intents = map[string]string{
	"open chrome":        `{"action":"open_app","parameters":{"app_name":"chrome"}}`,
	"open broken":        `{"action":"open_app","parameters":{"app_name":"broken"}}`,
	"what time is it":    "Sure!\n```json\n{\"action\":\"get_time\",\"parameters\":{}}\n```",
	"take a screenshot":  `{"action":"take_screenshot","parameters":{}}`,
	"write ana a letter": `{"action":"write_letter","parameters":{"recipient":"Ana","topic":"the trip"}}`,
	"open notepad and type hello": `{"steps":[
		{"action":"open_app","parameters":{"app_name":"notepad"}},
		{"action":"type_text","parameters":{"text":"hello"}}
	],"description":"open notepad and type"}`,
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)

	h := &harness{
		desk:    &desk{},
		history: storage.NewMemoryStore(log),
		speaker: &recordingSpeaker{},
	}

	llm := scriptedLLM{replies: intents}
	reg := dispatch.NewRegistry()
	require.NoError(t, actions.Register(reg, actions.Deps{
		LLM:           llm,
		Launcher:      h.desk,
		Keyboard:      h.desk,
		Screenshotter: h.desk,
		Screenshots:   "/shots",
		Now:           func() time.Time { return fixedNow },
		Log:           log,
	}))
	reg.Freeze()

	parser := intent.NewParser(llm, reg, log)
	h.brief = persona.New(log,
		persona.WithRand(rand.New(rand.NewSource(7))),
		persona.WithClock(func() time.Time { return fixedNow }),
	)
	h.engine = New(parser, dispatch.New(reg, log), h.brief, log,
		WithHistory(h.history, "test"),
		WithSpeaker(h.speaker),
		WithClock(func() time.Time { return fixedNow }),
	)
	return h
}

func hasPrefixFrom(s string, set []string) bool {
	for _, p := range set {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// ── End-to-end requests ─────────────────────────────────────────

func TestOpenApp(t *testing.T) {
	h := newHarness(t)

	r := h.engine.Handle(context.Background(), SourceConsole, "open chrome")

	assert.Equal(t, "open_app", r.Command.Action)
	assert.Equal(t, "chrome", r.Command.Parameters.String("app_name", ""))
	assert.True(t, r.Result.Success)
	assert.Equal(t, "Opened chrome", r.Result.Message)
	assert.Contains(t, r.Text, "I opened chrome")
	assert.True(t, hasPrefixFrom(r.Text, persona.UpbeatPrefixes), "reply %q", r.Text)
	assert.Equal(t, []string{"launch chrome"}, h.desk.calls)
	assert.NotEmpty(t, r.ID)
}

func TestWorkflowStopsAtFailingStep(t *testing.T) {
	h := newHarness(t)
	h.desk.failKeys = true

	r := h.engine.Handle(context.Background(), SourceConsole, "open notepad and type hello")

	require.True(t, r.Command.IsWorkflow())
	assert.Equal(t, "workflow", r.Action())
	assert.False(t, r.Result.Success)
	assert.Contains(t, r.Result.Message, "step 2")
	assert.Contains(t, r.Result.Message, "type_text")
	assert.Contains(t, r.Result.Message, "keyboard unavailable")
	// Step 1 already ran and is not undone.
	assert.Equal(t, []string{"launch notepad", "type hello"}, h.desk.calls)
	assert.True(t, hasPrefixFrom(r.Text, persona.MildApologyPrefixes), "reply %q", r.Text)
}

func TestLetterReachesReply(t *testing.T) {
	h := newHarness(t)

	r := h.engine.Handle(context.Background(), SourceConsole, "write ana a letter")

	require.True(t, r.Result.Success, r.Result.Message)
	assert.Equal(t, "Dear Ana,\nThe trip was lovely.\nBest, Sam", r.Result.GeneratedCode)
	assert.Contains(t, r.Text, "letter to Ana")
}

func TestTimeQueryStaysLocal(t *testing.T) {
	h := newHarness(t)

	r := h.engine.Handle(context.Background(), SourceVoice, "what time is it")

	assert.Equal(t, "get_time", r.Command.Action)
	assert.True(t, r.Result.Success)
	assert.Equal(t, "It's 3:04 PM", r.Result.Message)
	assert.Contains(t, r.Result.Message, ":")
	assert.NotContains(t, r.Result.Message, "google.com")
	assert.Empty(t, h.desk.calls)
}

func TestScreenshotReply(t *testing.T) {
	h := newHarness(t)

	r := h.engine.Handle(context.Background(), SourceConsole, "take a screenshot")

	require.True(t, r.Result.Success)
	assert.Equal(t, "/shots/screenshot-20261019-150400.png", r.Result.Data["path"])
	assert.True(t, hasPrefixFrom(r.Text, persona.SuccessPrefixes), "reply %q", r.Text)
	assert.Contains(t, r.Text, "screenshot")
}

func TestRepeatedFailuresEscalateApology(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var last Reply
	for range 3 {
		last = h.engine.Handle(ctx, SourceConsole, "open broken")
		require.False(t, last.Result.Success)
	}
	assert.True(t, hasPrefixFrom(last.Text, persona.StrongApologyPrefixes), "reply %q", last.Text)
	assert.Equal(t, 3, h.brief.State().ConsecutiveErrors)

	ok := h.engine.Handle(ctx, SourceConsole, "open chrome")
	assert.True(t, hasPrefixFrom(ok.Text, persona.CelebratoryPrefixes), "reply %q", ok.Text)
	assert.Zero(t, h.brief.State().ConsecutiveErrors)
}

func TestUnparseableRequest(t *testing.T) {
	h := newHarness(t)

	for _, in := range []string{"", "make me a sandwich"} {
		r := h.engine.Handle(context.Background(), SourceConsole, in)
		assert.True(t, r.Command.IsError(), "input %q", in)
		assert.False(t, r.Result.Success)
		assert.NotEmpty(t, r.Text)
	}
	assert.Empty(t, h.desk.calls)
}

func TestBriefMode(t *testing.T) {
	h := newHarness(t)
	h.brief.SetBrief(true)

	r := h.engine.Handle(context.Background(), SourceConsole, "open chrome")
	assert.True(t, strings.HasPrefix(r.Text, "Done."), "reply %q", r.Text)
}

// ── Side effects ────────────────────────────────────────────────

func TestHistorySpeechAndSinks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var got []Reply
	h.engine.OnReply(func(r Reply) { got = append(got, r) })

	r := h.engine.Handle(ctx, SourceBus, "open chrome")

	recs, err := h.history.Recent(ctx, "test", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "user", recs[0].Role)
	assert.Equal(t, "open chrome", recs[0].Content)
	assert.Equal(t, "assistant", recs[1].Role)
	assert.Equal(t, r.Text, recs[1].Content)

	assert.Equal(t, []string{r.Text}, h.speaker.lines)
	require.Len(t, got, 1)
	assert.Equal(t, SourceBus, got[0].Source)
	assert.False(t, h.engine.Busy())
}

func TestSubmitRunsInOrder(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.engine.Run(ctx)
	}()

	replies := make(chan Reply, 3)
	h.engine.OnReply(func(r Reply) { replies <- r })

	submit := h.engine.Submitter(ctx, SourceVoice)
	submit("open chrome")
	submit("   ")
	require.NoError(t, h.engine.Submit(ctx, SourceConsole, "what time is it"))

	var inputs []string
	for range 2 {
		select {
		case r := <-replies:
			inputs = append(inputs, r.Input)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for reply")
		}
	}
	assert.Equal(t, []string{"open chrome", "what time is it"}, inputs)

	cancel()
	<-done
	assert.ErrorIs(t, h.engine.Submit(context.Background(), SourceConsole, "open chrome"), dispatch.ErrQueueClosed)
}
