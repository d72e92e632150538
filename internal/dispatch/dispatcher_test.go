package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// recorder registers handlers that log their invocations.
type recorder struct {
	calls []string
}

func (r *recorder) handler(name string, res domain.Result) HandlerFunc {
	return func(_ context.Context, p domain.Params) domain.Result {
		r.calls = append(r.calls, name)
		return res
	}
}

func setup(t *testing.T, opts ...Option) (*Dispatcher, *recorder) {
	t.Helper()
	rec := &recorder{}
	reg := NewRegistry()
	reg.MustRegister(Entry{Name: "open_app", Fn: func(_ context.Context, p domain.Params) domain.Result {
		rec.calls = append(rec.calls, "open_app")
		app := p.String("app_name", "")
		if app == "" {
			return domain.MissingParam("app_name")
		}
		return domain.OKf("Opened %s", app)
	}})
	reg.MustRegister(Entry{Name: "type_text", Fn: rec.handler("type_text", domain.Fail("keyboard unavailable"))})
	reg.MustRegister(Entry{Name: "get_time", Fn: rec.handler("get_time", domain.OK("It's 3:04 PM"))})
	reg.MustRegister(Entry{Name: "explode", Fn: func(context.Context, domain.Params) domain.Result {
		panic(errors.New("boom"))
	}})
	reg.Freeze()
	return New(reg, logger.New(logger.LevelOff, nil), opts...), rec
}

func TestDispatchSingle(t *testing.T) {
	d, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		cmd         domain.Command
		wantSuccess bool
		wantMsg     string
	}{
		{"known action", domain.Command{Action: "open_app", Parameters: domain.Params{"app_name": "chrome"}}, true, "Opened chrome"},
		{"missing parameter", domain.Command{Action: "open_app"}, false, "Missing required parameter: app_name"},
		{"unknown action", domain.Command{Action: "fly_to_moon"}, false, "Unknown action: fly_to_moon"},
		{"error sentinel", domain.ErrorCommand("reply was not JSON"), false, "reply was not JSON"},
		{"panicking handler", domain.Command{Action: "explode"}, false, "Error executing explode: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Dispatch(ctx, tt.cmd)
			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, tt.wantMsg, res.Message)
		})
	}
}

func TestWorkflowFailFast(t *testing.T) {
	d, rec := setup(t)

	cmd := domain.Command{
		Description: "write a note",
		Steps: []domain.Command{
			{Action: "open_app", Parameters: domain.Params{"app_name": "notepad"}},
			{Action: "type_text", Parameters: domain.Params{"text": "hello"}},
			{Action: "get_time"},
		},
	}
	res := d.Dispatch(context.Background(), cmd)

	require.False(t, res.Success)
	assert.Contains(t, res.Message, "step 2")
	assert.Contains(t, res.Message, "type_text")
	assert.Contains(t, res.Message, "keyboard unavailable")
	assert.Equal(t, []string{"open_app", "type_text"}, rec.calls, "steps after the failure must not run")
	assert.Equal(t, 2, res.Data["failed_step"])
}

func TestWorkflowSuccess(t *testing.T) {
	d, rec := setup(t)

	cmd := domain.Command{Steps: []domain.Command{
		{Action: "open_app", Parameters: domain.Params{"app_name": "notepad"}},
		{Action: "get_time"},
	}}
	res := d.Dispatch(context.Background(), cmd)

	require.True(t, res.Success)
	assert.Equal(t, "Workflow completed successfully (2 steps)", res.Message)
	assert.Equal(t, []string{"open_app", "get_time"}, rec.calls)
	assert.Equal(t, []string{"Opened notepad", "It's 3:04 PM"}, res.Data["steps"])
}

func TestWorkflowStepsTakePrecedence(t *testing.T) {
	d, rec := setup(t)
	res := d.Dispatch(context.Background(), domain.Command{
		Action: "type_text",
		Steps:  []domain.Command{{Action: "get_time"}},
	})
	assert.True(t, res.Success)
	assert.Equal(t, []string{"get_time"}, rec.calls)
}

func TestDispatchNeverPanics(t *testing.T) {
	d, _ := setup(t)
	cmds := []domain.Command{
		{},
		{Action: "explode"},
		{Steps: []domain.Command{{Action: "explode"}}},
		{Action: "error"},
		{Steps: []domain.Command{{Action: ""}}},
	}
	for _, c := range cmds {
		assert.NotPanics(t, func() {
			res := d.Dispatch(context.Background(), c)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestStateTransitions(t *testing.T) {
	var seen []string
	d, _ := setup(t, WithStateHook(func(c StateChange) {
		if c.Workflow {
			seen = append(seen, "wf:"+c.WFState.String())
			return
		}
		seen = append(seen, c.Action+":"+c.State.String())
	}))
	ctx := context.Background()

	d.Dispatch(ctx, domain.Command{Action: "get_time"})
	assert.Equal(t, "get_time:received get_time:routing get_time:executing get_time:completed", strings.Join(seen, " "))

	seen = nil
	d.Dispatch(ctx, domain.Command{Action: "nope"})
	assert.Equal(t, "nope:received nope:routing nope:completed", strings.Join(seen, " "))

	seen = nil
	d.Dispatch(ctx, domain.Command{Steps: []domain.Command{{Action: "type_text"}}})
	assert.Equal(t, []string{
		"wf:pending", "wf:running",
		"type_text:received", "type_text:routing", "type_text:executing", "type_text:completed",
		"wf:aborted",
	}, seen)
}
