package dispatch

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithStateHook registers a callback observing every state transition.
// The hook runs synchronously on the dispatching goroutine.
func WithStateHook(fn func(StateChange)) Option {
	return func(d *Dispatcher) { d.hook = fn }
}

// Dispatcher executes commands against a Registry. It is synchronous and
// makes no concurrency promises; wrap it in a Queue when several
// producers submit work.
type Dispatcher struct {
	registry *Registry
	log      *logger.Logger
	hook     func(StateChange)
}

// New creates a dispatcher over registry.
func New(registry *Registry, log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{registry: registry, log: log}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher routes to.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch executes cmd and always returns a Result.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd domain.Command) domain.Result {
	if cmd.IsWorkflow() {
		return d.runWorkflow(ctx, cmd)
	}
	return d.runSingle(ctx, cmd)
}

func (d *Dispatcher) emit(c StateChange) {
	if d.hook != nil {
		d.hook(c)
	}
}

func (d *Dispatcher) runSingle(ctx context.Context, cmd domain.Command) domain.Result {
	name := cmd.Action
	d.emit(StateChange{Action: name, State: StateReceived})

	if cmd.IsError() {
		d.emit(StateChange{Action: name, State: StateCompleted})
		d.log.Debug("dispatch: error command: %s", cmd.ErrorReason())
		return domain.Fail(cmd.ErrorReason())
	}

	d.emit(StateChange{Action: name, State: StateRouting})
	entry, ok := d.registry.Lookup(name)
	if !ok {
		d.emit(StateChange{Action: name, State: StateCompleted})
		d.log.Warn("dispatch: unknown action %q", name)
		return domain.Failf("Unknown action: %s", name)
	}

	d.emit(StateChange{Action: name, State: StateExecuting})
	res := d.invoke(ctx, entry, cmd.Parameters)
	d.emit(StateChange{Action: name, State: StateCompleted})

	d.log.Debug("dispatch: %s -> success=%v %q", name, res.Success, res.Message)
	return res
}

// invoke calls the handler, converting a panic into a failure Result.
func (d *Dispatcher) invoke(ctx context.Context, entry Entry, p domain.Params) (res domain.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatch: handler %s panicked: %v", entry.Name, r)
			res = domain.Failf("Error executing %s: %v", entry.Name, r)
		}
	}()
	if p == nil {
		p = domain.Params{}
	}
	return entry.Fn(ctx, p)
}

// runWorkflow runs every step in order and stops at the first failure.
// Side effects of completed steps are not undone.
func (d *Dispatcher) runWorkflow(ctx context.Context, cmd domain.Command) domain.Result {
	total := len(cmd.Steps)
	wf := StateChange{Action: cmd.Description, Workflow: true, WFState: WorkflowPending}
	d.emit(wf)

	d.log.Info("dispatch: workflow %q with %d steps", cmd.Description, total)

	messages := make([]string, 0, total)
	for i, step := range cmd.Steps {
		wf.WFState, wf.Step = WorkflowRunning, i+1
		d.emit(wf)

		res := d.Dispatch(ctx, step)
		if !res.Success {
			wf.WFState = WorkflowAborted
			d.emit(wf)
			d.log.Warn("dispatch: workflow aborted at step %d (%s): %s", i+1, step.Action, res.Message)

			res.Message = fmt.Sprintf("Workflow aborted at step %d (%s): %s", i+1, step.Action, res.Message)
			return res.WithData("failed_step", i+1).WithData("completed_steps", messages)
		}
		messages = append(messages, res.Message)
	}

	wf.WFState = WorkflowDone
	d.emit(wf)

	return domain.OKf("Workflow completed successfully (%d steps)", total).
		WithData("steps", messages)
}
