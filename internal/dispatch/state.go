package dispatch

// State is the lifecycle of a single Dispatch call.
type State int

const (
	StateReceived State = iota
	StateRouting
	StateExecuting
	StateCompleted
)

// String returns a human-readable state.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateRouting:
		return "routing"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// WorkflowState is the lifecycle of a multi-step command.
type WorkflowState int

const (
	WorkflowPending WorkflowState = iota
	WorkflowRunning
	WorkflowAborted
	WorkflowDone
)

// String returns a human-readable workflow state.
func (s WorkflowState) String() string {
	switch s {
	case WorkflowPending:
		return "pending"
	case WorkflowRunning:
		return "running"
	case WorkflowAborted:
		return "aborted"
	case WorkflowDone:
		return "done"
	default:
		return "unknown"
	}
}

// StateChange is reported to the state hook on every transition. For
// workflow transitions Workflow is set and Step is the 1-based step
// being run (0 before the first step).
type StateChange struct {
	Action   string
	State    State
	Workflow bool
	WFState  WorkflowState
	Step     int
}
