package orchestrator

// State is the orchestrator's position in its run loop.
type State int

const (
	StateIdle State = iota
	StateSelectingTask
	StateAwaitingAgent
	StateReactingToEvents
	StateAdvancing
	StateAborting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelectingTask:
		return "selecting-task"
	case StateAwaitingAgent:
		return "awaiting-agent"
	case StateReactingToEvents:
		return "reacting-to-events"
	case StateAdvancing:
		return "advancing"
	case StateAborting:
		return "aborting"
	default:
		return "unknown"
	}
}

// Outcome summarizes how a run ended.
type Outcome int

const (
	// OutcomeCompleted means every pending task finished.
	OutcomeCompleted Outcome = iota
	// OutcomeNothingToDo means there was no pending task to start.
	OutcomeNothingToDo
	// OutcomeFailed means a task's process failed and the run stopped there.
	OutcomeFailed
	// OutcomeAborted means the run was cancelled.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeNothingToDo:
		return "nothing to do"
	case OutcomeFailed:
		return "failed"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result describes a finished run.
type Result struct {
	Outcome      Outcome
	Completed    []int // task ids finished in this run, in order
	FailedTaskID *int
	Err          error
}
