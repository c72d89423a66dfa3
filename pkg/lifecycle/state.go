// Package lifecycle manages the server process lifecycle: a validated
// state machine, startup and shutdown hooks, and aggregated dependency
// health checks.
//
// The flow for a healthy process is:
//
//	Unknown → Starting → Running → Stopping → Stopped
//
// Any non-terminal state may transition to Failed on error, and both
// terminal states (Stopped, Failed) may transition back to Starting
// for restart.
//
// State management in [Runtime] is protected by a mutex; all methods
// are safe for concurrent use.
package lifecycle

// State represents the lifecycle state of the server process. States
// form a finite state machine with transitions validated by
// [ValidTransition].
//
// The zero value ("") is not a valid state; a Runtime starts in
// [StateUnknown].
type State string

const (
	// StateUnknown is the initial state of a newly constructed Runtime
	// before Start has been called.
	StateUnknown State = "unknown"

	// StateStarting indicates startup hooks are executing. External
	// observers may see this state while dependencies connect.
	StateStarting State = "starting"

	// StateRunning indicates the server started successfully and is
	// serving requests. This is the only state in which
	// [Runtime.Health] consults the dependency checks.
	StateRunning State = "running"

	// StateStopping indicates shutdown hooks are executing and
	// in-flight requests are draining.
	StateStopping State = "stopping"

	// StateStopped indicates a clean shutdown completed. Terminal; a
	// stopped Runtime may be started again.
	StateStopped State = "stopped"

	// StateFailed indicates a startup or shutdown hook returned an
	// error. Terminal; a failed Runtime may be started again.
	StateFailed State = "failed"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Valid reports whether the state is one of the recognized lifecycle
// states. The zero value ("") is not valid.
func (s State) Valid() bool {
	switch s {
	case StateUnknown, StateStarting, StateRunning,
		StateStopping, StateStopped, StateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the state is terminal. Terminal states
// are [StateStopped] and [StateFailed]; a process in one is not
// serving and must be restarted.
func (s State) IsTerminal() bool {
	switch s {
	case StateStopped, StateFailed:
		return true
	default:
		return false
	}
}

// validTransitions defines the allowed transitions. Transitions not
// present here are rejected by [ValidTransition].
var validTransitions = map[State][]State{
	StateUnknown:  {StateStarting, StateFailed},
	StateStarting: {StateRunning, StateFailed, StateStopping},
	StateRunning:  {StateStopping, StateFailed},
	StateStopping: {StateStopped, StateFailed},
	StateStopped:  {StateStarting},
	StateFailed:   {StateStarting},
}

// ValidTransition reports whether moving from state from to state to
// is allowed. Same-state transitions are always rejected.
func ValidTransition(from, to State) bool {
	if from == to {
		return false
	}
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}
