package lifecycle

// State describes where the process is in its lifecycle. Transitions are
// monotonic: a state is never re-entered once left.
type State int32

const (
	StateNotStarted State = iota
	StateStarting
	StateRunning
	StateShuttingDown
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
