package lifecycle

import (
	"fmt"
	"os"
)

// ShutdownCause records what triggered a teardown so the final log line can
// say why the process stopped.
type ShutdownCause struct {
	Trigger string
	Signal  os.Signal
	Err     error
}

func (c ShutdownCause) String() string {
	switch {
	case c.Signal != nil:
		return fmt.Sprintf("%s (%s)", c.Trigger, c.Signal)
	case c.Err != nil:
		return fmt.Sprintf("%s (%s)", c.Trigger, c.Err)
	default:
		return c.Trigger
	}
}

// SignalCause marks a teardown triggered by a termination signal
func SignalCause(sig os.Signal) ShutdownCause {
	return ShutdownCause{Trigger: "signal", Signal: sig}
}

// FaultCause marks a teardown triggered by an intercepted fault
func FaultCause(err error) ShutdownCause {
	return ShutdownCause{Trigger: "fault", Err: err}
}

// ListenerFailureCause marks a teardown triggered by the listener failing
// while the service was running
func ListenerFailureCause(err error) ShutdownCause {
	return ShutdownCause{Trigger: "listener_failure", Err: err}
}

// RequestedCause marks a programmatic shutdown request
func RequestedCause() ShutdownCause {
	return ShutdownCause{Trigger: "requested"}
}
