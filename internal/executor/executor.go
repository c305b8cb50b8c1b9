// Package executor defines the contract every trial execution strategy
// implements, along with the observer and driver hooks they report through.
package executor

import (
	"github.com/programme-lv/fuzzexec/api"
)

// Input is the byte payload of a single trial.
type Input []byte

// Clone returns a copy that outlives the trial.
func (in Input) Clone() Input {
	if in == nil {
		return nil
	}
	c := make(Input, len(in))
	copy(c, in)
	return c
}

// Harness runs the target once against an input and reports the verdict.
type Harness func(input Input) api.ExitKind

// State is the driver-owned trial state executors account against.
type State interface {
	Executions() uint64
	IncExecutions()
	// AddSolution persists an input kept by the objective and returns the
	// number of solutions and whether the input had not been kept before.
	AddSolution(input Input, kind api.ExitKind) (int, bool, error)
}

// EventSink receives lifecycle notifications. Implementations must be safe to
// call from a fault handler's reporting path.
type EventSink interface {
	NewSolution(input Input, kind api.ExitKind, total int)
	RestartForPersistence(executions uint64)
	TargetRestarted(reason string)
}

// Driver evaluates whether a finished trial is an objective (a solution).
type Driver interface {
	IsObjective(state State, sink EventSink, input Input, observers Observers, kind api.ExitKind) (bool, error)
}

// HasObservers is implemented by anything carrying an observer set.
type HasObservers interface {
	Observers() Observers
}

// Executor runs one trial per RunTarget call.
//
// RunTarget increments the execution counter of state exactly once per call,
// whatever the outcome. A target that crashes or hangs yields the Crash or
// Timeout verdict; the error return is reserved for infrastructural failures.
//
// PostRunReset restores per-trial state. It is idempotent and safe to call
// after RunTarget returned an error.
type Executor interface {
	HasObservers
	RunTarget(driver Driver, state State, sink EventSink, input Input) (api.ExitKind, error)
	PostRunReset()
}
