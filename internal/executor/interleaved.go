package executor

import (
	"fmt"

	"github.com/programme-lv/fuzzexec/api"
)

// Interleaved runs two executors back to back on the same input. The primary
// runs first and its observers are the ones reported; the secondary is usually
// the one that actually drives the target.
type Interleaved struct {
	primary   Executor
	secondary Executor
}

func NewInterleaved(primary, secondary Executor) *Interleaved {
	return &Interleaved{primary: primary, secondary: secondary}
}

func (e *Interleaved) Primary() Executor   { return e.primary }
func (e *Interleaved) Secondary() Executor { return e.secondary }

func (e *Interleaved) Observers() Observers {
	return e.primary.Observers()
}

// RunTarget counts the pair as a single execution. Both members are reset
// before returning, also when one of them failed.
func (e *Interleaved) RunTarget(driver Driver, state State, sink EventSink, input Input) (api.ExitKind, error) {
	state.IncExecutions()
	inner := uncounted{state}

	defer e.secondary.PostRunReset()
	defer e.primary.PostRunReset()

	first, err := e.primary.RunTarget(driver, inner, sink, input)
	if err != nil {
		return "", fmt.Errorf("primary executor failed: %w", err)
	}
	second, err := e.secondary.RunTarget(driver, inner, sink, input)
	if err != nil {
		return "", fmt.Errorf("secondary executor failed: %w", err)
	}
	return MergeExitKinds(first, second), nil
}

// PostRunReset does nothing; RunTarget already reset both members.
func (e *Interleaved) PostRunReset() {}

// MergeExitKinds combines verdicts: any Crash wins over any Timeout, which
// wins over Ok.
func MergeExitKinds(a, b api.ExitKind) api.ExitKind {
	switch {
	case a == api.Crash || b == api.Crash:
		return api.Crash
	case a == api.Timeout || b == api.Timeout:
		return api.Timeout
	default:
		return api.Ok
	}
}

// uncounted forwards everything except execution accounting.
type uncounted struct {
	State
}

func (uncounted) IncExecutions() {}
