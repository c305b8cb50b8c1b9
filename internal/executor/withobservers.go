package executor

import (
	"fmt"

	"github.com/programme-lv/fuzzexec/api"
)

type withObservers struct {
	inner     Executor
	observers Observers
}

// WithObservers attaches observers to an executor that carries none of its
// own. Pre-exec hooks run before the wrapped RunTarget, post-exec hooks after.
func WithObservers(inner Executor, observers ...Observer) Executor {
	return &withObservers{inner: inner, observers: observers}
}

func (w *withObservers) Observers() Observers {
	return w.observers
}

func (w *withObservers) RunTarget(driver Driver, state State, sink EventSink, input Input) (api.ExitKind, error) {
	if err := w.observers.PreExecAll(state, input); err != nil {
		// the inner executor never ran, so account for the trial here
		state.IncExecutions()
		return "", err
	}
	kind, err := w.inner.RunTarget(driver, state, sink, input)
	if err != nil {
		return kind, err
	}
	if err := w.observers.PostExecAll(state, input, kind); err != nil {
		return kind, fmt.Errorf("failed to finish trial: %w", err)
	}
	return kind, nil
}

func (w *withObservers) PostRunReset() {
	w.inner.PostRunReset()
}
