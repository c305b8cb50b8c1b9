package executor

import (
	"fmt"

	"github.com/programme-lv/fuzzexec/api"
)

// SaveIfObjective is the single objective entry point shared by the normal
// return path and every fault path. Kept inputs are persisted through state;
// only inputs the state had not seen before are announced to sink.
func SaveIfObjective(driver Driver, state State, sink EventSink, input Input, observers Observers, kind api.ExitKind) (bool, error) {
	interesting, err := driver.IsObjective(state, sink, input, observers, kind)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate objective: %w", err)
	}
	if !interesting {
		return false, nil
	}

	total, fresh, err := state.AddSolution(input.Clone(), kind)
	if err != nil {
		return true, fmt.Errorf("failed to save solution: %w", err)
	}
	if fresh {
		sink.NewSolution(input, kind, total)
	}
	return true, nil
}
