// Package driver runs trials against an executor and decides which inputs to
// keep.
package driver

import (
	"sync/atomic"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/solutions"
)

// State counts trials and persists solutions into an optional store.
type State struct {
	executions atomic.Uint64
	solutions  atomic.Int64
	store      *solutions.Store
}

var _ executor.State = (*State)(nil)

// NewState returns a state backed by store. A nil store keeps only counts.
func NewState(store *solutions.Store) *State {
	s := &State{store: store}
	if store != nil {
		s.solutions.Store(int64(store.Len()))
	}
	return s
}

func (s *State) Executions() uint64 {
	return s.executions.Load()
}

func (s *State) IncExecutions() {
	s.executions.Add(1)
}

func (s *State) Solutions() int {
	return int(s.solutions.Load())
}

// AddSolution reports fresh=false for an input the store already holds.
// Without a store every input counts as fresh.
func (s *State) AddSolution(input executor.Input, kind api.ExitKind) (int, bool, error) {
	if s.store == nil {
		return int(s.solutions.Add(1)), true, nil
	}
	total, fresh, err := s.store.Add(input, kind)
	if err != nil {
		return s.Solutions(), false, err
	}
	s.solutions.Store(int64(total))
	return total, fresh, nil
}
