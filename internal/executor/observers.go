package executor

import (
	"fmt"

	"github.com/programme-lv/fuzzexec/api"
)

// Observer is notified before and after every trial.
type Observer interface {
	Name() string
	PreExec(state State, input Input) error
	PostExec(state State, input Input, kind api.ExitKind) error
}

// ChildObserver additionally runs inside a forked child. The driver state does
// not cross the process boundary, so the child hooks only see the input.
type ChildObserver interface {
	Observer
	PreExecChild(input Input) error
	PostExecChild(input Input, kind api.ExitKind) error
}

// Observers is an ordered observer set.
type Observers []Observer

func (obs Observers) PreExecAll(state State, input Input) error {
	for _, o := range obs {
		if err := o.PreExec(state, input); err != nil {
			return fmt.Errorf("observer %s failed pre-exec: %w", o.Name(), err)
		}
	}
	return nil
}

func (obs Observers) PostExecAll(state State, input Input, kind api.ExitKind) error {
	for _, o := range obs {
		if err := o.PostExec(state, input, kind); err != nil {
			return fmt.Errorf("observer %s failed post-exec: %w", o.Name(), err)
		}
	}
	return nil
}

func (obs Observers) PreExecChildAll(input Input) error {
	for _, o := range obs {
		co, ok := o.(ChildObserver)
		if !ok {
			continue
		}
		if err := co.PreExecChild(input); err != nil {
			return fmt.Errorf("observer %s failed child pre-exec: %w", o.Name(), err)
		}
	}
	return nil
}

func (obs Observers) PostExecChildAll(input Input, kind api.ExitKind) error {
	for _, o := range obs {
		co, ok := o.(ChildObserver)
		if !ok {
			continue
		}
		if err := co.PostExecChild(input, kind); err != nil {
			return fmt.Errorf("observer %s failed child post-exec: %w", o.Name(), err)
		}
	}
	return nil
}

// Lookup finds an observer by name.
func (obs Observers) Lookup(name string) (Observer, bool) {
	for _, o := range obs {
		if o.Name() == name {
			return o, true
		}
	}
	return nil, false
}

// MapObserver exposes a byte map that a harness, a child process or an
// approximator fills in during a trial. It is cleared before every trial.
type MapObserver struct {
	name string
	m    []byte
}

// NewMapObserver wraps m, which may be backed by shared memory.
func NewMapObserver(name string, m []byte) *MapObserver {
	return &MapObserver{name: name, m: m}
}

func (o *MapObserver) Name() string { return o.name }

func (o *MapObserver) Map() []byte { return o.m }

func (o *MapObserver) Len() int { return len(o.m) }

// Set marks index i, ignoring indices outside the map.
func (o *MapObserver) Set(i int) bool {
	if i < 0 || i >= len(o.m) {
		return false
	}
	if o.m[i] < 0xff {
		o.m[i]++
	}
	return true
}

func (o *MapObserver) Reset() {
	clear(o.m)
}

func (o *MapObserver) CountNonZero() int {
	n := 0
	for _, b := range o.m {
		if b != 0 {
			n++
		}
	}
	return n
}

func (o *MapObserver) PreExec(State, Input) error {
	o.Reset()
	return nil
}

func (o *MapObserver) PostExec(State, Input, api.ExitKind) error { return nil }

func (o *MapObserver) PreExecChild(Input) error {
	o.Reset()
	return nil
}

func (o *MapObserver) PostExecChild(Input, api.ExitKind) error { return nil }
