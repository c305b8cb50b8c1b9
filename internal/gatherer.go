package internal

import (
	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
)

// Gatherer receives the events of one run.
type Gatherer interface {
	executor.EventSink

	StartRun(systemInfo string)
	FinishRun(executions uint64, err error)
}

// Multi forwards every event to each gatherer in order.
type Multi []Gatherer

var _ Gatherer = Multi(nil)

func (m Multi) StartRun(systemInfo string) {
	for _, g := range m {
		g.StartRun(systemInfo)
	}
}

func (m Multi) NewSolution(input executor.Input, kind api.ExitKind, total int) {
	for _, g := range m {
		g.NewSolution(input, kind, total)
	}
}

func (m Multi) RestartForPersistence(executions uint64) {
	for _, g := range m {
		g.RestartForPersistence(executions)
	}
}

func (m Multi) TargetRestarted(reason string) {
	for _, g := range m {
		g.TargetRestarted(reason)
	}
}

func (m Multi) FinishRun(executions uint64, err error) {
	for _, g := range m {
		g.FinishRun(executions, err)
	}
}
