package respbuilder

import (
	"sync"
	"time"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/solutions"
)

// Builder gathers run events and builds an api.RunSummary.
type Builder struct {
	mu sync.Mutex

	runUuid    string
	systemInfo string

	started  time.Time
	finished *time.Time

	executions      uint64
	persistRestarts int
	targetRestarts  int
	solutions       []api.SolutionRecord

	status       api.RunStatus
	errorMessage *string
}

func New(runUuid string) *Builder {
	return &Builder{
		runUuid: runUuid,
		started: time.Now(),
		status:  api.Finished,
	}
}

func (b *Builder) StartRun(systemInfo string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.systemInfo = systemInfo
}

func (b *Builder) NewSolution(input executor.Input, kind api.ExitKind, _ int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.solutions = append(b.solutions, api.SolutionRecord{
		Verdict:     kind,
		InputSha256: solutions.Sha256Hex(input),
		InputBytes:  len(input),
	})
}

func (b *Builder) RestartForPersistence(executions uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.persistRestarts++
	b.executions = executions
}

func (b *Builder) TargetRestarted(string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targetRestarts++
}

func (b *Builder) FinishRun(executions uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.finished = &now
	b.executions = executions
	if err != nil {
		msg := err.Error()
		b.status = api.InternalError
		b.errorMessage = &msg
	}
}

// Summary builds the api.RunSummary from gathered data.
func (b *Builder) Summary() api.RunSummary {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := api.RunSummary{
		RunUuid:         b.runUuid,
		SystemInfo:      b.systemInfo,
		Status:          b.status,
		Executions:      b.executions,
		PersistRestarts: b.persistRestarts,
		TargetRestarts:  b.targetRestarts,
		Solutions:       append([]api.SolutionRecord{}, b.solutions...),
		StartedAt:       b.started.Format(time.RFC3339),
	}
	for _, s := range b.solutions {
		switch s.Verdict {
		case api.Crash:
			res.CrashSolutions++
		case api.Timeout:
			res.TimeoutSolutions++
		}
	}
	if b.errorMessage != nil {
		v := *b.errorMessage
		res.ErrorMessage = &v
	}
	if b.finished != nil {
		res.FinishedAt = b.finished.Format(time.RFC3339)
	}
	return res
}
