package natsgath

import (
	"log/slog"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/gatherer/strtrim"
	"github.com/programme-lv/fuzzexec/internal/solutions"
)

type NatsGatherer struct {
	pub     publisher
	subject string
	runUuid string
	logger  *slog.Logger
}

func (s *NatsGatherer) StartRun(systemInfo string) {
	s.send(api.NewStartRun(s.runUuid, systemInfo))
}

func (s *NatsGatherer) NewSolution(input executor.Input, kind api.ExitKind, total int) {
	s.send(api.NewNewSolution(
		s.runUuid,
		kind,
		solutions.Sha256Hex(input),
		strtrim.Preview(input, api.MaxInputPreviewHeight, api.MaxInputPreviewWidth),
		len(input),
		total,
	))
}

// RestartForPersistence is the last event before a fault handler exits.
func (s *NatsGatherer) RestartForPersistence(executions uint64) {
	s.send(api.NewRestartPersist(s.runUuid, executions))
	s.flush()
}

func (s *NatsGatherer) TargetRestarted(reason string) {
	s.send(api.NewTargetRestart(s.runUuid, reason))
}

func (s *NatsGatherer) FinishRun(executions uint64, err error) {
	var msg *string
	if err != nil {
		m := err.Error()
		msg = &m
	}
	s.send(api.NewFinishRun(s.runUuid, executions, msg))
	s.flush()
}
