package api

import "time"

// MsgType is a message type for streamed run events
type MsgType string

// Streaming message type constants
const (
	StartRunMsg       MsgType = "run_start"
	NewSolutionMsg    MsgType = "solution_new"
	RestartPersistMsg MsgType = "restart_persist"
	TargetRestartMsg  MsgType = "target_restart"
	FinishRunMsg      MsgType = "run_finish"
)

// Input preview size constraints for streaming
const (
	MaxInputPreviewHeight = 40
	MaxInputPreviewWidth  = 80
)

// Header is the common header for all streamed messages
type Header struct {
	RunUuid string  `json:"run_uuid"`
	MsgType MsgType `json:"msg_type"`
}

// StartRun message sent when the trial loop begins
type StartRun struct {
	Header
	SystemInfo  string `json:"system_info"`
	StartedTime string `json:"started_time"`
}

// NewSolution message sent when a trial is kept as a solution
type NewSolution struct {
	Header
	Verdict      ExitKind `json:"verdict"`
	InputSha256  string   `json:"input_sha256"`
	InputPreview *string  `json:"input_preview"`
	InputBytes   int      `json:"input_bytes"`
	Solutions    int      `json:"solutions"`
}

// RestartPersist message sent by a fault handler right before the process exits
type RestartPersist struct {
	Header
	Executions uint64 `json:"executions"`
}

// TargetRestart message sent when the network target had to be restarted
type TargetRestart struct {
	Header
	Reason string `json:"reason"`
}

// FinishRun message sent when the trial loop ends
type FinishRun struct {
	Header
	Executions   uint64  `json:"executions"`
	ErrorMessage *string `json:"error_message"`
	FinishedTime string  `json:"finished_time"`
}

func NewHeader(runUuid string, msgType MsgType) Header {
	return Header{
		RunUuid: runUuid,
		MsgType: msgType,
	}
}

func NewStartRun(runUuid, systemInfo string) StartRun {
	return StartRun{
		Header:      NewHeader(runUuid, StartRunMsg),
		SystemInfo:  systemInfo,
		StartedTime: time.Now().Format(time.RFC3339),
	}
}

func NewNewSolution(runUuid string, verdict ExitKind, sha string, preview *string, size int, total int) NewSolution {
	return NewSolution{
		Header:       NewHeader(runUuid, NewSolutionMsg),
		Verdict:      verdict,
		InputSha256:  sha,
		InputPreview: preview,
		InputBytes:   size,
		Solutions:    total,
	}
}

func NewRestartPersist(runUuid string, executions uint64) RestartPersist {
	return RestartPersist{
		Header:     NewHeader(runUuid, RestartPersistMsg),
		Executions: executions,
	}
}

func NewTargetRestart(runUuid string, reason string) TargetRestart {
	return TargetRestart{
		Header: NewHeader(runUuid, TargetRestartMsg),
		Reason: reason,
	}
}

func NewFinishRun(runUuid string, executions uint64, errorMessage *string) FinishRun {
	return FinishRun{
		Header:       NewHeader(runUuid, FinishRunMsg),
		Executions:   executions,
		ErrorMessage: errorMessage,
		FinishedTime: time.Now().Format(time.RFC3339),
	}
}
