package api

// Non-streaming summary of a whole run

// SolutionRecord describes one saved solution
type SolutionRecord struct {
	Verdict     ExitKind `json:"verdict"`
	InputSha256 string   `json:"input_sha256"`
	InputBytes  int      `json:"input_bytes"`
}

type RunStatus string

const (
	Finished      RunStatus = "finished"
	InternalError RunStatus = "internal_error"
)

// RunSummary is a complete report of a trial run
type RunSummary struct {
	RunUuid    string `json:"run_uuid"`
	SystemInfo string `json:"system_info,omitempty"`

	Status RunStatus `json:"status"`

	Executions       uint64 `json:"executions"`
	PersistRestarts  int    `json:"persist_restarts"`
	TargetRestarts   int    `json:"target_restarts"`
	CrashSolutions   int    `json:"crash_solutions"`
	TimeoutSolutions int    `json:"timeout_solutions"`

	Solutions []SolutionRecord `json:"solutions"`

	ErrorMessage *string `json:"error_message,omitempty"`

	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}
