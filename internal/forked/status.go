package forked

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/faultctx"
)

const (
	// signalExitLimit bounds the exit codes that encode a signal.
	signalExitLimit = faultctx.SignalExitBase + 32
	// ChildSetupExitCode is used by a child that could not start the trial.
	ChildSetupExitCode = 121
	// goFatalExitCode is what the Go runtime exits with on an unrecoverable
	// error such as stack exhaustion or concurrent map writes.
	goFatalExitCode = 2
)

var ErrChildSetup = errors.New("forked child failed to set up the trial")

// DecodeStatus maps a child wait status to a verdict.
func DecodeStatus(ws syscall.WaitStatus) (api.ExitKind, error) {
	switch {
	case ws.Exited():
		code := ws.ExitStatus()
		switch {
		case code == ChildSetupExitCode:
			return "", ErrChildSetup
		case code == goFatalExitCode:
			return api.Crash, nil
		case code > faultctx.SignalExitBase && code < signalExitLimit:
			if faultctx.IsTimeoutSignal(syscall.Signal(code - faultctx.SignalExitBase)) {
				return api.Timeout, nil
			}
			return api.Crash, nil
		default:
			return api.Ok, nil
		}
	case ws.Signaled():
		if faultctx.IsTimeoutSignal(ws.Signal()) {
			return api.Timeout, nil
		}
		return api.Crash, nil
	default:
		return "", fmt.Errorf("unexpected child wait status %#x", uint32(ws))
	}
}
