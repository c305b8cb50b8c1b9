package harness

import (
	"bytes"
	"os"
	"time"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/shmem"
	"golang.org/x/sys/unix"
)

// SignalsMap is the observer name of the baby harness progress map.
const SignalsMap = "signals"

const signalsLen = 16

func init() {
	Register("baby", baby)
	Simple("ok", func(executor.Input) api.ExitKind { return api.Ok })
	Simple("hang", func(in executor.Input) api.ExitKind {
		if bytes.Contains(in, []byte("hang")) {
			time.Sleep(time.Hour)
		}
		return api.Ok
	})
	Simple("kill", func(in executor.Input) api.ExitKind {
		if bytes.HasPrefix(in, []byte("kill")) {
			_ = unix.Kill(os.Getpid(), unix.SIGSEGV)
			time.Sleep(time.Hour)
		}
		return api.Ok
	})
}

// baby panics on inputs starting with "abc" and marks one map slot for every
// matched prefix byte.
func baby(regions []*shmem.Region) (executor.Harness, executor.Observers) {
	var signals []byte
	if len(regions) > 0 {
		signals = regions[0].Bytes()
	} else {
		signals = make([]byte, signalsLen)
	}
	m := executor.NewMapObserver(SignalsMap, signals)

	h := func(in executor.Input) api.ExitKind {
		m.Set(0)
		if len(in) > 0 && in[0] == 'a' {
			m.Set(1)
			if len(in) > 1 && in[1] == 'b' {
				m.Set(2)
				if len(in) > 2 && in[2] == 'c' {
					panic("Artificial bug triggered =)")
				}
			}
		}
		return api.Ok
	}
	return h, executor.Observers{m}
}
