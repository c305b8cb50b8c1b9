// Package sysinfo describes the machine a run executes on.
package sysinfo

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Collect returns a short multi-line description. Sources that cannot be read
// are logged and left out.
func Collect() string {
	var b strings.Builder
	fmt.Fprintf(&b, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

	if h, err := host.Info(); err == nil {
		fmt.Fprintf(&b, "host: %s %s %s (kernel %s)\n", h.Hostname, h.Platform, h.PlatformVersion, h.KernelVersion)
	} else {
		slog.Debug("failed to read host info", tint.Err(err))
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		cores, _ := cpu.Counts(true)
		fmt.Fprintf(&b, "cpu: %s x%d\n", strings.TrimSpace(infos[0].ModelName), cores)
	} else if err != nil {
		slog.Debug("failed to read cpu info", tint.Err(err))
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(&b, "memory: %d MiB total, %d MiB available\n", vm.Total>>20, vm.Available>>20)
	} else {
		slog.Debug("failed to read memory info", tint.Err(err))
	}
	return strings.TrimRight(b.String(), "\n")
}
