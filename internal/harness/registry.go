// Package harness keeps the named harnesses that executors can run, in process
// or inside a forked child.
package harness

import (
	"errors"
	"fmt"
	"sort"

	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/shmem"
	"github.com/puzpuzpuz/xsync/v3"
)

var ErrUnknown = errors.New("unknown harness")

// Factory builds a harness and the observers it reports through. In a forked
// child regions holds the memory shared with the parent; in process it holds
// whatever regions the caller created, possibly none.
type Factory func(regions []*shmem.Region) (executor.Harness, executor.Observers)

var registry = xsync.NewMapOf[string, Factory]()

// Register makes a harness available under name, replacing any previous one.
func Register(name string, f Factory) {
	registry.Store(name, f)
}

func Lookup(name string) (Factory, error) {
	f, ok := registry.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return f, nil
}

// Names lists registered harnesses in alphabetical order.
func Names() []string {
	names := make([]string, 0, registry.Size())
	registry.Range(func(name string, _ Factory) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Simple registers a harness that needs no observers.
func Simple(name string, h executor.Harness) {
	Register(name, func([]*shmem.Region) (executor.Harness, executor.Observers) {
		return h, nil
	})
}
