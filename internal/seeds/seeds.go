// Package seeds turns a directory of raw seed files into trial inputs.
package seeds

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/programme-lv/fuzzexec/internal/executor"
)

// Ext is the extension of seed files; other files are ignored.
const Ext = ".raw"

var (
	ErrNoSeeds   = errors.New("no seed files found")
	ErrExhausted = errors.New("no more seeds")
)

// Generator hands out the seeds of a directory in file name order.
type Generator struct {
	names []string
	seeds []executor.Input
	next  int
}

// FromDir reads every seed in dir up front.
func FromDir(dir string) (*Generator, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed directory %s: %w", dir, err)
	}
	g := &Generator{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		g.names = append(g.names, e.Name())
	}
	if len(g.names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSeeds, dir)
	}
	sort.Strings(g.names)
	for _, name := range g.names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read seed %s: %w", name, err)
		}
		g.seeds = append(g.seeds, b)
	}
	return g, nil
}

// Generate returns the next seed, or ErrExhausted.
func (g *Generator) Generate() (executor.Input, error) {
	if g.next >= len(g.seeds) {
		return nil, ErrExhausted
	}
	in := g.seeds[g.next].Clone()
	g.next++
	return in, nil
}

func (g *Generator) Len() int { return len(g.seeds) }

// All returns copies of every seed regardless of how many were generated.
func (g *Generator) All() []executor.Input {
	all := make([]executor.Input, len(g.seeds))
	for i, s := range g.seeds {
		all[i] = s.Clone()
	}
	return all
}

func (g *Generator) Names() []string {
	return append([]string(nil), g.names...)
}
