// Package scorer asks an external model which coverage slots a captured
// traffic trace triggered.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Scorer maps a capture file to the set of triggered indices.
type Scorer interface {
	Score(ctx context.Context, capturePath string) (mapset.Set[int], error)
}

// Command runs `<Path> <Args...> <capture>` and parses its standard output.
type Command struct {
	Path    string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

func (c *Command) Score(ctx context.Context, capturePath string) (mapset.Set[int], error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	args := append(append([]string{}, c.Args...), capturePath)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run scorer %s: %w: %s", c.Path, err, strings.TrimSpace(stderr.String()))
	}
	return Parse(out)
}

// Parse reads a JSON array with one entry per slot. Only entries that are true
// or exactly 1 mark their index as triggered.
func Parse(out []byte) (mapset.Set[int], error) {
	var flags []any
	if err := json.Unmarshal(bytes.TrimSpace(out), &flags); err != nil {
		return nil, fmt.Errorf("failed to parse scorer output: %w", err)
	}
	triggered := mapset.NewSet[int]()
	for i, f := range flags {
		switch v := f.(type) {
		case bool:
			if v {
				triggered.Add(i)
			}
		case float64:
			if v == 1 {
				triggered.Add(i)
			}
		case nil:
		default:
			return nil, fmt.Errorf("unexpected scorer value %v at index %d", f, i)
		}
	}
	return triggered, nil
}

// ErrEmptyCommand is returned by Validate.
var ErrEmptyCommand = errors.New("scorer command is not configured")

func (c *Command) Validate() error {
	if c.Path == "" {
		return ErrEmptyCommand
	}
	return nil
}
