package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/config"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/solutions"
	"github.com/stretchr/testify/require"
)

func TestReadInput(t *testing.T) {
	dir := t.TempDir()

	raw := filepath.Join(dir, "seed.raw")
	require.NoError(t, os.WriteFile(raw, []byte("GET /\r\n"), 0644))
	in, err := readInput(raw)
	require.NoError(t, err)
	require.Equal(t, executor.Input("GET /\r\n"), in)

	store, err := solutions.New(dir)
	require.NoError(t, err)
	_, _, err = store.Add([]byte("abc"), api.Crash)
	require.NoError(t, err)
	name := solutions.FileName(solutions.Sha256Hex([]byte("abc")), api.Crash)
	in, err = readInput(filepath.Join(dir, name))
	require.NoError(t, err)
	require.Equal(t, executor.Input("abc"), in)
}

func TestCheckHealth(t *testing.T) {
	cfg, err := config.Parse([]byte("[solutions]\ndir = \"" + t.TempDir() + "\"\n"))
	require.NoError(t, err)

	rows := checkHealth(cfg)
	require.Len(t, rows, 2)
	for _, r := range rows {
		require.Equal(t, healthOk, r.health, r.unit)
	}

	cfg.Run.Harness = "missing"
	rows = checkHealth(cfg)
	require.Equal(t, healthError, rows[1].health)
}

func TestBuildFuzzerRejectsUnknownObjective(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	cfg.Run.Objectives = []string{"crash", "slow"}
	_, err = buildFuzzer(cfg, nil)
	require.Error(t, err)
}
