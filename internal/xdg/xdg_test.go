package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirsFromEnv(t *testing.T) {
	cfgHome := t.TempDir()
	env := map[string]string{
		"XDG_CONFIG_HOME": cfgHome,
		"XDG_RUNTIME_DIR": "/run/user/1000",
		"XDG_CONFIG_DIRS": "/a:/b",
	}
	x := newXDGDirs(func(k string) string { return env[k] })

	require.Equal(t, "/run/user/1000/fuzzexec", x.AppRuntimeDir("fuzzexec"))
	require.Equal(t, []string{cfgHome, "/a", "/b"}, x.ConfigDirs())

	_, ok := x.FindConfig("fuzzexec", "config.toml")
	require.False(t, ok)

	p := filepath.Join(cfgHome, "fuzzexec", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte("[run]\n"), 0644))
	got, ok := x.FindConfig("fuzzexec", "config.toml")
	require.True(t, ok)
	require.Equal(t, p, got)
}

func TestRuntimeFallback(t *testing.T) {
	x := newXDGDirs(func(k string) string {
		if k == "USER" {
			return "alice"
		}
		return ""
	})
	require.Equal(t, filepath.Join(os.TempDir(), "fuzzexec-runtime-alice"), x.RuntimeDir())
}
