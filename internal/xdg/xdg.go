// Package xdg resolves XDG base directories for fuzzexec files.
package xdg

import (
	"os"
	"path/filepath"
)

type XDGDirs struct {
	configHome string
	stateHome  string
	runtimeDir string
	configDirs []string
}

func NewXDGDirs() *XDGDirs {
	return newXDGDirs(os.Getenv)
}

func newXDGDirs(getenv func(string) string) *XDGDirs {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = getenv("HOME")
		if homeDir == "" {
			homeDir = os.TempDir()
		}
	}
	orDefault := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	x := &XDGDirs{
		configHome: orDefault("XDG_CONFIG_HOME", filepath.Join(homeDir, ".config")),
		stateHome:  orDefault("XDG_STATE_HOME", filepath.Join(homeDir, ".local", "state")),
		runtimeDir: orDefault("XDG_RUNTIME_DIR", filepath.Join(os.TempDir(), "fuzzexec-runtime-"+getenv("USER"))),
	}
	if dirs := getenv("XDG_CONFIG_DIRS"); dirs != "" {
		x.configDirs = filepath.SplitList(dirs)
	} else {
		x.configDirs = []string{"/etc/xdg"}
	}
	return x
}

func (x *XDGDirs) RuntimeDir() string { return x.runtimeDir }

// ConfigDirs returns the config search path, most preferred first.
func (x *XDGDirs) ConfigDirs() []string {
	return append([]string{x.configHome}, x.configDirs...)
}

func (x *XDGDirs) AppStateDir(appName string) string {
	return filepath.Join(x.stateHome, appName)
}

func (x *XDGDirs) AppRuntimeDir(appName string) string {
	return filepath.Join(x.runtimeDir, appName)
}

// FindConfig returns the first existing <dir>/<appName>/<name> on the config
// search path.
func (x *XDGDirs) FindConfig(appName, name string) (string, bool) {
	for _, d := range x.ConfigDirs() {
		p := filepath.Join(d, appName, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}

// EnsureRuntimeDir creates a private directory.
func (x *XDGDirs) EnsureRuntimeDir(path string) error {
	return os.MkdirAll(path, 0700)
}
