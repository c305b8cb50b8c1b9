package seeds_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/programme-lv/fuzzexec/internal/seeds"
	"github.com/stretchr/testify/require"
)

func TestFromDir(t *testing.T) {
	dir, err := os.MkdirTemp("", "seeds")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.raw"), []byte("USER b\r\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.raw"), []byte("USER a\r\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.raw"), 0755))

	g, err := seeds.FromDir(dir)
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())
	require.Equal(t, []string{"a.raw", "b.raw"}, g.Names())

	in, err := g.Generate()
	require.NoError(t, err)
	require.Equal(t, "USER a\r\n", string(in))
	in, err = g.Generate()
	require.NoError(t, err)
	require.Equal(t, "USER b\r\n", string(in))
	_, err = g.Generate()
	require.ErrorIs(t, err, seeds.ErrExhausted)

	require.Len(t, g.All(), 2)
}

func TestEmptyDir(t *testing.T) {
	_, err := seeds.FromDir(t.TempDir())
	require.ErrorIs(t, err, seeds.ErrNoSeeds)

	_, err = seeds.FromDir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
