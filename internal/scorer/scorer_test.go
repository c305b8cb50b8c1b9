package scorer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/programme-lv/fuzzexec/internal/scorer"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	got, err := scorer.Parse([]byte("[0, 1, 0, 1]\n"))
	require.NoError(t, err)
	require.True(t, got.Equal(mapset.NewSet(1, 3)))

	got, err = scorer.Parse([]byte("[2, 1, 0.5, -1, 1.0]"))
	require.NoError(t, err)
	require.True(t, got.Equal(mapset.NewSet(1, 4)), "only slots equal to 1 are triggered")

	got, err = scorer.Parse([]byte("[true, false, true]"))
	require.NoError(t, err)
	require.True(t, got.Equal(mapset.NewSet(0, 2)))

	got, err = scorer.Parse([]byte("[]"))
	require.NoError(t, err)
	require.Zero(t, got.Cardinality())

	_, err = scorer.Parse([]byte("not json"))
	require.Error(t, err)

	_, err = scorer.Parse([]byte(`["x"]`))
	require.Error(t, err)
}

func TestCommandGetsCapturePath(t *testing.T) {
	capture := filepath.Join(t.TempDir(), "trial.pcap")
	require.NoError(t, os.WriteFile(capture, []byte("pcap"), 0644))

	c := &scorer.Command{Path: "sh", Args: []string{"-c", `test -f "$1" && echo "[0,0,1]"`, "scorer"}}
	require.NoError(t, c.Validate())
	got, err := c.Score(context.Background(), capture)
	require.NoError(t, err)
	require.True(t, got.Equal(mapset.NewSet(2)))

	_, err = c.Score(context.Background(), filepath.Join(t.TempDir(), "missing.pcap"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.ErrorIs(t, (&scorer.Command{}).Validate(), scorer.ErrEmptyCommand)
}
