package strtrim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToRect(t *testing.T) {
	require.Equal(t, "", ToRect("", 2, 3))
	require.Equal(t, "ab\ncd", ToRect("ab\ncd", 2, 3))
	require.Equal(t, "abc[...]\nd", ToRect("abcdef\nd", 2, 3))
	require.Equal(t, "a\nb\n[...]", ToRect("a\nb\nc\nd", 2, 3))
}

func TestPreview(t *testing.T) {
	require.Nil(t, Preview(nil, 40, 80))

	p := Preview([]byte(strings.Repeat("x", 100)), 40, 80)
	require.NotNil(t, p)
	require.Equal(t, strings.Repeat("x", 80)+"[...]", *p)
}
