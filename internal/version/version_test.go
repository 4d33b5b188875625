package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	v, c, b := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = v, c, b })

	Version, GitCommit, BuildTime = "v1.2.3", "unknown", "unknown"
	require.Equal(t, "v1.2.3", String())

	GitCommit = "abc123"
	require.Equal(t, "v1.2.3 (abc123)", String())

	BuildTime = "2026-01-02"
	require.Equal(t, "v1.2.3 (abc123, built 2026-01-02)", String())
}

func TestDefaults(t *testing.T) {
	require.NotEmpty(t, Version)
	require.NotEmpty(t, BuildTime)
	require.NotEmpty(t, GitCommit)
}
