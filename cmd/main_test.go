package main

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_RemovesCacheDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	require.NoError(t, run(context.Background()))

	left, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestRun_ReportsFailureInsteadOfExiting(t *testing.T) {
	t.Setenv("TMPDIR", "/nonexistent/memocache-demo")

	assert.Error(t, run(context.Background()))
}
