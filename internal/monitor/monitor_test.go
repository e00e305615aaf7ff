package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_EmitsDebouncedBatch(t *testing.T) {
	dir := t.TempDir()
	d := NewDetector([]string{dir}, nil, []string{"*.tmp"}, 50)

	m, err := New(d, []string{dir}, nil, 100*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Stop()

	target := filepath.Join(dir, "watched.go")
	ignored := filepath.Join(dir, "scratch.tmp")
	require.NoError(t, os.WriteFile(target, []byte("package main"), 0600))
	require.NoError(t, os.WriteFile(ignored, []byte("junk"), 0600))

	select {
	case batch := <-m.C:
		assert.Contains(t, batch.Paths, target)
		assert.NotContains(t, batch.Paths, ignored)
		assert.False(t, batch.At.IsZero())
	case <-time.After(3 * time.Second):
		t.Fatal("no batch received")
	}
}

func TestMonitor_StopIsSynchronous(t *testing.T) {
	dir := t.TempDir()
	d := NewDetector([]string{dir}, nil, nil, 50)

	m, err := New(d, []string{dir}, nil, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, m.Start())

	require.NoError(t, m.Stop())

	// After Stop returns the channel is closed and drained.
	for range m.C {
	}

	// Stopping again is a no-op.
	assert.NoError(t, m.Stop())
}
