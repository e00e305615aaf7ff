package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedCounter returns a detector whose token counts come from a map, so
// threshold boundaries are exact.
func fixedCounter(counts map[string]int) func(string, []byte) int {
	return func(path string, _ []byte) int {
		return counts[path]
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestShouldMonitor(t *testing.T) {
	d := NewDetector(
		[]string{"/src/project"},
		[]string{"/etc/exact.conf"},
		[]string{"*.tmp", "*.bak", "*~"},
		50,
	)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"exact file match", "/etc/exact.conf", true},
		{"inside folder", "/src/project/main.go", true},
		{"nested inside folder", "/src/project/internal/db.go", true},
		{"ignored extension", "/src/project/scratch.tmp", false},
		{"ignored backup", "/src/project/old.bak", false},
		{"ignored tilde", "/src/project/notes.txt~", false},
		{"outside scope", "/var/log/syslog", false},
		{"exact file ignores globs", "/etc/exact.conf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.ShouldMonitor(tt.path))
		})
	}
}

func TestEvaluate_FirstObservation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.go", "package a")

	d := NewDetector([]string{dir}, nil, nil, 50)
	d.countTokens = fixedCounter(map[string]int{path: 30})

	v, err := d.Evaluate(path)
	require.NoError(t, err)

	// First sight is significant regardless of the threshold, with the
	// full count as the delta.
	assert.True(t, v.Significant)
	assert.True(t, v.FirstSeen)
	assert.Equal(t, 30, v.TokenDelta)
}

func TestEvaluate_CountsObservedContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.go", "alpha beta")

	d := NewDetector([]string{dir}, nil, nil, 50)
	var counted []byte
	d.countTokens = func(_ string, data []byte) int {
		counted = append([]byte(nil), data...)
		return len(data)
	}

	v, err := d.Evaluate(path)
	require.NoError(t, err)

	// The counter sees the same bytes that were hashed, so the hash and
	// count always describe one observation of the file.
	assert.Equal(t, []byte("alpha beta"), counted)
	assert.Equal(t, len("alpha beta"), v.Tokens)
}

func TestEvaluate_FirstObservationEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.go", "")

	d := NewDetector([]string{dir}, nil, nil, 50)
	d.countTokens = fixedCounter(map[string]int{path: 0})

	v, err := d.Evaluate(path)
	require.NoError(t, err)
	assert.False(t, v.Significant)
	assert.True(t, v.FirstSeen)
}

func TestEvaluate_HashUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.go", "package a")

	d := NewDetector([]string{dir}, nil, nil, 50)
	d.countTokens = fixedCounter(map[string]int{path: 100})

	_, err := d.Evaluate(path)
	require.NoError(t, err)

	// Same content again: not significant, even though a naive token
	// comparison would see no delta anyway.
	v, err := d.Evaluate(path)
	require.NoError(t, err)
	assert.False(t, v.Significant)
	assert.False(t, v.FirstSeen)
}

func TestEvaluate_ThresholdBoundary(t *testing.T) {
	dir := t.TempDir()
	d := NewDetector([]string{dir}, nil, nil, 50)

	tests := []struct {
		name        string
		newTokens   int
		significant bool
	}{
		{"one below threshold", 149, false},
		{"exactly at threshold", 150, true},
		{"shrink past threshold", 50, true},
		{"small change", 110, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".go", "baseline content")
			counts := map[string]int{path: 100}
			d.countTokens = fixedCounter(counts)

			_, err := d.Evaluate(path)
			require.NoError(t, err)

			writeFile(t, dir, tt.name+".go", "changed content")
			counts[path] = tt.newTokens

			v, err := d.Evaluate(path)
			require.NoError(t, err)
			assert.Equal(t, tt.significant, v.Significant)
		})
	}
}

func TestEvaluate_BaselineAdvancesOnSuppressedChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.go", "v1")

	d := NewDetector([]string{dir}, nil, nil, 50)
	counts := map[string]int{path: 100}
	d.countTokens = fixedCounter(counts)

	_, err := d.Evaluate(path)
	require.NoError(t, err)

	// A sub-threshold change advances the baseline anyway.
	writeFile(t, dir, "a.go", "v2")
	counts[path] = 120
	v, err := d.Evaluate(path)
	require.NoError(t, err)
	assert.False(t, v.Significant)
	assert.Equal(t, 20, v.TokenDelta)

	// The next change is measured against 120, not 100.
	writeFile(t, dir, "a.go", "v3")
	counts[path] = 160
	v, err = d.Evaluate(path)
	require.NoError(t, err)
	assert.False(t, v.Significant)
	assert.Equal(t, 40, v.TokenDelta)
}

func TestEvaluate_SignedDelta(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.go", "v1")

	d := NewDetector([]string{dir}, nil, nil, 50)
	counts := map[string]int{path: 200}
	d.countTokens = fixedCounter(counts)

	_, err := d.Evaluate(path)
	require.NoError(t, err)

	writeFile(t, dir, "a.go", "v2")
	counts[path] = 120
	v, err := d.Evaluate(path)
	require.NoError(t, err)
	assert.True(t, v.Significant)
	assert.Equal(t, -80, v.TokenDelta)
}

func TestEvaluate_MissingFile(t *testing.T) {
	d := NewDetector(nil, nil, nil, 50)
	_, err := d.Evaluate(filepath.Join(t.TempDir(), "gone.go"))
	assert.Error(t, err)
}

func TestCooldownGate(t *testing.T) {
	gate := NewCooldownGate(5 * time.Minute)
	now := time.Now()

	// No prior snapshot: allowed.
	assert.True(t, gate.Allow(now))
	gate.Mark(now)

	// 10 seconds after a snapshot with a 5 minute window: suppressed.
	assert.False(t, gate.Allow(now.Add(10*time.Second)))
	assert.Greater(t, gate.Remaining(now.Add(10*time.Second)), time.Duration(0))

	// 6 minutes after: allowed again.
	assert.True(t, gate.Allow(now.Add(6*time.Minute)))
	assert.Zero(t, gate.Remaining(now.Add(6*time.Minute)))
}
