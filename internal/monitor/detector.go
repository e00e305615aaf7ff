// Package monitor watches configured paths for content changes and judges
// which changes are significant enough to act on.
package monitor

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/llmbuddy/promptledger/internal/tokens"
)

// baseline is the last observed state of one file, held only for the life
// of the monitoring session.
type baseline struct {
	hash   string
	tokens int
}

// Verdict is the outcome of evaluating one changed file.
type Verdict struct {
	Path        string
	Significant bool
	TokenDelta  int
	Tokens      int
	FirstSeen   bool
}

// Detector applies the change-significance rules: membership, hashing,
// token deltas against a per-path baseline.
type Detector struct {
	folders   []string
	files     []string
	ignore    []string
	threshold int

	countTokens func(path string, data []byte) int
	baselines   map[string]baseline
}

// NewDetector builds a detector from the monitor settings.
func NewDetector(folders, files, ignorePatterns []string, threshold int) *Detector {
	return &Detector{
		folders:     folders,
		files:       files,
		ignore:      ignorePatterns,
		threshold:   threshold,
		countTokens: countFromBytes,
		baselines:   make(map[string]baseline),
	}
}

// countFromBytes counts tokens from content already read for hashing, so
// the hash and the count always describe the same observation.
func countFromBytes(_ string, data []byte) int {
	return tokens.Count(string(data))
}

// SetTokenCounter replaces the token counting function. Tests use it to
// pin exact counts.
func (d *Detector) SetTokenCounter(fn func(path string, data []byte) int) {
	d.countTokens = fn
}

// ShouldMonitor reports whether path is in scope: either exactly one of the
// configured files, or under a configured folder and not matching an ignore
// glob. Ignore globs are checked against the base filename only.
func (d *Detector) ShouldMonitor(path string) bool {
	for _, f := range d.files {
		if path == f {
			return true
		}
	}
	for _, folder := range d.folders {
		if !strings.HasPrefix(path, folder) {
			continue
		}
		base := filepath.Base(path)
		for _, pattern := range d.ignore {
			if matched, _ := filepath.Match(pattern, base); matched {
				return false
			}
		}
		return true
	}
	return false
}

// Evaluate judges one observed modification. The first observation of a
// path is always significant when the file has content, with the full
// token count as its delta. After that a change is significant when the
// content hash moved and the absolute token delta meets the threshold.
// The baseline advances on every call with a hash change, whatever the
// verdict, so a suppressed change cannot re-trigger later.
func (d *Detector) Evaluate(path string) (Verdict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Verdict{Path: path}, err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	count := d.countTokens(path, data)

	prev, seen := d.baselines[path]
	if !seen {
		d.baselines[path] = baseline{hash: hash, tokens: count}
		return Verdict{
			Path:        path,
			Significant: len(data) > 0,
			TokenDelta:  count,
			Tokens:      count,
			FirstSeen:   true,
		}, nil
	}

	if prev.hash == hash {
		return Verdict{Path: path, Tokens: count}, nil
	}

	delta := count - prev.tokens
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	d.baselines[path] = baseline{hash: hash, tokens: count}
	return Verdict{
		Path:        path,
		Significant: abs >= d.threshold,
		TokenDelta:  delta,
		Tokens:      count,
	}, nil
}

// Reset forgets all baselines.
func (d *Detector) Reset() {
	d.baselines = make(map[string]baseline)
}
