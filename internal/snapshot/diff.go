package snapshot

import (
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff compares the live file at path with the snapshot's content for the
// same path and returns a unified diff. When the live file does not exist
// the report says the file would be created instead of diffing against
// nothing. An empty string means no differences.
func Diff(path, snapshotContent string) (string, error) {
	live, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("%s: would be created (%d bytes)\n", path, len(snapshotContent)), nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(live)),
		B:        difflib.SplitLines(snapshotContent),
		FromFile: path,
		ToFile:   path + " (snapshot)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", path, err)
	}
	return text, nil
}
