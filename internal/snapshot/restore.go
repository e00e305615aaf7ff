package snapshot

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// RestoreResult is the outcome for one restored path.
type RestoreResult struct {
	Path string
	Err  error
}

// Succeeded reports whether the path was written.
func (r RestoreResult) Succeeded() bool {
	return r.Err == nil
}

// Restore writes the selected paths from a parsed snapshot back to disk,
// creating parent directories as needed. Every path is attempted
// independently; one failure never stops the rest. The result slice has one
// entry per requested path, in request order. Paths absent from the
// snapshot report an error rather than writing an empty file.
func Restore(files map[string]string, paths []string) []RestoreResult {
	results := make([]RestoreResult, 0, len(paths))
	for _, path := range paths {
		results = append(results, RestoreResult{Path: path, Err: restoreOne(files, path)})
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Warn().Err(r.Err).Str("path", r.Path).Msg("restore failed")
		}
	}
	log.Info().Int("requested", len(paths)).Int("failed", failed).Msg("restore finished")
	return results
}

func restoreOne(files map[string]string, path string) error {
	content, ok := files[path]
	if !ok {
		return os.ErrNotExist
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0600)
}
