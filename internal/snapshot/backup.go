package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llmbuddy/promptledger/internal/tokens"
)

const backupFooter = "End of Auto-Backup"

// BackupWriter writes auto-snapshot documents into one directory and prunes
// the oldest when the count exceeds the configured maximum.
type BackupWriter struct {
	dir        string
	maxBackups int
}

// NewBackupWriter returns a writer for dir, keeping at most maxBackups
// files.
func NewBackupWriter(dir string, maxBackups int) *BackupWriter {
	if maxBackups <= 0 {
		maxBackups = 10
	}
	return &BackupWriter{dir: dir, maxBackups: maxBackups}
}

// BackupInfo describes one written backup.
type BackupInfo struct {
	Path        string
	Files       int
	TokenChange int
	Tokens      int
}

// Write snapshots the given paths. changes maps each changed path to its
// token delta; promptContext, when non-empty, is appended to the header so
// the backup records what prompt drove the change. Paths that cannot be
// read are skipped with a warning.
func (w *BackupWriter) Write(paths []string, changes map[string]int, promptContext string) (*BackupInfo, error) {
	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	var files []File
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("skipping unreadable file in backup")
			continue
		}
		files = append(files, File{Path: p, Content: string(data)})
	}

	totalChange := 0
	for _, delta := range changes {
		if delta < 0 {
			totalChange -= delta
		} else {
			totalChange += delta
		}
	}

	now := time.Now()
	header := fmt.Sprintf("Auto-Backup generated on %s\nChanged files: %d, Total token changes: %d",
		now.Format("2006-01-02 15:04:05"), len(changes), totalChange)
	if promptContext != "" {
		header += "\n" + promptContext
	}

	doc := Encode(files, header, backupFooter)
	total := tokens.Count(doc)

	name := fmt.Sprintf("auto_backup_%s_%dfiles_%dtokens.md",
		now.Format("20060102_150405"), len(files), totalChange)
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}

	w.prune()
	log.Info().Str("path", path).Int("files", len(files)).Int("tokens", total).Msg("auto backup written")
	return &BackupInfo{Path: path, Files: len(files), TokenChange: totalChange, Tokens: total}, nil
}

// prune deletes the oldest auto backups beyond the retention limit. The
// timestamp embedded in the name sorts lexicographically, so name order is
// age order.
func (w *BackupWriter) prune() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "auto_backup_") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= w.maxBackups {
		return
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-w.maxBackups] {
		if err := os.Remove(filepath.Join(w.dir, name)); err != nil {
			log.Warn().Err(err).Str("name", name).Msg("prune failed")
		}
	}
}
