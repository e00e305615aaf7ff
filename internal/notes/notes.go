// Package notes keeps the decision journal: short timestamped notes about
// what changed and why, appended alongside backups and prompt activity.
package notes

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Note is one journal entry.
type Note struct {
	Timestamp string `json:"timestamp"`
	Project   string `json:"project"`
	Note      string `json:"note"`
}

// Journal reads and writes one notes file.
type Journal struct {
	path string
	mu   sync.Mutex
}

// NewJournal returns a journal backed by the file at path.
func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Load returns all notes. A missing or corrupt file is an empty journal.
func (j *Journal) Load() ([]Note, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.loadLocked()
}

func (j *Journal) loadLocked() ([]Note, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read notes: %w", err)
	}
	var notes []Note
	if err := json.Unmarshal(data, &notes); err != nil {
		log.Warn().Err(err).Str("path", j.path).Msg("notes file unparsable, treating as empty")
		return nil, nil
	}
	return notes, nil
}

// Append adds a note with the current timestamp.
func (j *Journal) Append(project, text string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	notes, err := j.loadLocked()
	if err != nil {
		return err
	}
	notes = append(notes, Note{
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Project:   project,
		Note:      text,
	})
	return j.saveLocked(notes)
}

// Delete removes the note at index. An out-of-range index is reported as
// nothing to do, not an error.
func (j *Journal) Delete(index int) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	notes, err := j.loadLocked()
	if err != nil {
		return false, err
	}
	if index < 0 || index >= len(notes) {
		return false, nil
	}
	notes = append(notes[:index], notes[index+1:]...)
	return true, j.saveLocked(notes)
}

func (j *Journal) saveLocked(notes []Note) error {
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	if err := os.WriteFile(j.path, data, 0600); err != nil {
		return fmt.Errorf("write notes: %w", err)
	}
	return nil
}
