// Package jsonstore persists prompt records as a JSON array on disk.
//
// The file is the lowest-common-denominator wire format between
// independently run capture processes: each writer loads the whole array,
// modifies it, and writes it back. The last writer wins; concurrent
// external writers can lose updates and that is an accepted property of
// the format, not something this package tries to fix.
package jsonstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/llmbuddy/promptledger/pkg/models"
)

// wireRecord is the on-disk record shape. Write keys are model and files;
// llm_used and associated_files are accepted as read aliases because older
// capture tools emitted them.
type wireRecord struct {
	ID               string                            `json:"id"`
	Timestamp        string                            `json:"timestamp"`
	PromptText       string                            `json:"prompt_text"`
	Description      string                            `json:"description"`
	Model            string                            `json:"model,omitempty"`
	Files            []string                          `json:"files,omitempty"`
	Source           string                            `json:"source,omitempty"`
	FileChanges      map[string]int                    `json:"file_changes,omitempty"`
	RetroactiveNotes map[string]models.RetroactiveNote `json:"retroactive_notes,omitempty"`
	ModelName        string                            `json:"model_name,omitempty"`
	URL              string                            `json:"url,omitempty"`
	ConversationID   string                            `json:"conversation_id,omitempty"`

	// Read-only aliases, never written.
	LLMUsed         string   `json:"llm_used,omitempty"`
	AssociatedFiles []string `json:"associated_files,omitempty"`
}

func toWire(p *models.PromptRecord) wireRecord {
	return wireRecord{
		ID:               p.ID,
		Timestamp:        p.Timestamp.Format(time.RFC3339Nano),
		PromptText:       p.PromptText,
		Description:      p.Description,
		Model:            p.LLMUsed,
		Files:            p.AssociatedFiles,
		Source:           string(p.Source),
		FileChanges:      p.FileChanges,
		RetroactiveNotes: p.RetroactiveNotes,
		ModelName:        p.ModelName,
		URL:              p.URL,
		ConversationID:   p.ConversationID,
	}
}

func fromWire(w wireRecord) (*models.PromptRecord, error) {
	if w.ID == "" {
		return nil, fmt.Errorf("record has no id")
	}

	llm := w.Model
	if llm == "" {
		llm = w.LLMUsed
	}
	if llm == "" {
		llm = models.DefaultLLM
	}

	files := w.Files
	if files == nil {
		files = w.AssociatedFiles
	}

	source := models.Source(w.Source)
	if source == "" {
		source = models.SourceUnknown
	}

	changes := w.FileChanges
	if changes == nil {
		changes = make(map[string]int)
	}

	return &models.PromptRecord{
		ID:               w.ID,
		Timestamp:        models.ParseTimestampOrNow(w.Timestamp),
		PromptText:       w.PromptText,
		LLMUsed:          llm,
		Description:      w.Description,
		Source:           source,
		AssociatedFiles:  files,
		FileChanges:      changes,
		RetroactiveNotes: w.RetroactiveNotes,
		ModelName:        w.ModelName,
		URL:              w.URL,
		ConversationID:   w.ConversationID,
	}, nil
}

// Store reads and writes one JSON record file.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a store for the record file at path. The file may not exist
// yet; it is created on first write.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// LoadAll reads every record in the file. A missing file is an empty store.
// Records that fail to decode are skipped with a warning; one corrupt entry
// must not take down the rest of the ledger.
func (s *Store) LoadAll() ([]*models.PromptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() ([]*models.PromptRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	// Decode to raw messages first so one malformed element cannot poison
	// the whole array.
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("record file unparsable, treating as empty")
		return nil, nil
	}

	records := make([]*models.PromptRecord, 0, len(raw))
	for i, msg := range raw {
		var w wireRecord
		if err := json.Unmarshal(msg, &w); err != nil {
			log.Warn().Err(err).Int("index", i).Str("path", s.path).Msg("skipping malformed record")
			continue
		}
		rec, err := fromWire(w)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Str("path", s.path).Msg("skipping invalid record")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// SaveAll replaces the file contents with the given records. The write goes
// through a temp file in the same directory followed by a rename, so
// readers never observe a half-written array.
func (s *Store) SaveAll(records []*models.PromptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(records)
}

func (s *Store) saveLocked(records []*models.PromptRecord) error {
	wire := make([]wireRecord, 0, len(records))
	for _, r := range records {
		wire = append(wire, toWire(r))
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".records-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Append loads the file, adds the record, and writes the file back.
func (s *Store) Append(rec *models.PromptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	records = append(records, rec)
	return s.saveLocked(records)
}

// Upsert replaces the record with the same ID, or appends when absent.
func (s *Store) Upsert(rec *models.PromptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range records {
		if existing.ID == rec.ID {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	return s.saveLocked(records)
}

// Update applies mutate to the record with the given ID and persists the
// result. Returns os.ErrNotExist when no record matches.
func (s *Store) Update(id string, mutate func(*models.PromptRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.ID == id {
			mutate(rec)
			return s.saveLocked(records)
		}
	}
	return fmt.Errorf("record %s: %w", id, os.ErrNotExist)
}

// Delete removes the record with the given ID. Deleting an absent ID is a
// no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, rec := range records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return s.saveLocked(kept)
}
