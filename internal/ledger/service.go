package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llmbuddy/promptledger/internal/store/jsonstore"
	"github.com/llmbuddy/promptledger/internal/store/relational"
	"github.com/llmbuddy/promptledger/pkg/models"
)

// Retroactive association presets: rough token estimates recorded when the
// user links files to a prompt after the fact without a measured delta.
const (
	RetroAuto     = 100
	RetroMinor    = 25
	RetroModerate = 100
	RetroMajor    = 300
)

// RetroPresets maps preset names to their token estimates.
var RetroPresets = map[string]int{
	"auto":     RetroAuto,
	"minor":    RetroMinor,
	"moderate": RetroModerate,
	"major":    RetroMajor,
}

// Service owns the canonical collection and the active prompt slot. The
// JSON store is authoritative and every mutation writes through to it
// immediately; the relational store is kept current on a best-effort basis.
//
// All methods are safe for concurrent use, but background tasks are
// expected to hand their results to one owning goroutine rather than call
// in from many places at once.
type Service struct {
	mu sync.Mutex

	col     *Collection
	primary *jsonstore.Store
	rel     *relational.Store // may be nil
	capture string            // secondary capture file path, may be empty

	active *models.PromptRecord
}

// NewService creates a service over the given backends. rel may be nil when
// the relational backend is not configured; capturePath may be empty.
func NewService(primary *jsonstore.Store, rel *relational.Store, capturePath string) *Service {
	return &Service{
		col:     NewCollection(),
		primary: primary,
		rel:     rel,
		capture: capturePath,
	}
}

// Load rebuilds the canonical collection from every backend. The primary
// JSON store is read first, then the secondary capture file, then the
// relational store; the first record seen for an ID wins. The merged set is
// written back to the primary store so externally captured records become
// visible to every other reader of that file.
func (s *Service) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	primary, err := s.primary.LoadAll()
	if err != nil {
		return fmt.Errorf("load primary store: %w", err)
	}

	var captured []*models.PromptRecord
	if s.capture != "" {
		captured, err = jsonstore.LoadCapture(s.capture)
		if err != nil {
			log.Warn().Err(err).Str("path", s.capture).Msg("capture file unreadable, skipping")
		}
	}

	var relRecords []*models.PromptRecord
	if s.rel != nil {
		relRecords, err = s.rel.LoadAll()
		if err != nil {
			log.Warn().Err(err).Msg("relational store unreadable, skipping")
		}
	}

	before := len(primary)
	s.col = Merge(primary, captured, relRecords)

	// The active focus survives a reload: re-resolve it in the fresh
	// collection and drop it only when the record itself is gone.
	if s.active != nil {
		s.active = s.col.Get(s.active.ID)
	}

	if s.col.Len() != before {
		if err := s.primary.SaveAll(s.col.Records()); err != nil {
			return fmt.Errorf("persist merged records: %w", err)
		}
	}

	log.Info().
		Int("primary", len(primary)).
		Int("captured", len(captured)).
		Int("relational", len(relRecords)).
		Int("merged", s.col.Len()).
		Msg("ledger loaded")
	return nil
}

// RecordPrompt creates a canonical record, persists it to every backend,
// and makes it the active prompt.
func (s *Service) RecordPrompt(text, llm, description string) (*models.PromptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := models.NewPromptRecord(text, llm, description)
	rec.Source = rec.EffectiveSource()

	s.col.Add(rec)
	if err := s.primary.Append(rec); err != nil {
		return nil, fmt.Errorf("persist prompt: %w", err)
	}
	s.relAppend(rec)

	s.active = rec
	log.Info().Str("id", rec.ID).Str("llm", rec.LLMUsed).Msg("prompt recorded")
	return rec, nil
}

// Annotate fills in capture metadata on an existing record and persists
// the change.
func (s *Service) Annotate(id, modelName, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.col.Get(id)
	if rec == nil {
		return fmt.Errorf("prompt %s not found", id)
	}
	if modelName != "" {
		rec.ModelName = modelName
	}
	if url != "" {
		rec.URL = url
	}
	if err := s.primary.Upsert(rec); err != nil {
		return fmt.Errorf("persist prompt %s: %w", id, err)
	}
	s.relAppend(rec)
	return nil
}

// SetActive makes the prompt with the given ID the active one. Setting a
// new active prompt silently replaces the previous focus.
func (s *Service) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.col.Get(id)
	if rec == nil {
		return fmt.Errorf("prompt %s not found", id)
	}
	s.active = rec
	return nil
}

// Clear drops the active prompt. Idempotent.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}

// ActiveID returns the active prompt's ID, or "" when idle.
func (s *Service) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.ID
}

// RecordAssociation links path to the active prompt with the observed token
// delta. Returns false without side effects when no prompt is active. The
// file list stays membership-unique; the delta is overwritten on repeat
// observations. Every call writes through to the stores.
func (s *Service) RecordAssociation(path string, tokenDelta int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return false
	}
	s.active.AssociateFile(path, tokenDelta)
	s.persistAssociation(s.active, path, tokenDelta)
	return true
}

// Associate links path to the prompt with the given ID, independent of the
// active slot. Re-associating an already linked path is a no-op success.
func (s *Service) Associate(promptID, path string, tokenDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.col.Get(promptID)
	if rec == nil {
		return fmt.Errorf("prompt %s not found", promptID)
	}
	rec.AssociateFile(path, tokenDelta)
	s.persistAssociation(rec, path, tokenDelta)
	return nil
}

// RetroAssociate links files to a prompt after the fact, recording a note
// with an estimated token change. preset selects the estimate; an unknown
// preset falls back to the auto estimate.
func (s *Service) RetroAssociate(promptID string, files []string, preset, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.col.Get(promptID)
	if rec == nil {
		return fmt.Errorf("prompt %s not found", promptID)
	}

	estimate, ok := RetroPresets[preset]
	if !ok {
		estimate = RetroAuto
	}

	for _, f := range files {
		rec.AssociateFile(f, estimate)
	}
	rec.AddRetroactiveNote(time.Now().Format("2006-01-02T15:04:05"), files, estimate, note)

	if err := s.primary.Upsert(rec); err != nil {
		return fmt.Errorf("persist retro association: %w", err)
	}
	if s.rel != nil {
		if err := s.rel.UpdateAssociations(rec.ID, files, estimate); err != nil {
			log.Warn().Err(err).Str("id", rec.ID).Msg("relational retro association failed")
		}
	}
	return nil
}

// Delete removes a prompt from the collection and every backend. Deleting
// the active prompt clears the active slot.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && s.active.ID == id {
		s.active = nil
	}
	s.col.Remove(id)

	if err := s.primary.Delete(id); err != nil {
		return fmt.Errorf("delete from primary store: %w", err)
	}
	if s.rel != nil {
		if err := s.rel.Delete(id); err != nil {
			log.Warn().Err(err).Str("id", id).Msg("relational delete failed")
		}
	}
	return nil
}

// Get returns the record with the given ID, or nil.
func (s *Service) Get(id string) *models.PromptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.Get(id)
}

// Count returns the number of canonical records.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.Len()
}

// Records returns the canonical records in merge order.
func (s *Service) Records() []*models.PromptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.Records()
}

// RecordsByTimeDesc returns the canonical records newest first.
func (s *Service) RecordsByTimeDesc() []*models.PromptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.SortedByTimeDesc()
}

// ForFile returns every record associated with path.
func (s *Service) ForFile(path string) []*models.PromptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.ForFile(path)
}

// Search returns records matching query. The relational backend serves the
// query when configured; otherwise the in-memory collection is scanned.
func (s *Service) Search(query string, limit int) []*models.PromptRecord {
	s.mu.Lock()
	rel := s.rel
	s.mu.Unlock()

	if rel != nil {
		hits, err := rel.Search(query, limit)
		if err == nil {
			return hits
		}
		log.Warn().Err(err).Msg("relational search failed, scanning collection")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	hits := s.col.Search(query)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// relAppend mirrors a record into the relational store when configured.
func (s *Service) relAppend(rec *models.PromptRecord) {
	if s.rel == nil {
		return
	}
	if err := s.rel.Append(rec); err != nil {
		log.Warn().Err(err).Str("id", rec.ID).Msg("relational append failed")
	}
}

// persistAssociation writes one association through to both stores. Callers
// hold the lock.
func (s *Service) persistAssociation(rec *models.PromptRecord, path string, tokenDelta int) {
	if err := s.primary.Upsert(rec); err != nil {
		log.Error().Err(err).Str("id", rec.ID).Str("path", path).Msg("persist association failed")
	}
	if s.rel != nil {
		if err := s.rel.UpdateAssociations(rec.ID, []string{path}, tokenDelta); err != nil {
			log.Warn().Err(err).Str("id", rec.ID).Str("path", path).Msg("relational association failed")
		}
	}
}
