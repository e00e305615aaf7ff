// Package models contains domain models for promptledger.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultLLM is the label used when a capture channel did not report a model.
const DefaultLLM = "Unknown"

// RetroactiveNote records an after-the-fact manual association, distinct
// from associations made while the prompt was active.
type RetroactiveNote struct {
	Files       []string `json:"files"`
	TokenChange int      `json:"token_change"`
	Notes       string   `json:"notes"`
}

// PromptRecord is the canonical representation of a prompt sent to an LLM,
// merged from every capture channel. IDs are preserved verbatim across
// imports so repeat imports stay idempotent.
type PromptRecord struct {
	ID               string                     `json:"id"`
	Timestamp        time.Time                  `json:"timestamp"`
	PromptText       string                     `json:"prompt_text"`
	LLMUsed          string                     `json:"llm_used"`
	Description      string                     `json:"description"`
	Source           Source                     `json:"source"`
	AssociatedFiles  []string                   `json:"associated_files"`
	FileChanges      map[string]int             `json:"file_changes"`
	RetroactiveNotes map[string]RetroactiveNote `json:"retroactive_notes,omitempty"`

	// Optional fields carried by the relational backend only.
	ModelName      string `json:"model_name,omitempty"`
	URL            string `json:"url,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// NewPromptRecord creates a record with a fresh ID and the current time.
func NewPromptRecord(promptText, llmUsed, description string) *PromptRecord {
	if llmUsed == "" {
		llmUsed = DefaultLLM
	}
	return &PromptRecord{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		PromptText:  promptText,
		LLMUsed:     llmUsed,
		Description: description,
		Source:      SourceUnknown,
		FileChanges: make(map[string]int),
	}
}

// HasFile reports whether path is already associated with this prompt.
func (p *PromptRecord) HasFile(path string) bool {
	for _, f := range p.AssociatedFiles {
		if f == path {
			return true
		}
	}
	return false
}

// AssociateFile links a file to this prompt. The file list stays
// membership-unique; the token delta is overwritten on every call, so the
// last observed delta wins. Returns true when the path was newly added.
func (p *PromptRecord) AssociateFile(path string, tokenChange int) bool {
	if p.FileChanges == nil {
		p.FileChanges = make(map[string]int)
	}
	added := false
	if !p.HasFile(path) {
		p.AssociatedFiles = append(p.AssociatedFiles, path)
		added = true
	}
	p.FileChanges[path] = tokenChange
	return added
}

// AddRetroactiveNote records a manual association made after the fact,
// keyed by the note timestamp.
func (p *PromptRecord) AddRetroactiveNote(timestamp string, files []string, tokenChange int, notes string) {
	if p.RetroactiveNotes == nil {
		p.RetroactiveNotes = make(map[string]RetroactiveNote)
	}
	p.RetroactiveNotes[timestamp] = RetroactiveNote{
		Files:       append([]string(nil), files...),
		TokenChange: tokenChange,
		Notes:       notes,
	}
}

// EffectiveSource returns the explicit source when the capture channel set
// one, otherwise the source inferred from the record's textual signals.
func (p *PromptRecord) EffectiveSource() Source {
	if p.Source != "" && p.Source != SourceUnknown {
		return p.Source
	}
	return InferSource(p.LLMUsed, p.Description)
}
