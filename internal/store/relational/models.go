package relational

import (
	"github.com/llmbuddy/promptledger/pkg/models"
)

// Prompt is the prompts table row. Timestamps are stored as text for
// compatibility with the other capture tools that write this database;
// parsing is lenient on the way out.
type Prompt struct {
	ID             string         `gorm:"column:id;primaryKey"`
	Timestamp      string         `gorm:"column:timestamp;not null;index"`
	Source         string         `gorm:"column:source"`
	LLMName        string         `gorm:"column:llm_name"`
	ModelName      string         `gorm:"column:model_name"`
	PromptText     string         `gorm:"column:prompt_text;not null"`
	Description    string         `gorm:"column:description"`
	URL            string         `gorm:"column:url"`
	ConversationID string         `gorm:"column:conversation_id;index"`
	Metadata       models.JSONMap `gorm:"column:metadata;type:text"`

	Associations []FileAssociation `gorm:"foreignKey:PromptID;references:ID"`
}

// TableName overrides the GORM default.
func (Prompt) TableName() string {
	return "prompts"
}

// FileAssociation links one file path to one prompt. The composite primary
// key makes re-association a natural upsert.
type FileAssociation struct {
	PromptID    string `gorm:"column:prompt_id;primaryKey"`
	FilePath    string `gorm:"column:file_path;primaryKey"`
	TokenChange int    `gorm:"column:token_change"`
}

// TableName overrides the GORM default.
func (FileAssociation) TableName() string {
	return "file_associations"
}

// toCanonical converts a row plus its associations to the canonical record.
func (p *Prompt) toCanonical() *models.PromptRecord {
	llm := p.LLMName
	if llm == "" {
		llm = models.DefaultLLM
	}
	source := models.Source(p.Source)
	if source == "" {
		source = models.SourceUnknown
	}

	rec := &models.PromptRecord{
		ID:             p.ID,
		Timestamp:      models.ParseTimestampOrNow(p.Timestamp),
		PromptText:     p.PromptText,
		LLMUsed:        llm,
		Description:    p.Description,
		Source:         source,
		FileChanges:    make(map[string]int, len(p.Associations)),
		ModelName:      p.ModelName,
		URL:            p.URL,
		ConversationID: p.ConversationID,
	}
	for _, a := range p.Associations {
		rec.AssociatedFiles = append(rec.AssociatedFiles, a.FilePath)
		rec.FileChanges[a.FilePath] = a.TokenChange
	}
	return rec
}

// fromCanonical converts a canonical record to a row plus association rows.
func fromCanonical(rec *models.PromptRecord) (*Prompt, []FileAssociation) {
	row := &Prompt{
		ID:             rec.ID,
		Timestamp:      rec.Timestamp.Format(timestampFormat),
		Source:         string(rec.Source),
		LLMName:        rec.LLMUsed,
		ModelName:      rec.ModelName,
		PromptText:     rec.PromptText,
		Description:    rec.Description,
		URL:            rec.URL,
		ConversationID: rec.ConversationID,
	}
	assocs := make([]FileAssociation, 0, len(rec.AssociatedFiles))
	for _, path := range rec.AssociatedFiles {
		assocs = append(assocs, FileAssociation{
			PromptID:    rec.ID,
			FilePath:    path,
			TokenChange: rec.FileChanges[path],
		})
	}
	return row, assocs
}
