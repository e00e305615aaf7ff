package jsonstore

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/llmbuddy/promptledger/pkg/models"
)

// captureEntry is one element of the side-channel capture file that desktop
// recorders append to. The shape overlaps the main wire record but the
// defaults differ: these entries come from the desktop channel, so a
// missing model or source means Claude Desktop, not Unknown.
type captureEntry struct {
	ID          string   `json:"id"`
	Timestamp   string   `json:"timestamp"`
	PromptText  string   `json:"prompt_text"`
	Description string   `json:"description"`
	Model       string   `json:"model"`
	Files       []string `json:"files"`
	Source      string   `json:"source"`
}

// LoadCapture reads the external capture file at path. A missing file is
// empty; malformed entries and entries without prompt text are skipped.
func LoadCapture(path string) ([]*models.PromptRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("capture file unparsable, treating as empty")
		return nil, nil
	}

	records := make([]*models.PromptRecord, 0, len(raw))
	for i, msg := range raw {
		var e captureEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			log.Warn().Err(err).Int("index", i).Str("path", path).Msg("skipping malformed capture entry")
			continue
		}
		if e.PromptText == "" {
			continue
		}

		model := e.Model
		if model == "" {
			model = "Claude Desktop"
		}
		rec := models.NewPromptRecord(e.PromptText, model, e.Description)
		if e.ID != "" {
			rec.ID = e.ID
		}
		rec.Timestamp = models.ParseTimestampOrNow(e.Timestamp)
		if len(e.Files) > 0 {
			rec.AssociatedFiles = append([]string(nil), e.Files...)
		}
		rec.Source = models.SourceClaudeDesktop
		if e.Source != "" {
			rec.Source = models.Source(e.Source)
		}
		records = append(records, rec)
	}
	return records, nil
}
