package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/llmbuddy/promptledger/pkg/models"
)

// promptJSON is the response shape for one prompt. Timestamps go out in
// RFC 3339 so every consumer parses them the same way.
type promptJSON struct {
	ID              string         `json:"id"`
	Timestamp       string         `json:"timestamp"`
	PromptText      string         `json:"prompt_text"`
	LLMUsed         string         `json:"llm_used"`
	Description     string         `json:"description"`
	Source          string         `json:"source"`
	AssociatedFiles []string       `json:"associated_files"`
	FileChanges     map[string]int `json:"file_changes"`
}

func toPromptJSON(rec *models.PromptRecord) promptJSON {
	return promptJSON{
		ID:              rec.ID,
		Timestamp:       rec.Timestamp.Format(time.RFC3339Nano),
		PromptText:      rec.PromptText,
		LLMUsed:         rec.LLMUsed,
		Description:     rec.Description,
		Source:          string(rec.EffectiveSource()),
		AssociatedFiles: rec.AssociatedFiles,
		FileChanges:     rec.FileChanges,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// handlePing reports liveness and the current record count.
func (s *Service) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"prompts_recorded": s.ledger.Count(),
	})
}

type recordPromptRequest struct {
	PromptText  string `json:"promptText"`
	LLMName     string `json:"llmName"`
	ModelName   string `json:"modelName"`
	PageTitle   string `json:"pageTitle"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// handleRecordPrompt accepts a prompt from an external capture channel.
func (s *Service) handleRecordPrompt(w http.ResponseWriter, r *http.Request) {
	var req recordPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PromptText == "" {
		writeError(w, http.StatusBadRequest, "promptText is required")
		return
	}

	description := req.Description
	if description == "" {
		description = req.PageTitle
	}

	rec, err := s.ledger.RecordPrompt(req.PromptText, req.LLMName, description)
	if err != nil {
		log.Error().Err(err).Msg("record prompt failed")
		writeError(w, http.StatusInternalServerError, "could not persist prompt")
		return
	}
	if req.ModelName != "" || req.URL != "" {
		if err := s.ledger.Annotate(rec.ID, req.ModelName, req.URL); err != nil {
			log.Warn().Err(err).Str("id", rec.ID).Msg("annotate failed")
		}
	}

	s.broadcaster.Broadcast("prompt_recorded", toPromptJSON(rec))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "prompt_id": rec.ID})
}

// handleListPrompts returns the full canonical list.
func (s *Service) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	records := s.ledger.Records()
	out := make([]promptJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, toPromptJSON(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "prompts": out})
}

// handleSearchPrompts returns prompts matching ?q=, newest first.
func (s *Service) handleSearchPrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	hits := s.ledger.Search(q, limit)
	out := make([]promptJSON, 0, len(hits))
	for _, rec := range hits {
		out = append(out, toPromptJSON(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "prompts": out})
}

type associateRequest struct {
	PromptID    string `json:"prompt_id"`
	FilePath    string `json:"file_path"`
	TokenChange int    `json:"token_change"`
}

// handleAssociatePrompt links a file to a prompt. Repeating an existing
// association succeeds without duplicating.
func (s *Service) handleAssociatePrompt(w http.ResponseWriter, r *http.Request) {
	var req associateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PromptID == "" || req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "prompt_id and file_path are required")
		return
	}

	if err := s.ledger.Associate(req.PromptID, req.FilePath, req.TokenChange); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	s.broadcaster.Broadcast("file_associated", map[string]any{
		"prompt_id": req.PromptID,
		"file_path": req.FilePath,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleDeletePrompt removes a prompt from the ledger.
func (s *Service) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.ledger.Get(id) == nil {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}
	if err := s.ledger.Delete(id); err != nil {
		log.Error().Err(err).Str("id", id).Msg("delete prompt failed")
		writeError(w, http.StatusInternalServerError, "could not delete prompt")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleEvents streams ledger events over SSE until the client hangs up.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := s.broadcaster.AddClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer s.broadcaster.RemoveClient(client)

	client.Flusher.Flush()

	select {
	case <-r.Context().Done():
	case <-client.Done:
	}
}
