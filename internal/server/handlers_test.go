// Package server exposes the capture HTTP surface for promptledger.
package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"

	"github.com/llmbuddy/promptledger/internal/ledger"
	"github.com/llmbuddy/promptledger/internal/store/jsonstore"
)

type HandlersSuite struct {
	suite.Suite
	svc    *Service
	ledger *ledger.Service
}

func (s *HandlersSuite) SetupTest() {
	dir := s.T().TempDir()
	primary := jsonstore.New(filepath.Join(dir, "prompt_database.json"))
	s.ledger = ledger.NewService(primary, nil, "")
	s.Require().NoError(s.ledger.Load())
	s.svc = New(s.ledger, "test")
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) request(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.svc.Router().ServeHTTP(rec, req)
	return rec
}

func (s *HandlersSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlersSuite) TestPing() {
	_, err := s.ledger.RecordPrompt("p", "Claude", "")
	s.Require().NoError(err)

	rec := s.request(http.MethodGet, "/ping", "")
	s.Equal(http.StatusOK, rec.Code)

	body := s.decode(rec)
	s.Equal("ok", body["status"])
	s.EqualValues(1, body["prompts_recorded"])
}

func (s *HandlersSuite) TestRecordPrompt() {
	rec := s.request(http.MethodPost, "/record_prompt",
		`{"promptText": "summarize the log format", "llmName": "Claude", "pageTitle": "claude.ai chat"}`)
	s.Equal(http.StatusOK, rec.Code)

	body := s.decode(rec)
	s.Equal(true, body["success"])
	id, _ := body["prompt_id"].(string)
	s.NotEmpty(id)

	stored := s.ledger.Get(id)
	s.Require().NotNil(stored)
	s.Equal("summarize the log format", stored.PromptText)
	// pageTitle backfills an empty description.
	s.Equal("claude.ai chat", stored.Description)
	// Recording through the HTTP channel makes the prompt active.
	s.Equal(id, s.ledger.ActiveID())
}

func (s *HandlersSuite) TestRecordPrompt_Validation() {
	rec := s.request(http.MethodPost, "/record_prompt", `{"llmName": "Claude"}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.request(http.MethodPost, "/record_prompt", `{not json`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlersSuite) TestListPrompts() {
	_, err := s.ledger.RecordPrompt("first", "Claude", "")
	s.Require().NoError(err)
	_, err = s.ledger.RecordPrompt("second", "ChatGPT", "")
	s.Require().NoError(err)

	rec := s.request(http.MethodGet, "/prompts", "")
	s.Equal(http.StatusOK, rec.Code)

	body := s.decode(rec)
	s.Equal(true, body["success"])
	prompts, _ := body["prompts"].([]any)
	s.Require().Len(prompts, 2)

	first, _ := prompts[0].(map[string]any)
	s.Equal("first", first["prompt_text"])
	s.Equal("Claude Desktop", first["source"])
}

func (s *HandlersSuite) TestSearchPrompts() {
	_, err := s.ledger.RecordPrompt("tune the garbage collector", "Claude", "")
	s.Require().NoError(err)
	_, err = s.ledger.RecordPrompt("unrelated", "Claude", "")
	s.Require().NoError(err)

	rec := s.request(http.MethodGet, "/prompts/search?q=garbage", "")
	s.Equal(http.StatusOK, rec.Code)
	body := s.decode(rec)
	prompts, _ := body["prompts"].([]any)
	s.Len(prompts, 1)

	rec = s.request(http.MethodGet, "/prompts/search", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlersSuite) TestAssociatePrompt() {
	p, err := s.ledger.RecordPrompt("p", "Claude", "")
	s.Require().NoError(err)

	payload := `{"prompt_id": "` + p.ID + `", "file_path": "src/main.go", "token_change": 42}`
	rec := s.request(http.MethodPost, "/associate_prompt", payload)
	s.Equal(http.StatusOK, rec.Code)

	// Idempotent: repeating the association succeeds without duplicating.
	rec = s.request(http.MethodPost, "/associate_prompt", payload)
	s.Equal(http.StatusOK, rec.Code)

	stored := s.ledger.Get(p.ID)
	s.Equal([]string{"src/main.go"}, stored.AssociatedFiles)
	s.Equal(42, stored.FileChanges["src/main.go"])
}

func (s *HandlersSuite) TestAssociatePrompt_Errors() {
	rec := s.request(http.MethodPost, "/associate_prompt", `{"prompt_id": "", "file_path": "x"}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.request(http.MethodPost, "/associate_prompt", `{"prompt_id": "missing", "file_path": "x"}`)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlersSuite) TestDeletePrompt() {
	p, err := s.ledger.RecordPrompt("p", "Claude", "")
	s.Require().NoError(err)

	rec := s.request(http.MethodDelete, "/prompts/"+p.ID, "")
	s.Equal(http.StatusOK, rec.Code)
	s.Nil(s.ledger.Get(p.ID))

	rec = s.request(http.MethodDelete, "/prompts/"+p.ID, "")
	s.Equal(http.StatusNotFound, rec.Code)
}
