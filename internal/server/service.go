// Package server exposes the capture HTTP surface: the endpoints external
// recorder processes use to push prompts and associations in.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/llmbuddy/promptledger/internal/ledger"
	"github.com/llmbuddy/promptledger/internal/server/sse"
)

// Service is the HTTP capture server.
type Service struct {
	ledger      *ledger.Service
	broadcaster *sse.Broadcaster
	router      chi.Router
	httpServer  *http.Server
	startTime   time.Time
	version     string
}

// New creates the service over a loaded ledger.
func New(ledgerSvc *ledger.Service, version string) *Service {
	svc := &Service{
		ledger:      ledgerSvc,
		broadcaster: sse.NewBroadcaster(),
		router:      chi.NewRouter(),
		startTime:   time.Now(),
		version:     version,
	}
	svc.setupRoutes()
	return svc
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.Recoverer)

	s.router.Get("/ping", s.handlePing)
	s.router.Post("/record_prompt", s.handleRecordPrompt)
	s.router.Get("/prompts", s.handleListPrompts)
	s.router.Get("/prompts/search", s.handleSearchPrompts)
	s.router.Post("/associate_prompt", s.handleAssociatePrompt)
	s.router.Delete("/prompts/{id}", s.handleDeletePrompt)
	s.router.Get("/events", s.handleEvents)
}

// Router returns the HTTP handler, for tests and embedding.
func (s *Service) Router() http.Handler {
	return s.router
}

// Broadcaster returns the SSE broadcaster so other components can push
// events to connected clients.
func (s *Service) Broadcaster() *sse.Broadcaster {
	return s.broadcaster
}

// ListenAndServe runs the server on the given port until ctx is cancelled,
// then shuts down gracefully.
func (s *Service) ListenAndServe(ctx context.Context, port int) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Str("version", s.version).Msg("capture server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
