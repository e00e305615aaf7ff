package main

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/llmbuddy/promptledger/internal/config"
	"github.com/llmbuddy/promptledger/internal/ledger"
	"github.com/llmbuddy/promptledger/internal/store/jsonstore"
	"github.com/llmbuddy/promptledger/internal/store/relational"
)

// openLedger builds a loaded ledger service over the configured backends.
// The relational backend is optional: when it cannot be opened the ledger
// runs on the JSON store alone.
func openLedger() (*ledger.Service, func(), error) {
	primary := jsonstore.New(config.RecordsPath())

	var rel *relational.Store
	rel, err := relational.NewStore(relational.Config{
		Path:     config.DBPath(),
		LogLevel: logger.Silent,
	})
	if err != nil {
		log.Warn().Err(err).Str("path", config.DBPath()).Msg("relational store unavailable, continuing without it")
		rel = nil
	}

	svc := ledger.NewService(primary, rel, config.CapturePath())
	if err := svc.Load(); err != nil {
		if rel != nil {
			rel.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if rel != nil {
			if err := rel.Close(); err != nil {
				log.Warn().Err(err).Msg("closing relational store failed")
			}
		}
	}
	return svc, cleanup, nil
}
