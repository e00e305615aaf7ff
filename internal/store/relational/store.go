// Package relational provides the SQLite-backed prompt store.
package relational

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/llmbuddy/promptledger/pkg/models"
)

const timestampFormat = time.RFC3339Nano

// Store represents the GORM database connection.
type Store struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

// Config holds database configuration.
type Config struct {
	Path     string          // Path to SQLite database file
	MaxConns int             // Maximum number of open connections (default: 4)
	LogLevel logger.LogLevel // GORM log level (logger.Silent for production)
}

// NewStore opens the database, runs migrations, and enables WAL mode for
// concurrent readers.
func NewStore(cfg Config) (*Store, error) {
	dsn := cfg.Path + "?_foreign_keys=ON"

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db, err := gorm.Open(sqlite.Dialector{
		Conn: sqlDB,
	}, &gorm.Config{
		Logger:      logger.Default.LogMode(cfg.LogLevel),
		PrepareStmt: true,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// WAL and busy timeout via raw SQL, outside any GORM transaction.
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("set synchronous mode: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &Store{db: db, sqlDB: sqlDB}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping() error {
	return s.sqlDB.Ping()
}

// Append inserts a record and its file associations in one transaction.
// Inserting an existing ID is a no-op, so repeat imports stay idempotent.
func (s *Store) Append(rec *models.PromptRecord) error {
	row, assocs := fromCanonical(rec)
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return fmt.Errorf("insert prompt %s: %w", rec.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if len(assocs) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "prompt_id"}, {Name: "file_path"}},
			DoUpdates: clause.AssignmentColumns([]string{"token_change"}),
		}).Create(&assocs).Error; err != nil {
			return fmt.Errorf("insert associations for %s: %w", rec.ID, err)
		}
		return nil
	})
}

// UpdateAssociations upserts file associations for an existing prompt.
// Paths already associated get their token_change overwritten.
func (s *Store) UpdateAssociations(promptID string, paths []string, tokenChange int) error {
	if len(paths) == 0 {
		return nil
	}
	assocs := make([]FileAssociation, 0, len(paths))
	for _, p := range paths {
		assocs = append(assocs, FileAssociation{
			PromptID:    promptID,
			FilePath:    p,
			TokenChange: tokenChange,
		})
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prompt_id"}, {Name: "file_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_change"}),
	}).Create(&assocs).Error
	if err != nil {
		return fmt.Errorf("update associations for %s: %w", promptID, err)
	}
	return nil
}

// LoadAll returns every prompt with its associations, newest first.
func (s *Store) LoadAll() ([]*models.PromptRecord, error) {
	var rows []Prompt
	if err := s.db.Preload("Associations").Order("timestamp DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	records := make([]*models.PromptRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toCanonical())
	}
	return records, nil
}

// Get returns one prompt by ID, or gorm.ErrRecordNotFound.
func (s *Store) Get(id string) (*models.PromptRecord, error) {
	var row Prompt
	if err := s.db.Preload("Associations").First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return row.toCanonical(), nil
}

// Search returns prompts whose text or description contains the query,
// newest first.
func (s *Store) Search(query string, limit int) ([]*models.PromptRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + query + "%"
	var rows []Prompt
	err := s.db.Preload("Associations").
		Where("prompt_text LIKE ? OR description LIKE ?", pattern, pattern).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search prompts: %w", err)
	}
	records := make([]*models.PromptRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toCanonical())
	}
	return records, nil
}

// Count returns the number of stored prompts.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&Prompt{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count prompts: %w", err)
	}
	return n, nil
}

// Delete removes a prompt and its associations. Deleting an absent ID is a
// no-op.
func (s *Store) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&FileAssociation{}, "prompt_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete associations for %s: %w", id, err)
		}
		if err := tx.Delete(&Prompt{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete prompt %s: %w", id, err)
		}
		return nil
	})
}
