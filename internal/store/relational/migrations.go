package relational

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: prompts and file_associations tables
		{
			ID: "001_core_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&Prompt{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&FileAssociation{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("prompts", "file_associations")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("run gormigrate migrations: %w", err)
	}
	return nil
}
