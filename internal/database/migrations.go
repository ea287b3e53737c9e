package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hyperscribe/backend/internal/templates"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationSeedSystemTemplates = "2026-08-01_seed_system_templates"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationSeedSystemTemplates, apply: seedSystemTemplates},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// seedSystemTemplates inserts the ownerless default templates skipped
// when a same-named row already exists.
func seedSystemTemplates(db *gorm.DB) error {
	now := time.Now().UTC()
	for _, def := range templates.DefaultTemplates() {
		var existing int64
		if err := db.Model(&templates.Template{}).
			Where("name = ? AND is_default = ? AND user_id IS NULL", def.Name, true).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			continue
		}
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		row := templates.Template{
			ID:          id.String(),
			Name:        def.Name,
			Description: def.Description,
			Content:     def.Content,
			Category:    def.Category,
			IsDefault:   true,
			UserID:      nil,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := db.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
