package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"github.com/hyperscribe/backend/internal/chat"
	"github.com/hyperscribe/backend/internal/notes"
	"github.com/hyperscribe/backend/internal/sharing"
	"github.com/hyperscribe/backend/internal/tasks"
	"github.com/hyperscribe/backend/internal/templates"
	"github.com/hyperscribe/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection, performs schema migrations,
// and seeds the system templates.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&users.User{},
		&templates.Template{},
		&notes.Note{},
		&notes.Attachment{},
		&tasks.Task{},
		&sharing.NoteShare{},
		&chat.Chat{},
		&chat.Message{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
