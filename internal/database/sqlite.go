package database

import (
	"fmt"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/quillworks/quill/backend/internal/categories"
	"github.com/quillworks/quill/backend/internal/notes"
	"github.com/quillworks/quill/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenOptions controls connection behavior.
type OpenOptions struct {
	// Attempts bounds how many times the open is retried before giving up.
	Attempts int
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration
}

// OpenSQLite establishes a SQLite connection, retrying with fixed backoff
// until the database is reachable, then performs schema migrations.
func OpenSQLite(path string, opts OpenOptions, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err = open(path)
		if err == nil {
			break
		}
		if logger != nil {
			logger.Warn("database connection attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("attempts", attempts),
				zap.Error(err))
		}
		if attempt < attempts {
			time.Sleep(opts.Backoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("database unreachable after %d attempts: %w", attempts, err)
	}

	if err := db.AutoMigrate(
		&users.User{},
		&categories.Category{},
		&notes.Note{},
		&notes.NoteShare{},
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

func open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// glebarez/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
