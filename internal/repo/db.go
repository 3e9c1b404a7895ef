// Package repo implements the SQLite-backed bookkeeping layer, used to
// deduplicate Telegram webhook deliveries. The repair requests themselves
// live in the CSV store (internal/store); this database only holds
// operational state that is safe to lose.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-repair-bot/internal/domain"
)

// OpenSQLite opens (or creates) the bookkeeping database, applies PRAGMAs and
// installs OTEL query tracing.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if the parent directory does not exist (instead of a cryptic
	// sqlite "out of memory (14)").
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(5)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates the bookkeeping schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.ProcessedUpdate{})
}
