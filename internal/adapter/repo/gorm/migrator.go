package gormrepo

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

const migrationMetaSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// ApplyMigrations brings the schema up to date from the .sql files under
// dir. Files run in name order, each inside its own transaction, and a file
// whose version is already recorded is skipped.
func ApplyMigrations(ctx context.Context, db *gorm.DB, dir string) error {
	if err := db.WithContext(ctx).Exec(migrationMetaSQL).Error; err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := migrationFiles(dir)
	if err != nil {
		return err
	}
	for _, name := range files {
		version := strings.TrimSuffix(name, ".sql")
		done, err := migrationApplied(ctx, db, version)
		if err != nil {
			return err
		}
		if done {
			continue
		}
		if err := applyOne(ctx, db, dir, name, version); err != nil {
			return err
		}
		log.Printf("migrations: applied %s", version)
	}
	return nil
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migration dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func migrationApplied(ctx context.Context, db *gorm.DB, version string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("schema_migrations").
		Where("version = ?", version).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
	return count > 0, nil
}

func applyOne(ctx context.Context, db *gorm.DB, dir, name, version string) error {
	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(string(content)).Error; err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if err := tx.Exec(
			`INSERT INTO schema_migrations(version, applied_at) VALUES (?, ?)`,
			version, time.Now(),
		).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		return nil
	})
}
