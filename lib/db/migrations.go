package db

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/mediadex/mediadex/models"
)

var (
	// tablesToDrop are legacy tables from earlier schema revisions.
	tablesToDrop = []string{
		"old_bookmarks",
		"watch_items",
		"sync_queue",
	}
	indexesToDrop = []string{
		"idx_bookmarks_title",
		"idx_watch_items_handle",
	}
)

// RunMigrations applies SQLite tuning, migrates the store schema and cleans
// up leftovers from earlier revisions.
func RunMigrations(db *gorm.DB, logger *slog.Logger) error {
	ctx := context.Background()

	if err := enableSQLiteOptimizations(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to enable SQLite optimizations: %w", err)
	}

	if err := db.AutoMigrate(&models.Bookmark{}, &models.ProgressItem{}, &models.BookmarkUpdate{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	for _, table := range tablesToDrop {
		if err := dropTableIfExists(ctx, db, table, logger); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	if err := dropIndexes(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to drop indexes: %w", err)
	}

	if err := createAdditionalIndexes(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to create additional indexes: %w", err)
	}

	return nil
}

func dropIndexes(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	for _, index := range indexesToDrop {
		if err := db.WithContext(ctx).Exec("DROP INDEX IF EXISTS " + index).Error; err != nil {
			return fmt.Errorf("failed to drop index %s: %w", index, err)
		}
		logger.Debug("Dropped index", slog.String("index", index))
	}
	return nil
}

func dropTableIfExists(ctx context.Context, db *gorm.DB, tableName string, logger *slog.Logger) error {
	if err := db.WithContext(ctx).Exec("DROP TABLE IF EXISTS " + tableName).Error; err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	logger.Debug("Dropped table", slog.String("table", tableName))
	return nil
}

// enableSQLiteOptimizations applies per-connection pragmas. Failures are
// logged rather than fatal since some pragmas depend on the SQLite build.
func enableSQLiteOptimizations(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	optimizations := []string{
		"PRAGMA journal_mode=WAL",    // better concurrency
		"PRAGMA synchronous=NORMAL",  // faster writes while maintaining safety
		"PRAGMA cache_size=1000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA optimize",
	}

	for _, pragma := range optimizations {
		if err := db.WithContext(ctx).Exec(pragma).Error; err != nil {
			logger.Warn("Failed to execute pragma", slog.String("pragma", pragma), slog.Any("error", err))
		}
	}

	return nil
}

// createAdditionalIndexes adds indexes for the hot lookup paths: stores are
// keyed by handle and the queue drains in insertion order.
func createAdditionalIndexes(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	additionalIndexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_bookmarks_updated_at ON bookmarks(updated_at)",
		"CREATE INDEX IF NOT EXISTS idx_progress_items_updated_at ON progress_items(updated_at)",
		"CREATE INDEX IF NOT EXISTS idx_bookmark_updates_created_at ON bookmark_updates(created_at)",
	}

	for _, indexSQL := range additionalIndexes {
		if err := db.WithContext(ctx).Exec(indexSQL).Error; err != nil {
			logger.Warn("Failed to create index", slog.String("sql", indexSQL), slog.Any("error", err))
		}
	}

	return nil
}
