// Package progress persists per-media watch progress. Series entries track
// the season and episode the position belongs to; movies leave both zero.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/mediadex/mediadex/models"
)

// ErrNotFound is returned when no progress exists for a handle.
var ErrNotFound = errors.New("progress: not found")

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Upsert records the latest playback position for one media item.
func (s *Store) Upsert(ctx context.Context, item models.ProgressItem) error {
	var existing models.ProgressItem
	err := s.db.WithContext(ctx).Where("handle = ?", item.Handle).First(&existing).Error
	switch {
	case err == nil:
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
		if err := s.db.WithContext(ctx).Save(&item).Error; err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
			return fmt.Errorf("failed to create progress: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("failed to look up progress: %w", err)
	}
}

// Get returns the stored progress for a handle.
func (s *Store) Get(ctx context.Context, handle string) (*models.ProgressItem, error) {
	var item models.ProgressItem
	if err := s.db.WithContext(ctx).Where("handle = ?", handle).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &item, nil
}

// List returns all progress entries, most recently updated first.
func (s *Store) List(ctx context.Context) ([]models.ProgressItem, error) {
	var items []models.ProgressItem
	if err := s.db.WithContext(ctx).Order("updated_at desc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return items, nil
}

// Remove deletes the progress entry for a handle.
func (s *Store) Remove(ctx context.Context, handle string) error {
	if err := s.db.WithContext(ctx).Where("handle = ?", handle).Delete(&models.ProgressItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	return nil
}

// Replace swaps the whole progress set for the given items, used when the
// account service returns the merged state after a sync.
func (s *Store) Replace(ctx context.Context, items []models.ProgressItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.ProgressItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear progress: %w", err)
		}
		for i := range items {
			item := items[i]
			item.ID = 0
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to insert progress: %w", err)
			}
		}
		return nil
	})
}

// History projects the progress entries down to the shape the
// recommendation engine consumes.
func (s *Store) History(ctx context.Context) ([]models.HistoryItem, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.HistoryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.HistoryItem{
			Handle: row.Handle,
			TMDBID: row.TMDBID,
			Kind:   models.MediaKind(row.Kind),
			Title:  row.Title,
			Year:   row.Year,
			Poster: row.Poster,
		})
	}
	return items, nil
}
