// Package bookmarks persists the user's bookmarked media and the queue of
// pending changes the account sync pushes upstream.
package bookmarks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediadex/mediadex/models"
)

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Add upserts a bookmark and enqueues an "add" entry for the next sync.
func (s *Store) Add(ctx context.Context, item models.HistoryItem) error {
	bookmark := models.Bookmark{
		Handle: item.Handle,
		TMDBID: item.TMDBID,
		Kind:   string(item.Kind),
		Title:  item.Title,
		Year:   item.Year,
		Poster: item.Poster,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Bookmark
		err := tx.Where("handle = ?", item.Handle).First(&existing).Error
		switch {
		case err == nil:
			existing.Title = bookmark.Title
			existing.Year = bookmark.Year
			existing.Poster = bookmark.Poster
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to update bookmark: %w", err)
			}
		case err == gorm.ErrRecordNotFound:
			if err := tx.Create(&bookmark).Error; err != nil {
				return fmt.Errorf("failed to create bookmark: %w", err)
			}
		default:
			return fmt.Errorf("failed to look up bookmark: %w", err)
		}

		return enqueue(tx, models.BookmarkUpdate{
			ID:     uuid.NewString(),
			Handle: item.Handle,
			Action: "add",
			Kind:   string(item.Kind),
			Title:  item.Title,
			Year:   item.Year,
			Poster: item.Poster,
		})
	})
}

// Remove deletes a bookmark and enqueues a "delete" entry for the next sync.
// Removing a handle that was never bookmarked is a no-op apart from the
// queue entry.
func (s *Store) Remove(ctx context.Context, handle string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("handle = ?", handle).Delete(&models.Bookmark{}).Error; err != nil {
			return fmt.Errorf("failed to delete bookmark: %w", err)
		}
		return enqueue(tx, models.BookmarkUpdate{
			ID:     uuid.NewString(),
			Handle: handle,
			Action: "delete",
		})
	})
}

func enqueue(tx *gorm.DB, entry models.BookmarkUpdate) error {
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to enqueue bookmark update: %w", err)
	}
	return nil
}

// List returns all bookmarks as history items, most recently updated first.
func (s *Store) List(ctx context.Context) ([]models.HistoryItem, error) {
	var rows []models.Bookmark
	if err := s.db.WithContext(ctx).Order("updated_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
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

// Replace swaps the whole bookmark set for the given items, used when the
// account service returns a merged state. The update queue is untouched.
func (s *Store) Replace(ctx context.Context, items []models.HistoryItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Bookmark{}).Error; err != nil {
			return fmt.Errorf("failed to clear bookmarks: %w", err)
		}
		for _, item := range items {
			bookmark := models.Bookmark{
				Handle: item.Handle,
				TMDBID: item.TMDBID,
				Kind:   string(item.Kind),
				Title:  item.Title,
				Year:   item.Year,
				Poster: item.Poster,
			}
			if err := tx.Create(&bookmark).Error; err != nil {
				return fmt.Errorf("failed to insert bookmark: %w", err)
			}
		}
		return nil
	})
}

// PendingUpdates returns the queued changes in insertion order.
func (s *Store) PendingUpdates(ctx context.Context) ([]models.BookmarkUpdate, error) {
	var entries []models.BookmarkUpdate
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookmark updates: %w", err)
	}
	return entries, nil
}

// RemoveUpdate drops one queue entry, called after the account service has
// acknowledged it.
func (s *Store) RemoveUpdate(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.BookmarkUpdate{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to remove bookmark update: %w", err)
	}
	return nil
}

// ClearUpdates empties the queue.
func (s *Store) ClearUpdates(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&models.BookmarkUpdate{}).Error; err != nil {
		return fmt.Errorf("failed to clear bookmark updates: %w", err)
	}
	return nil
}
