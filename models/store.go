package models

import (
	"time"

	"gorm.io/gorm"
)

// Bookmark is a persisted user bookmark, keyed by media handle.
type Bookmark struct {
	gorm.Model
	Handle string `gorm:"uniqueIndex"`
	TMDBID string
	Kind   string
	Title  string
	Year   int
	Poster string
}

// ProgressItem is persisted watch progress for one media item. Season and
// Episode are zero for movies.
type ProgressItem struct {
	gorm.Model
	Handle       string `gorm:"uniqueIndex" json:"handle"`
	TMDBID       string `json:"tmdb_id"`
	Kind         string `json:"kind"`
	Title        string `json:"title"`
	Year         int    `json:"year,omitempty"`
	Poster       string `json:"poster,omitempty"`
	Season       int    `json:"season,omitempty"`
	Episode      int    `json:"episode,omitempty"`
	WatchedSecs  int    `json:"watched_secs"`
	DurationSecs int    `json:"duration_secs"`
}

// BookmarkUpdate is one entry of the bookmark update queue, pushed to the
// account service on the next sync. The ID is a UUID rather than a counter
// so entries created by different instances never collide.
type BookmarkUpdate struct {
	ID        string `gorm:"primaryKey" json:"id"`
	Handle    string `json:"tmdbId"`
	Action    string `json:"action"`
	Kind      string `json:"type,omitempty"`
	Title     string `json:"title,omitempty"`
	Year      int    `json:"year,omitempty"`
	Poster    string `json:"poster,omitempty"`
	CreatedAt time.Time
}
