package types

import "time"

// StatsData represents statistics about the local stores, served on the
// stats endpoint.
type StatsData struct {
	TotalBookmarks      int64     `json:"total_bookmarks"`
	TotalProgressItems  int64     `json:"total_progress_items"`
	PendingSyncUpdates  int64     `json:"pending_sync_updates"`
	OldestPendingUpdate time.Time `json:"oldest_pending_update,omitempty"`
}
