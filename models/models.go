package models

import "time"

// MediaKind is the closed set of media types the catalog distinguishes.
type MediaKind string

const (
	Movie  MediaKind = "movie"
	Series MediaKind = "show"
)

// MediaRecord is the normalized shape of one catalog entry, regardless of
// whether the upstream payload was a movie or a series.
type MediaRecord struct {
	ID          string          `json:"id"`
	Kind        MediaKind       `json:"kind"`
	Title       string          `json:"title"`
	Poster      string          `json:"poster,omitempty"`
	ReleaseDate *time.Time      `json:"release_date,omitempty"`
	Overview    string          `json:"overview,omitempty"`
	VoteAverage float64         `json:"vote_average,omitempty"`
	Seasons     []SeasonSummary `json:"seasons,omitempty"`
}

// Year returns the release year, or 0 when the release date is unknown.
func (m MediaRecord) Year() int {
	if m.ReleaseDate == nil {
		return 0
	}
	return m.ReleaseDate.Year()
}

// SeasonSummary is the per-season entry carried on a series MediaRecord.
type SeasonSummary struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// SeasonDetail is a full season listing with its episodes in ascending order.
type SeasonDetail struct {
	ID       string    `json:"id"`
	Number   int       `json:"number"`
	Title    string    `json:"title"`
	Episodes []Episode `json:"episodes"`
}

// Episode is one entry of a season listing.
type Episode struct {
	ID      string `json:"id"`
	Number  int    `json:"number"`
	Title   string `json:"title"`
	AirDate string `json:"air_date,omitempty"`
}

// HistoryItem is the minimal projection of a media item that the bookmark
// and progress stores hold and the recommendation engine consumes.
type HistoryItem struct {
	Handle string    `json:"handle"`
	TMDBID string    `json:"tmdb_id"`
	Kind   MediaKind `json:"kind"`
	Title  string    `json:"title"`
	Year   int       `json:"year,omitempty"`
	Poster string    `json:"poster,omitempty"`
}

// ScoredItem is one ranked entry of a recommendation result.
type ScoredItem struct {
	MediaRecord
	Score int `json:"score"`
}
