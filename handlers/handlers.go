// Package handlers exposes the JSON API: catalog search and browsing,
// bookmark and progress stores, recommendations and account sync.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/mediadex/mediadex/lib/account"
	"github.com/mediadex/mediadex/lib/bookmarks"
	"github.com/mediadex/mediadex/lib/mediaid"
	"github.com/mediadex/mediadex/lib/progress"
	"github.com/mediadex/mediadex/lib/recommend"
	"github.com/mediadex/mediadex/lib/tmdb"
	"github.com/mediadex/mediadex/lib/types"
	"github.com/mediadex/mediadex/lib/validation"
	"github.com/mediadex/mediadex/models"
)

var (
	errUnableToLoad = errors.New("unable to load")
	errNotAHandle   = errors.New("not a recognized media id")
)

// MediaItem is a normalized record plus its navigable handle, the shape
// every listing endpoint returns.
type MediaItem struct {
	Handle string `json:"handle"`
	models.MediaRecord
	Score int `json:"score,omitempty"`
}

func toMediaItem(rec models.MediaRecord) MediaItem {
	return MediaItem{
		Handle:      mediaid.Encode(rec.Kind, rec.ID, rec.Title),
		MediaRecord: rec,
	}
}

func toMediaItems(raw []tmdb.SearchItem) []MediaItem {
	items := make([]MediaItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, toMediaItem(tmdb.FormatSearchItem(r, r.MediaType)))
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

// writeCatalogError maps gateway failures onto the API surface: a missing
// credential is a server misconfiguration, anything else means both catalog
// endpoints were exhausted and the client should show an "unable to load"
// state.
func writeCatalogError(w http.ResponseWriter, err error) {
	slog.Error("catalog request failed", slog.Any("error", err))
	if errors.Is(err, tmdb.ErrNoAPIKey) {
		validation.WriteError(w, fmt.Errorf("catalog credential not configured"), http.StatusInternalServerError)
		return
	}
	validation.WriteError(w, errUnableToLoad, http.StatusBadGateway)
}

// HandleSearch serves GET /api/search?q=.
func HandleSearch(catalog *tmdb.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if err := validation.ValidateQuery(query); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		raw, err := catalog.MultiSearch(r.Context(), query)
		if err != nil {
			writeCatalogError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMediaItems(raw))
	}
}

var imdbIDPattern = regexp.MustCompile(`^tt\d{7,}$`)

// quickSearchHandle resolves a query to a handle. An IMDB id goes through
// the reverse lookup, anything else through a regular search.
func quickSearchHandle(ctx context.Context, catalog *tmdb.Client, query string) (string, error) {
	if !imdbIDPattern.MatchString(query) {
		return catalog.QuickSearchHandle(ctx, query)
	}

	id, err := catalog.FindByIMDBID(ctx, query)
	if err != nil || id == "" {
		return "", err
	}
	details, err := catalog.MovieDetails(ctx, id)
	if err != nil {
		return "", err
	}
	return mediaid.Encode(models.Movie, id, details.Title), nil
}

// HandleQuickSearch serves GET /api/search/quick?q=, returning the media
// URL of the best hit. The query may also be an IMDB id.
func HandleQuickSearch(catalog *tmdb.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if err := validation.ValidateQuery(query); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		handle, err := quickSearchHandle(r.Context(), catalog, query)
		if err != nil {
			writeCatalogError(w, err)
			return
		}
		if handle == "" {
			validation.WriteError(w, fmt.Errorf("no results"), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": "/media/" + handle})
	}
}

// HandleTrending serves GET /api/trending/{period}.
func HandleTrending(catalog *tmdb.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period := chi.URLParam(r, "period")
		if err := validation.ValidatePeriod(period); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		raw, err := catalog.Trending(r.Context(), period)
		if err != nil {
			writeCatalogError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMediaItems(raw))
	}
}

type mediaDetailResponse struct {
	MediaItem
	IMDBID string `json:"imdb_id,omitempty"`
}

// HandleMedia serves GET /api/media/{handle}: the full detail record for
// one movie or series, external ids included.
func HandleMedia(catalog *tmdb.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := mediaid.Decode(chi.URLParam(r, "handle"))
		if !ok {
			validation.WriteError(w, errNotAHandle, http.StatusNotFound)
			return
		}

		var (
			rec    models.MediaRecord
			imdbID string
		)
		switch ref.Kind {
		case models.Movie:
			details, err := catalog.MovieDetails(r.Context(), ref.ID)
			if err != nil {
				writeCatalogError(w, err)
				return
			}
			rec = tmdb.FormatMovieDetails(details)
			imdbID = details.ExternalIDs.IMDBID
		case models.Series:
			details, err := catalog.ShowDetails(r.Context(), ref.ID)
			if err != nil {
				writeCatalogError(w, err)
				return
			}
			rec = tmdb.FormatShowDetails(details)
			imdbID = details.ExternalIDs.IMDBID
		}

		writeJSON(w, http.StatusOK, mediaDetailResponse{
			MediaItem: toMediaItem(rec),
			IMDBID:    imdbID,
		})
	}
}

// HandleSeason serves GET /api/media/{handle}/seasons/{number}.
func HandleSeason(catalog *tmdb.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := mediaid.Decode(chi.URLParam(r, "handle"))
		if !ok {
			validation.WriteError(w, errNotAHandle, http.StatusNotFound)
			return
		}
		if ref.Kind != models.Series {
			validation.WriteError(w, fmt.Errorf("movies have no seasons"), http.StatusBadRequest)
			return
		}

		number, err := strconv.Atoi(chi.URLParam(r, "number"))
		if err != nil {
			validation.WriteError(w, fmt.Errorf("invalid season number"), http.StatusBadRequest)
			return
		}
		if err := validation.ValidateSeasonNumber(number); err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		season, err := catalog.Season(r.Context(), ref.ID, number)
		if err != nil {
			writeCatalogError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, season)
	}
}

// HandleTrailer serves GET /api/media/{handle}/trailer.
func HandleTrailer(catalog *tmdb.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := mediaid.Decode(chi.URLParam(r, "handle"))
		if !ok {
			validation.WriteError(w, errNotAHandle, http.StatusNotFound)
			return
		}

		key, err := catalog.Trailer(r.Context(), ref.Kind, ref.ID)
		if err != nil {
			writeCatalogError(w, err)
			return
		}
		if key == "" {
			validation.WriteError(w, fmt.Errorf("no trailer available"), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key})
	}
}

// HandleRecommendations serves GET /api/recommendations: ranked unseen
// media derived from the union of bookmarks and watch progress.
func HandleRecommendations(engine *recommend.Recommender, bm *bookmarks.Store, pg *progress.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookmarked, err := bm.List(r.Context())
		if err != nil {
			slog.Error("Failed to list bookmarks", slog.Any("error", err))
			validation.WriteError(w, errUnableToLoad, http.StatusInternalServerError)
			return
		}
		watched, err := pg.History(r.Context())
		if err != nil {
			slog.Error("Failed to list progress", slog.Any("error", err))
			validation.WriteError(w, errUnableToLoad, http.StatusInternalServerError)
			return
		}

		// Bookmarks first; progress entries for the same handle are
		// duplicates, not extra signal.
		seen := make(map[string]struct{}, len(bookmarked))
		history := make([]models.HistoryItem, 0, len(bookmarked)+len(watched))
		for _, item := range bookmarked {
			seen[item.Handle] = struct{}{}
			history = append(history, item)
		}
		for _, item := range watched {
			if _, ok := seen[item.Handle]; ok {
				continue
			}
			history = append(history, item)
		}

		ranked, err := engine.Recommend(r.Context(), history)
		if err != nil {
			writeCatalogError(w, err)
			return
		}

		items := make([]MediaItem, 0, len(ranked))
		for _, s := range ranked {
			item := toMediaItem(s.MediaRecord)
			item.Score = s.Score
			items = append(items, item)
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// HandleBookmarksList serves GET /api/bookmarks.
func HandleBookmarksList(bm *bookmarks.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := bm.List(r.Context())
		if err != nil {
			slog.Error("Failed to list bookmarks", slog.Any("error", err))
			validation.WriteError(w, errUnableToLoad, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

type bookmarkRequest struct {
	Handle string `json:"handle"`
	Title  string `json:"title"`
	Year   int    `json:"year"`
	Poster string `json:"poster"`
}

// HandleBookmarkAdd serves POST /api/bookmarks.
func HandleBookmarkAdd(bm *bookmarks.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bookmarkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			validation.WriteError(w, fmt.Errorf("invalid request body"), http.StatusBadRequest)
			return
		}

		ref, ok := mediaid.Decode(req.Handle)
		if !ok {
			validation.WriteError(w, errNotAHandle, http.StatusBadRequest)
			return
		}

		item := models.HistoryItem{
			Handle: req.Handle,
			TMDBID: ref.ID,
			Kind:   ref.Kind,
			Title:  req.Title,
			Year:   req.Year,
			Poster: req.Poster,
		}
		if err := bm.Add(r.Context(), item); err != nil {
			slog.Error("Failed to add bookmark", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("failed to save bookmark"), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

// HandleBookmarkDelete serves DELETE /api/bookmarks/{handle}.
func HandleBookmarkDelete(bm *bookmarks.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle := chi.URLParam(r, "handle")
		if _, ok := mediaid.Decode(handle); !ok {
			validation.WriteError(w, errNotAHandle, http.StatusBadRequest)
			return
		}
		if err := bm.Remove(r.Context(), handle); err != nil {
			slog.Error("Failed to remove bookmark", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("failed to remove bookmark"), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleProgressList serves GET /api/progress.
func HandleProgressList(pg *progress.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := pg.List(r.Context())
		if err != nil {
			slog.Error("Failed to list progress", slog.Any("error", err))
			validation.WriteError(w, errUnableToLoad, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

type progressRequest struct {
	Title        string `json:"title"`
	Year         int    `json:"year"`
	Poster       string `json:"poster"`
	Season       int    `json:"season"`
	Episode      int    `json:"episode"`
	WatchedSecs  int    `json:"watched_secs"`
	DurationSecs int    `json:"duration_secs"`
}

// HandleProgressUpsert serves PUT /api/progress/{handle}.
func HandleProgressUpsert(pg *progress.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle := chi.URLParam(r, "handle")
		ref, ok := mediaid.Decode(handle)
		if !ok {
			validation.WriteError(w, errNotAHandle, http.StatusBadRequest)
			return
		}

		var req progressRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			validation.WriteError(w, fmt.Errorf("invalid request body"), http.StatusBadRequest)
			return
		}

		item := models.ProgressItem{
			Handle:       handle,
			TMDBID:       ref.ID,
			Kind:         string(ref.Kind),
			Title:        req.Title,
			Year:         req.Year,
			Poster:       req.Poster,
			Season:       req.Season,
			Episode:      req.Episode,
			WatchedSecs:  req.WatchedSecs,
			DurationSecs: req.DurationSecs,
		}
		if err := pg.Upsert(r.Context(), item); err != nil {
			slog.Error("Failed to save progress", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("failed to save progress"), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// HandleProgressDelete serves DELETE /api/progress/{handle}.
func HandleProgressDelete(pg *progress.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle := chi.URLParam(r, "handle")
		if _, ok := mediaid.Decode(handle); !ok {
			validation.WriteError(w, errNotAHandle, http.StatusBadRequest)
			return
		}
		if err := pg.Remove(r.Context(), handle); err != nil {
			slog.Error("Failed to remove progress", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("failed to remove progress"), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleSync serves POST /api/sync/{userID}: pushes the local progress
// snapshot to the account service and adopts the merged state it returns.
func HandleSync(acct *account.Client, pg *progress.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			validation.WriteError(w, fmt.Errorf("invalid user id"), http.StatusBadRequest)
			return
		}

		items, err := pg.List(r.Context())
		if err != nil {
			slog.Error("Failed to list progress", slog.Any("error", err))
			validation.WriteError(w, errUnableToLoad, http.StatusInternalServerError)
			return
		}

		merged, err := acct.SyncProgress(r.Context(), userID, items)
		if err != nil {
			if errors.Is(err, account.ErrSyncedRecently) {
				validation.WriteError(w, err, http.StatusTooManyRequests)
				return
			}
			slog.Error("Sync failed", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("sync failed"), http.StatusBadGateway)
			return
		}

		if err := pg.Replace(r.Context(), merged); err != nil {
			slog.Error("Failed to adopt merged progress", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("failed to store merged progress"), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"items": len(merged)})
	}
}

// HandleStats serves GET /api/stats.
func HandleStats(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var stats types.StatsData
		if err := db.WithContext(r.Context()).Model(&models.Bookmark{}).Count(&stats.TotalBookmarks).Error; err != nil {
			slog.Error("Failed to count bookmarks", slog.Any("error", err))
			validation.WriteError(w, errUnableToLoad, http.StatusInternalServerError)
			return
		}
		if err := db.WithContext(r.Context()).Model(&models.ProgressItem{}).Count(&stats.TotalProgressItems).Error; err != nil {
			slog.Error("Failed to count progress", slog.Any("error", err))
			validation.WriteError(w, errUnableToLoad, http.StatusInternalServerError)
			return
		}
		if err := db.WithContext(r.Context()).Model(&models.BookmarkUpdate{}).Count(&stats.PendingSyncUpdates).Error; err != nil {
			slog.Error("Failed to count pending updates", slog.Any("error", err))
			validation.WriteError(w, errUnableToLoad, http.StatusInternalServerError)
			return
		}
		if stats.PendingSyncUpdates > 0 {
			var oldest models.BookmarkUpdate
			if err := db.WithContext(r.Context()).Order("created_at asc").First(&oldest).Error; err == nil {
				stats.OldestPendingUpdate = oldest.CreatedAt
			}
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
