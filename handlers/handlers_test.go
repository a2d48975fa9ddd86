package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mediadex/mediadex/lib/bookmarks"
	"github.com/mediadex/mediadex/lib/progress"
	"github.com/mediadex/mediadex/lib/recommend"
	"github.com/mediadex/mediadex/lib/tmdb"
	"github.com/mediadex/mediadex/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Bookmark{}, &models.ProgressItem{}, &models.BookmarkUpdate{}))
	return db
}

// fakeCatalogUpstream serves canned TMDB payloads for every endpoint the
// handlers exercise.
func fakeCatalogUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/search/multi":
			_, _ = w.Write([]byte(`{"results": [
				{"id": 42, "media_type": "tv", "name": "Example Show", "first_air_date": "2019-01-01", "poster_path": "/p.jpg", "vote_average": 7.5},
				{"id": 287, "media_type": "person", "name": "Some Actor"}
			]}`))
		case strings.HasSuffix(r.URL.Path, "/recommendations"):
			_, _ = w.Write([]byte(`{"results": [
				{"id": 100, "media_type": "movie", "title": "Fresh Movie", "release_date": "2021-02-03"}
			]}`))
		default:
			t.Errorf("unexpected upstream path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestHandleSearch(t *testing.T) {
	upstream := fakeCatalogUpstream(t)
	defer upstream.Close()
	catalog := tmdb.NewClient("test-key", testLogger(), tmdb.WithBaseURLs(upstream.URL, upstream.URL))

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=example", nil)
	rec := httptest.NewRecorder()
	HandleSearch(catalog)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var items []MediaItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	require.Len(t, items, 1, "person results are filtered out")
	assert.Equal(t, "tmdb-tv-42-example-show", items[0].Handle)
	assert.Equal(t, "Example Show", items[0].Title)
}

func TestHandleSearchRejectsEmptyQuery(t *testing.T) {
	catalog := tmdb.NewClient("test-key", testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	rec := httptest.NewRecorder()
	HandleSearch(catalog)(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuickSearchResolvesIMDBID(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/find/tt0137523":
			_, _ = w.Write([]byte(`{"movie_results": [{"id": 550, "media_type": "movie", "title": "Fight Club"}]}`))
		case "/movie/550":
			_, _ = w.Write([]byte(`{"id": 550, "title": "Fight Club", "release_date": "1999-10-15"}`))
		default:
			t.Errorf("unexpected upstream path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()
	catalog := tmdb.NewClient("test-key", testLogger(), tmdb.WithBaseURLs(upstream.URL, upstream.URL))

	req := httptest.NewRequest(http.MethodGet, "/api/search/quick?q=tt0137523", nil)
	rec := httptest.NewRecorder()
	HandleQuickSearch(catalog)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "/media/tmdb-movie-550-fight-club", body["url"])
}

func TestHandleTrendingRejectsUnknownPeriod(t *testing.T) {
	catalog := tmdb.NewClient("test-key", testLogger())
	router := chi.NewRouter()
	router.Get("/api/trending/{period}", HandleTrending(catalog))

	req := httptest.NewRequest(http.MethodGet, "/api/trending/month", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMediaRejectsForeignHandle(t *testing.T) {
	catalog := tmdb.NewClient("test-key", testLogger())
	router := chi.NewRouter()
	router.Get("/api/media/{handle}", HandleMedia(catalog))

	req := httptest.NewRequest(http.MethodGet, "/api/media/imdb-movie-550-fight-club", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSearchUpstreamDownIsBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()
	catalog := tmdb.NewClient("test-key", testLogger(), tmdb.WithBaseURLs(upstream.URL, upstream.URL))

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=example", nil)
	rec := httptest.NewRecorder()
	HandleSearch(catalog)(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestBookmarkLifecycle(t *testing.T) {
	db := newTestDB(t)
	store := bookmarks.NewStore(db, testLogger())

	router := chi.NewRouter()
	router.Get("/api/bookmarks", HandleBookmarksList(store))
	router.Post("/api/bookmarks", HandleBookmarkAdd(store))
	router.Delete("/api/bookmarks/{handle}", HandleBookmarkDelete(store))

	body, _ := json.Marshal(bookmarkRequest{
		Handle: "tmdb-movie-550-fight-club",
		Title:  "Fight Club",
		Year:   1999,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/bookmarks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []models.HistoryItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "550", items[0].TMDBID)

	req = httptest.NewRequest(http.MethodDelete, "/api/bookmarks/tmdb-movie-550-fight-club", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBookmarkAddRejectsForeignHandle(t *testing.T) {
	store := bookmarks.NewStore(newTestDB(t), testLogger())
	body, _ := json.Marshal(bookmarkRequest{Handle: "not-a-handle"})

	req := httptest.NewRequest(http.MethodPost, "/api/bookmarks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	HandleBookmarkAdd(store)(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRecommendationsExcludesHistory(t *testing.T) {
	upstream := fakeCatalogUpstream(t)
	defer upstream.Close()
	catalog := tmdb.NewClient("test-key", testLogger(), tmdb.WithBaseURLs(upstream.URL, upstream.URL))

	db := newTestDB(t)
	bmStore := bookmarks.NewStore(db, testLogger())
	pgStore := progress.NewStore(db, testLogger())
	engine := recommend.New(catalog, testLogger(), nil)

	require.NoError(t, bmStore.Add(context.Background(), models.HistoryItem{
		Handle: "tmdb-movie-550-fight-club",
		TMDBID: "550",
		Kind:   models.Movie,
		Title:  "Fight Club",
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/recommendations", nil)
	rec := httptest.NewRecorder()
	HandleRecommendations(engine, bmStore, pgStore)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var items []MediaItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "tmdb-movie-100-fresh-movie", items[0].Handle)
	for _, item := range items {
		assert.NotEqual(t, "550", item.ID)
	}
}

func TestHandleProgressUpsertAndList(t *testing.T) {
	store := progress.NewStore(newTestDB(t), testLogger())
	router := chi.NewRouter()
	router.Put("/api/progress/{handle}", HandleProgressUpsert(store))
	router.Get("/api/progress", HandleProgressList(store))

	body, _ := json.Marshal(progressRequest{
		Title:        "Example Show",
		Season:       1,
		Episode:      3,
		WatchedSecs:  300,
		DurationSecs: 2700,
	})
	req := httptest.NewRequest(http.MethodPut, "/api/progress/tmdb-tv-42-example-show", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/progress", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []models.ProgressItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "42", items[0].TMDBID)
	assert.Equal(t, "show", items[0].Kind)
}

func TestHandleStats(t *testing.T) {
	db := newTestDB(t)
	store := bookmarks.NewStore(db, testLogger())
	require.NoError(t, store.Add(context.Background(), models.HistoryItem{
		Handle: "tmdb-movie-550-fight-club",
		TMDBID: "550",
		Kind:   models.Movie,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	HandleStats(db)(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.EqualValues(t, 1, stats["total_bookmarks"])
	assert.EqualValues(t, 1, stats["pending_sync_updates"])
}
