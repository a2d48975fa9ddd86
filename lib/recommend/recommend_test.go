package recommend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediadex/mediadex/lib/tmdb"
	"github.com/mediadex/mediadex/models"
)

// fixedRand keeps the seed order stable and returns a constant roll, so
// boost behavior is deterministic per test.
type fixedRand struct {
	roll float64
}

func (f *fixedRand) Shuffle(n int, swap func(i, j int)) {}
func (f *fixedRand) Float64() float64                   { return f.roll }

type stubCatalog struct {
	mu      sync.Mutex
	calls   int
	results map[string][]tmdb.SearchItem
	errs    map[string]error
}

func (s *stubCatalog) Related(ctx context.Context, kind models.MediaKind, id string) ([]tmdb.SearchItem, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if err, ok := s.errs[id]; ok {
		return nil, err
	}
	return s.results[id], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func movieItem(id int64, title string) tmdb.SearchItem {
	return tmdb.SearchItem{
		ID:          id,
		MediaType:   tmdb.MediaTypeMovie,
		Title:       title,
		ReleaseDate: "2015-06-01",
	}
}

func historyItem(id string, kind models.MediaKind) models.HistoryItem {
	return models.HistoryItem{
		Handle: fmt.Sprintf("tmdb-movie-%s-x", id),
		TMDBID: id,
		Kind:   kind,
		Title:  "seed " + id,
	}
}

func TestRecommendExcludesHistory(t *testing.T) {
	catalog := &stubCatalog{
		results: map[string][]tmdb.SearchItem{
			"1": {movieItem(1, "seed itself"), movieItem(2, "fresh")},
		},
	}
	r := New(catalog, testLogger(), &fixedRand{})

	got, err := r.Recommend(context.Background(), []models.HistoryItem{historyItem("1", models.Movie)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestRecommendCoOccurrenceScoring(t *testing.T) {
	// The same candidate from two different seeds tallies 1 + 2 = 3.
	shared := movieItem(100, "shared candidate")
	catalog := &stubCatalog{
		results: map[string][]tmdb.SearchItem{
			"1": {shared, movieItem(101, "only once")},
			"2": {shared},
		},
	}
	r := New(catalog, testLogger(), &fixedRand{roll: 0.5})

	history := []models.HistoryItem{
		historyItem("1", models.Movie),
		historyItem("2", models.Movie),
	}
	got, err := r.Recommend(context.Background(), history)
	require.NoError(t, err)
	require.Len(t, got, 2)

	scores := map[string]int{}
	for _, item := range got {
		scores[item.ID] = item.Score
	}
	assert.Equal(t, 3, scores["100"])
	assert.Equal(t, 1, scores["101"])
	assert.Equal(t, "100", got[0].ID, "higher score sorts first")
}

func TestRecommendBoostAddsOne(t *testing.T) {
	catalog := &stubCatalog{
		results: map[string][]tmdb.SearchItem{
			"1": {movieItem(100, "boosted")},
		},
	}
	r := New(catalog, testLogger(), &fixedRand{roll: 0.9})

	got, err := r.Recommend(context.Background(), []models.HistoryItem{historyItem("1", models.Movie)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Score)
}

func TestRecommendCapsResults(t *testing.T) {
	var items []tmdb.SearchItem
	for i := int64(0); i < 60; i++ {
		items = append(items, movieItem(1000+i, fmt.Sprintf("candidate %d", i)))
	}
	catalog := &stubCatalog{results: map[string][]tmdb.SearchItem{"1": items}}
	r := New(catalog, testLogger(), &fixedRand{})

	got, err := r.Recommend(context.Background(), []models.HistoryItem{historyItem("1", models.Movie)})
	require.NoError(t, err)
	assert.Len(t, got, 40)
}

func TestRecommendSeedFailureDegrades(t *testing.T) {
	catalog := &stubCatalog{
		results: map[string][]tmdb.SearchItem{
			"2": {movieItem(200, "survivor")},
		},
		errs: map[string]error{
			"1": errors.New("catalog down"),
		},
	}
	r := New(catalog, testLogger(), &fixedRand{})

	history := []models.HistoryItem{
		historyItem("1", models.Movie),
		historyItem("2", models.Series),
	}
	got, err := r.Recommend(context.Background(), history)
	require.NoError(t, err, "one failed seed must not fail the batch")
	require.Len(t, got, 1)
	assert.Equal(t, "200", got[0].ID)
}

func TestRecommendBoundsFanOut(t *testing.T) {
	catalog := &stubCatalog{results: map[string][]tmdb.SearchItem{}}
	r := New(catalog, testLogger(), &fixedRand{})

	var history []models.HistoryItem
	for i := 0; i < 25; i++ {
		history = append(history, historyItem(fmt.Sprintf("%d", i), models.Movie))
	}
	_, err := r.Recommend(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, 10, catalog.calls)
}

func TestRecommendEmptyHistory(t *testing.T) {
	catalog := &stubCatalog{}
	r := New(catalog, testLogger(), nil)

	got, err := r.Recommend(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, catalog.calls)
}
