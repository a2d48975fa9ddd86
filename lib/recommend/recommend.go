// Package recommend computes a personalized ranking of unseen media from a
// user's bookmark and progress history. Each history item used as a seed
// costs one related-items catalog query, so the seed set is capped and the
// fan-out runs concurrently.
package recommend

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mediadex/mediadex/lib/tmdb"
	"github.com/mediadex/mediadex/models"
)

const (
	maxSeeds   = 10
	maxResults = 40
)

// Catalog is the slice of the gateway the engine needs.
type Catalog interface {
	Related(ctx context.Context, kind models.MediaKind, id string) ([]tmdb.SearchItem, error)
}

// Rand is the injected source of randomness for seed shuffling and score
// boosts, so ranking is reproducible under test. *rand.Rand satisfies it.
type Rand interface {
	Shuffle(n int, swap func(i, j int))
	Float64() float64
}

type Recommender struct {
	catalog Catalog
	logger  *slog.Logger

	// rng is guarded by mu: *rand.Rand is not safe for concurrent use and
	// Recommend may be called from multiple requests at once.
	mu  sync.Mutex
	rng Rand
}

// New creates a recommendation engine. A nil rng falls back to a
// time-seeded source.
func New(catalog Catalog, logger *slog.Logger, rng Rand) *Recommender {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Recommender{
		catalog: catalog,
		logger:  logger,
		rng:     rng,
	}
}

type tally struct {
	record models.MediaRecord
	count  int
}

// Recommend ranks unseen media related to the given history. At most ten
// shuffled history items seed one related-items query each; candidates are
// aggregated by catalog id, where the first occurrence counts 1 and every
// repeat co-occurrence adds 2. Anything already in the history is dropped,
// each survivor gets a +1 boost with probability 0.2, and the top 40 by
// score are returned. A failed seed only loses that seed's contribution.
func (r *Recommender) Recommend(ctx context.Context, history []models.HistoryItem) ([]models.ScoredItem, error) {
	seeds := make([]models.HistoryItem, len(history))
	copy(seeds, history)

	r.mu.Lock()
	r.rng.Shuffle(len(seeds), func(i, j int) {
		seeds[i], seeds[j] = seeds[j], seeds[i]
	})
	r.mu.Unlock()

	if len(seeds) > maxSeeds {
		seeds = seeds[:maxSeeds]
	}

	related := make([][]tmdb.SearchItem, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	for i, seed := range seeds {
		i, seed := i, seed
		g.Go(func() error {
			items, err := r.catalog.Related(gctx, seed.Kind, seed.TMDBID)
			if err != nil {
				// Partial results beat an empty page: log and move on.
				r.logger.Warn("related lookup failed, skipping seed",
					slog.String("handle", seed.Handle),
					slog.Any("error", err))
				return nil
			}
			related[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// A candidate reached through several seeds appears once per seed in
	// the flat list; that repetition is the ranking signal.
	counts := make(map[string]*tally)
	var order []string
	for _, batch := range related {
		for _, raw := range batch {
			rec := tmdb.FormatSearchItem(raw, raw.MediaType)
			if t, ok := counts[rec.ID]; ok {
				t.count += 2
				continue
			}
			counts[rec.ID] = &tally{record: rec, count: 1}
			order = append(order, rec.ID)
		}
	}

	seen := make(map[string]struct{}, len(history))
	for _, item := range history {
		seen[item.TMDBID] = struct{}{}
	}

	r.mu.Lock()
	out := make([]models.ScoredItem, 0, len(order))
	for _, id := range order {
		t := counts[id]
		if _, ok := seen[id]; ok {
			continue
		}
		score := t.count
		if r.rng.Float64() > 0.8 {
			score++
		}
		out = append(out, models.ScoredItem{MediaRecord: t.record, Score: score})
	}
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}
