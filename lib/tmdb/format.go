package tmdb

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/mediadex/mediadex/lib/mediaid"
	"github.com/mediadex/mediadex/models"
)

const imageCDNBase = "https://image.tmdb.org/t/p"

// kindFor maps a raw content type onto the internal media kind. The raw
// type always comes from the closed MediaType set, so anything else is a
// caller bug.
func kindFor(t MediaType) models.MediaKind {
	switch t {
	case MediaTypeMovie:
		return models.Movie
	case MediaTypeTV:
		return models.Series
	}
	panic(fmt.Sprintf("tmdb: unsupported media type %q", t))
}

// PosterURL expands a raw poster path into a full CDN URL, or returns the
// empty string when the path is absent.
func PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return imageCDNBase + "/w342" + path
}

// parseDate parses the catalog's date rendering. Absent or unparsable dates
// come back nil; the upstream source leaves the field empty for unreleased
// titles.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// FormatSearchItem erases the structural difference between the raw movie
// and tv shapes: movies carry title/release_date, series carry
// name/first_air_date. The raw media type picks which half applies.
func FormatSearchItem(item SearchItem, t MediaType) models.MediaRecord {
	kind := kindFor(t)

	title := item.Title
	date := item.ReleaseDate
	if kind == models.Series {
		title = item.Name
		date = item.FirstAirDate
	}

	return models.MediaRecord{
		ID:          strconv.FormatInt(item.ID, 10),
		Kind:        kind,
		Title:       title,
		Poster:      PosterURL(item.PosterPath),
		ReleaseDate: parseDate(date),
		Overview:    item.Overview,
		VoteAverage: item.VoteAverage,
	}
}

// FormatMovieDetails normalizes a movie detail payload.
func FormatMovieDetails(d *MovieDetails) models.MediaRecord {
	return models.MediaRecord{
		ID:          strconv.FormatInt(d.ID, 10),
		Kind:        models.Movie,
		Title:       d.Title,
		Poster:      PosterURL(d.PosterPath),
		ReleaseDate: parseDate(d.ReleaseDate),
		Overview:    d.Overview,
		VoteAverage: d.VoteAverage,
	}
}

// FormatShowDetails normalizes a series detail payload. Seasons come back
// sorted ascending by season number.
func FormatShowDetails(d *ShowDetails) models.MediaRecord {
	seasons := make([]models.SeasonSummary, 0, len(d.Seasons))
	for _, s := range d.Seasons {
		seasons = append(seasons, models.SeasonSummary{
			ID:     strconv.FormatInt(s.ID, 10),
			Number: s.SeasonNumber,
			Title:  s.Name,
		})
	}
	sort.Slice(seasons, func(i, j int) bool { return seasons[i].Number < seasons[j].Number })

	return models.MediaRecord{
		ID:          strconv.FormatInt(d.ID, 10),
		Kind:        models.Series,
		Title:       d.Name,
		Poster:      PosterURL(d.PosterPath),
		ReleaseDate: parseDate(d.FirstAirDate),
		Overview:    d.Overview,
		VoteAverage: d.VoteAverage,
		Seasons:     seasons,
	}
}

// FormatSeason normalizes one raw season listing. The upstream source does
// not guarantee episode order, so episodes are sorted ascending here.
func FormatSeason(raw seasonResponse) models.SeasonDetail {
	episodes := make([]models.Episode, 0, len(raw.Episodes))
	for _, e := range raw.Episodes {
		episodes = append(episodes, models.Episode{
			ID:      strconv.FormatInt(e.ID, 10),
			Number:  e.EpisodeNumber,
			Title:   e.Name,
			AirDate: e.AirDate,
		})
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].Number < episodes[j].Number })

	return models.SeasonDetail{
		ID:       strconv.FormatInt(raw.ID, 10),
		Number:   raw.SeasonNumber,
		Title:    raw.Name,
		Episodes: episodes,
	}
}

// ToHistoryItem projects a normalized record down to the minimal shape the
// stores persist and the recommendation engine fans out from.
func ToHistoryItem(rec models.MediaRecord) models.HistoryItem {
	return models.HistoryItem{
		Handle: mediaid.Encode(rec.Kind, rec.ID, rec.Title),
		TMDBID: rec.ID,
		Kind:   rec.Kind,
		Title:  rec.Title,
		Year:   rec.Year(),
		Poster: rec.Poster,
	}
}
