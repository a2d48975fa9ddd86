package tmdb

// MediaType is the raw content-type discriminator TMDB uses in multi-type
// result lists. Values other than movie and tv (for example "person") are
// filtered out at the gateway and never reach the normalizer.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// SearchItem is one raw entry of a multi-type result list. Movie payloads
// populate Title and ReleaseDate, tv payloads populate Name and
// FirstAirDate; MediaType says which half is meaningful.
type SearchItem struct {
	ID           int64     `json:"id"`
	MediaType    MediaType `json:"media_type"`
	Title        string    `json:"title"`
	Name         string    `json:"name"`
	ReleaseDate  string    `json:"release_date"`
	FirstAirDate string    `json:"first_air_date"`
	PosterPath   string    `json:"poster_path"`
	Overview     string    `json:"overview"`
	VoteAverage  float64   `json:"vote_average"`
}

type searchResponse struct {
	Results []SearchItem `json:"results"`
}

// ExternalIDs is the cross-reference block appended to detail responses.
type ExternalIDs struct {
	IMDBID string `json:"imdb_id"`
}

// MovieDetails is the raw per-movie detail payload.
type MovieDetails struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	ReleaseDate string      `json:"release_date"`
	PosterPath  string      `json:"poster_path"`
	Overview    string      `json:"overview"`
	VoteAverage float64     `json:"vote_average"`
	Runtime     int         `json:"runtime"`
	ExternalIDs ExternalIDs `json:"external_ids"`
}

// ShowDetails is the raw per-series detail payload.
type ShowDetails struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	FirstAirDate string      `json:"first_air_date"`
	PosterPath   string      `json:"poster_path"`
	Overview     string      `json:"overview"`
	VoteAverage  float64     `json:"vote_average"`
	Seasons      []rawSeason `json:"seasons"`
	ExternalIDs  ExternalIDs `json:"external_ids"`
}

type rawSeason struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SeasonNumber int    `json:"season_number"`
}

type seasonResponse struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	SeasonNumber int          `json:"season_number"`
	Episodes     []rawEpisode `json:"episodes"`
}

type rawEpisode struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	EpisodeNumber int    `json:"episode_number"`
	AirDate       string `json:"air_date"`
}

type videosResponse struct {
	Results []video `json:"results"`
}

type video struct {
	Key  string `json:"key"`
	Type string `json:"type"`
}

type findResponse struct {
	MovieResults []SearchItem `json:"movie_results"`
}
