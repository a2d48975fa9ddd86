// Package tmdb is the single choke point for all outbound catalog queries.
// Every request goes to the primary endpoint with a short timeout first and
// on any failure is retried once against the fallback endpoint with a longer
// timeout. There is no retry beyond that single fallback.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mediadex/mediadex/lib/mediaid"
	"github.com/mediadex/mediadex/models"
)

const (
	primaryBaseURL  = "https://api.themoviedb.org/3"
	fallbackBaseURL = "https://api.tmdb.org/3"

	primaryTimeout  = 5 * time.Second
	fallbackTimeout = 30 * time.Second
)

// ErrNoAPIKey is returned before any network attempt when the client was
// built without a read credential.
var ErrNoAPIKey = errors.New("tmdb: read API key not set")

type Client struct {
	apiKey      string
	primaryURL  string
	fallbackURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURLs overrides the primary and fallback endpoints, mainly for
// tests against a local fake.
func WithBaseURLs(primary, fallback string) Option {
	return func(c *Client) {
		c.primaryURL = primary
		c.fallbackURL = fallback
	}
}

func NewClient(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		primaryURL:  primaryBaseURL,
		fallbackURL: fallbackBaseURL,
		httpClient:  &http.Client{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get runs one catalog query with the two-attempt failover policy. Both
// attempts carry identical headers and query parameters; only the host and
// the timeout differ.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	err := c.attempt(ctx, c.primaryURL, primaryTimeout, path, params, out)
	if err == nil {
		return nil
	}
	c.logger.Warn("primary catalog endpoint failed, trying fallback",
		slog.String("path", path),
		slog.Any("error", err))

	if err := c.attempt(ctx, c.fallbackURL, fallbackTimeout, path, params, out); err != nil {
		return fmt.Errorf("catalog request %s failed on both endpoints: %w", path, err)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, baseURL string, timeout time.Duration, path string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := baseURL + "/" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", slog.Any("error", err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, baseURL)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// pageParams returns the query parameters forced on every paginated listing.
// Only page 1 is ever fetched.
func pageParams() url.Values {
	return url.Values{
		"language": {"en-US"},
		"page":     {"1"},
	}
}

// kindPath maps a media kind onto the catalog's URL segment. Any other kind
// is a caller bug.
func kindPath(kind models.MediaKind) string {
	switch kind {
	case models.Movie:
		return "movie"
	case models.Series:
		return "tv"
	}
	panic(fmt.Sprintf("tmdb: unsupported media kind %q", kind))
}

// filterKnown drops raw entries whose media type is neither movie nor tv,
// such as the "person" results a multi-type search can return.
func filterKnown(items []SearchItem) []SearchItem {
	out := make([]SearchItem, 0, len(items))
	for _, item := range items {
		if item.MediaType == MediaTypeMovie || item.MediaType == MediaTypeTV {
			out = append(out, item)
		}
	}
	return out
}

// MultiSearch queries the multi-type search endpoint and returns the raw
// movie and tv hits.
func (c *Client) MultiSearch(ctx context.Context, query string) ([]SearchItem, error) {
	params := pageParams()
	params.Set("query", query)
	params.Set("include_adult", "false")

	var data searchResponse
	if err := c.get(ctx, "search/multi", params, &data); err != nil {
		return nil, err
	}
	return filterKnown(data.Results), nil
}

// Trending returns the raw trending list for a period ("day" or "week").
func (c *Client) Trending(ctx context.Context, period string) ([]SearchItem, error) {
	var data searchResponse
	if err := c.get(ctx, "trending/all/"+url.PathEscape(period), pageParams(), &data); err != nil {
		return nil, err
	}
	return filterKnown(data.Results), nil
}

// Related returns the raw recommendations list for one catalog entry.
func (c *Client) Related(ctx context.Context, kind models.MediaKind, id string) ([]SearchItem, error) {
	path := kindPath(kind) + "/" + url.PathEscape(id) + "/recommendations"
	var data searchResponse
	if err := c.get(ctx, path, pageParams(), &data); err != nil {
		return nil, err
	}
	return filterKnown(data.Results), nil
}

// MovieDetails fetches a movie's full detail record, with the external id
// cross-references appended so no second round trip is needed.
func (c *Client) MovieDetails(ctx context.Context, id string) (*MovieDetails, error) {
	params := url.Values{"append_to_response": {"external_ids"}}
	var data MovieDetails
	if err := c.get(ctx, "movie/"+url.PathEscape(id), params, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ShowDetails fetches a series' full detail record, external ids included.
func (c *Client) ShowDetails(ctx context.Context, id string) (*ShowDetails, error) {
	params := url.Values{"append_to_response": {"external_ids"}}
	var data ShowDetails
	if err := c.get(ctx, "tv/"+url.PathEscape(id), params, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Season fetches one season of a series with its episodes sorted ascending
// by episode number.
func (c *Client) Season(ctx context.Context, id string, number int) (*models.SeasonDetail, error) {
	path := "tv/" + url.PathEscape(id) + "/season/" + strconv.Itoa(number)
	var data seasonResponse
	if err := c.get(ctx, path, nil, &data); err != nil {
		return nil, err
	}
	detail := FormatSeason(data)
	return &detail, nil
}

// Trailer returns the key of the first video whose declared type is
// "Trailer", or the empty string when none exists. An empty result is not
// an error.
func (c *Client) Trailer(ctx context.Context, kind models.MediaKind, id string) (string, error) {
	path := kindPath(kind) + "/" + url.PathEscape(id) + "/videos"
	var data videosResponse
	if err := c.get(ctx, path, nil, &data); err != nil {
		return "", err
	}
	for _, v := range data.Results {
		if v.Type == "Trailer" {
			return v.Key, nil
		}
	}
	return "", nil
}

// FindByIMDBID reverse-looks-up a movie's catalog id from an IMDB id. The
// empty string means no match, which is not an error.
func (c *Client) FindByIMDBID(ctx context.Context, imdbID string) (string, error) {
	params := url.Values{"external_source": {"imdb_id"}}
	var data findResponse
	if err := c.get(ctx, "find/"+url.PathEscape(imdbID), params, &data); err != nil {
		return "", err
	}
	if len(data.MovieResults) == 0 {
		return "", nil
	}
	return strconv.FormatInt(data.MovieResults[0].ID, 10), nil
}

// QuickSearchHandle runs a multi search and returns the handle of the first
// hit, or the empty string when the search came back empty.
func (c *Client) QuickSearchHandle(ctx context.Context, query string) (string, error) {
	items, err := c.MultiSearch(ctx, query)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", nil
	}
	first := items[0]
	title := first.Title
	if first.MediaType == MediaTypeTV {
		title = first.Name
	}
	return mediaid.Encode(kindFor(first.MediaType), strconv.FormatInt(first.ID, 10), title), nil
}
