// Package mediaid encodes and decodes the stable identifier persisted in
// bookmarks, progress entries and navigable links. A handle looks like
// "tmdb-tv-42-example-show": prefix, kind token, catalog id and a readable
// slug. Only the kind and catalog id segments carry identity; the slug is
// cosmetic and never compared.
package mediaid

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"

	"github.com/mediadex/mediadex/models"
)

const prefix = "tmdb"

// Ref is the identifying pair recovered from a decoded handle.
type Ref struct {
	Kind models.MediaKind
	ID   string
}

func kindToken(kind models.MediaKind) string {
	switch kind {
	case models.Movie:
		return "movie"
	case models.Series:
		return "tv"
	}
	panic(fmt.Sprintf("mediaid: unsupported media kind %q", kind))
}

func tokenKind(token string) (models.MediaKind, bool) {
	switch token {
	case "movie":
		return models.Movie, true
	case "tv":
		return models.Series, true
	}
	return "", false
}

// Encode builds a handle from a media kind, its catalog id and a title.
// Encoding is deterministic; the title only affects the trailing slug.
// An unknown kind is a caller bug and panics.
func Encode(kind models.MediaKind, id, title string) string {
	return strings.Join([]string{prefix, kindToken(kind), id, slug.Make(title)}, "-")
}

// Decode parses a handle back into its identifying kind and catalog id.
// The second return value is false for anything this system did not
// produce: wrong prefix, unknown kind token or missing segments. Decode
// never panics on foreign input.
func Decode(handle string) (Ref, bool) {
	parts := strings.SplitN(handle, "-", 4)
	if len(parts) < 3 || parts[0] != prefix {
		return Ref{}, false
	}
	kind, ok := tokenKind(parts[1])
	if !ok {
		return Ref{}, false
	}
	if parts[2] == "" {
		return Ref{}, false
	}
	return Ref{Kind: kind, ID: parts[2]}, true
}
