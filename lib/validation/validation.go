package validation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// ValidateQuery checks a search query: non-empty and short enough to pass
// through as a single URL parameter.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query must not be empty")
	}
	if len(query) > 500 {
		return fmt.Errorf("query too long: %d characters, maximum is 500", len(query))
	}
	return nil
}

// ValidatePeriod checks a trending period against the values the catalog
// accepts.
func ValidatePeriod(period string) error {
	switch period {
	case "day", "week":
		return nil
	}
	return fmt.Errorf("invalid period %q, expected day or week", period)
}

// ValidateSeasonNumber checks a season number. Season 0 is valid: the
// catalog uses it for specials.
func ValidateSeasonNumber(number int) error {
	if number < 0 {
		return fmt.Errorf("season number must not be negative")
	}
	return nil
}

// WriteError writes a JSON error response to the HTTP response writer.
func WriteError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	}); err != nil {
		slog.Error("Failed to encode error response", slog.Any("error", err))
	}
}
