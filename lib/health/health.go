package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"gorm.io/gorm"
)

// Health represents the health check response structure. It reports the
// overall status plus the state of the local store and whether the catalog
// credential is configured.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	DB        struct {
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
	} `json:"db"`
	Catalog struct {
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
	} `json:"catalog"`
}

// Check returns an HTTP handler that verifies the database connection and
// the catalog configuration and reports the result as JSON.
func Check(db *gorm.DB, catalogConfigured bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := Health{
			Status:    "ok",
			Timestamp: time.Now(),
		}

		if catalogConfigured {
			health.Catalog.Status = "ok"
		} else {
			health.Status = "degraded"
			health.Catalog.Status = "error"
			health.Catalog.Message = "Catalog API credential not configured"
		}

		sqlDB, err := db.DB()
		if err != nil {
			health.Status = "degraded"
			health.DB.Status = "error"
			health.DB.Message = "Failed to get database connection"
			writeHealth(w, health, http.StatusServiceUnavailable)
			return
		}

		if err := sqlDB.PingContext(ctx); err != nil {
			health.Status = "degraded"
			health.DB.Status = "error"
			health.DB.Message = "Database ping failed"
			writeHealth(w, health, http.StatusServiceUnavailable)
			return
		}

		health.DB.Status = "ok"
		status := http.StatusOK
		if health.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeHealth(w, health, status)
	}
}

func writeHealth(w http.ResponseWriter, health Health, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		slog.Error("Failed to encode health response", slog.Any("error", err))
	}
}
