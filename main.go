package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mediadex/mediadex/handlers"
	"github.com/mediadex/mediadex/lib/account"
	"github.com/mediadex/mediadex/lib/bookmarks"
	"github.com/mediadex/mediadex/lib/db"
	"github.com/mediadex/mediadex/lib/health"
	"github.com/mediadex/mediadex/lib/lock"
	"github.com/mediadex/mediadex/lib/progress"
	"github.com/mediadex/mediadex/lib/recommend"
	"github.com/mediadex/mediadex/lib/tmdb"
)

const defaultAccountURL = "https://movie-web-accounts.vercel.app"

type App struct {
	db          *gorm.DB
	catalog     *tmdb.Client
	recommender *recommend.Recommender
	bookmarks   *bookmarks.Store
	progress    *progress.Store
	account     *account.Client
	router      *chi.Mux
	logger      *slog.Logger
}

func NewApp(logger *slog.Logger) (*App, error) {
	// Missing .env is fine in production, where config comes from the
	// real environment.
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", slog.Any("error", err))
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "mediadex.db"
	}

	gormDB, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: db.NewGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(gormDB, logger); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	apiKey := os.Getenv("TMDB_READ_API_KEY")
	if apiKey == "" {
		logger.Warn("TMDB_READ_API_KEY is not set, catalog calls will fail")
	}
	catalog := tmdb.NewClient(apiKey, logger)

	accountURL := os.Getenv("ACCOUNT_URL")
	if accountURL == "" {
		accountURL = defaultAccountURL
	}

	app := &App{
		db:          gormDB,
		catalog:     catalog,
		recommender: recommend.New(catalog, logger, nil),
		bookmarks:   bookmarks.NewStore(gormDB, logger),
		progress:    progress.NewStore(gormDB, logger),
		account:     account.NewClient(accountURL, lock.NewFileLock(logger), logger),
		router:      chi.NewRouter(),
		logger:      logger,
	}

	app.setupRoutes(apiKey != "")
	return app, nil
}

func (a *App) setupRoutes(catalogConfigured bool) {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)

	a.router.Get("/healthz", health.Check(a.db, catalogConfigured))

	a.router.Route("/api", func(r chi.Router) {
		r.Get("/search", handlers.HandleSearch(a.catalog))
		r.Get("/search/quick", handlers.HandleQuickSearch(a.catalog))
		r.Get("/trending/{period}", handlers.HandleTrending(a.catalog))

		r.Get("/media/{handle}", handlers.HandleMedia(a.catalog))
		r.Get("/media/{handle}/seasons/{number}", handlers.HandleSeason(a.catalog))
		r.Get("/media/{handle}/trailer", handlers.HandleTrailer(a.catalog))

		r.Get("/recommendations", handlers.HandleRecommendations(a.recommender, a.bookmarks, a.progress))

		r.Get("/bookmarks", handlers.HandleBookmarksList(a.bookmarks))
		r.Post("/bookmarks", handlers.HandleBookmarkAdd(a.bookmarks))
		r.Delete("/bookmarks/{handle}", handlers.HandleBookmarkDelete(a.bookmarks))

		r.Get("/progress", handlers.HandleProgressList(a.progress))
		r.Put("/progress/{handle}", handlers.HandleProgressUpsert(a.progress))
		r.Delete("/progress/{handle}", handlers.HandleProgressDelete(a.progress))

		r.Post("/sync/{userID}", handlers.HandleSync(a.account, a.progress))
		r.Get("/stats", handlers.HandleStats(a.db))
	})
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app, err := NewApp(logger)
	if err != nil {
		logger.Error("failed to start", slog.Any("error", err))
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", slog.String("port", port))
	if err := server.ListenAndServe(); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
