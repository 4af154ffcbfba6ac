// Package entrypoint assembles the application: configuration, database,
// repositories, authentication, and the HTTP server with graceful shutdown.
package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"booktracker/internal/auth"
	"booktracker/internal/config"
	"booktracker/internal/database"
	"booktracker/internal/database/books"
	"booktracker/internal/database/paths"
	"booktracker/internal/database/reports"
	"booktracker/internal/database/sessions"
	"booktracker/internal/database/settings"
	"booktracker/internal/database/tags"
	"booktracker/internal/exporters"
	http_controllers "booktracker/internal/http"
	"booktracker/internal/importers"
	"booktracker/internal/metadata"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then drains it within the
// configured shutdown timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires the whole application together and serves it.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting BookTracker v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	bookRepo := books.NewRepository(db.DB)
	sessionRepo := sessions.NewRepository(db.DB)
	pathRepo := paths.NewRepository(db.DB)
	tagRepo := tags.NewRepository(db.DB)
	settingsRepo := settings.NewRepository(db.DB)
	reportRepo := reports.NewRepository(db.DB, pathRepo, settingsRepo)
	exporter := exporters.NewExporter(db.DB)

	openLibraryClient := metadata.NewOpenLibraryClient(
		metadata.WithTimeout(cfg.Enrichment.Timeout),
		metadata.WithRequestInterval(cfg.Enrichment.RequestInterval),
	)
	enricher := metadata.NewEnricher(openLibraryClient, bookRepo)

	gate, err := auth.NewGate(cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize authentication: %v", err)
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}
	authMiddleware := auth.NewMiddleware(gate, sessionManager)

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		BookStore:      bookRepo,
		SessionStore:   sessionRepo,
		PathStore:      pathRepo,
		TagStore:       tagRepo,
		SettingStore:   settingsRepo,
		ReportStore:    reportRepo,
		ExportStore:    exporter,
		Enricher:       enricher,
		Searcher:       openLibraryClient,
		Gate:           gate,
		SessionManager: sessionManager,
		AuthMiddleware: authMiddleware,
		AllowedOrigins: cfg.CORS.AllowOrigins,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	Serve(router, cfg, nil)
}

// RunGoodreadsImport loads a Goodreads library export into the database and
// prints a summary.
func RunGoodreadsImport(cfg *config.Config, csvPath string) {
	file, err := os.Open(csvPath)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", csvPath, err)
	}
	defer file.Close()

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	rows, parseErrors, err := importers.ParseGoodreadsCSV(file)
	if err != nil {
		log.Fatalf("Failed to parse %s: %v", csvPath, err)
	}
	for _, parseError := range parseErrors {
		log.Printf("Parse warning: %s", parseError)
	}

	result, err := importers.NewGoodreadsImporter(db.DB).Import(rows)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Printf("Import complete: %d imported, %d skipped, %d tags",
		result.BooksImported, result.Skipped, result.TagsCreated)
	for _, rowError := range result.Errors {
		log.Printf("  %s", rowError)
	}
}
