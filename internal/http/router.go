package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"booktracker/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Session must load before the auth middleware reads it.
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)

	if cfg.Gate != nil && cfg.SessionManager != nil {
		authHandlers := auth.NewHandlers(cfg.Gate, cfg.SessionManager)
		router.POST("/api/auth/login", authHandlers.Login)
		router.POST("/api/auth/logout", authHandlers.Logout)
		router.GET("/api/auth/check", authHandlers.Check)
	}

	booksController := NewBooksController(cfg.BookStore)
	router.GET("/api/books", booksController.ListBooks)
	router.POST("/api/books", booksController.CreateBook)
	router.GET("/api/books/:id", booksController.GetBook)
	router.PATCH("/api/books/:id", booksController.UpdateBook)
	router.DELETE("/api/books/:id", booksController.DeleteBook)

	sessionsController := NewSessionsController(cfg.SessionStore)
	router.GET("/api/books/:id/sessions", sessionsController.ListSessions)
	router.POST("/api/books/:id/sessions", sessionsController.RecordSession)
	router.PATCH("/api/books/:id/sessions/:sessionId", sessionsController.UpdateSession)
	router.DELETE("/api/books/:id/sessions/:sessionId", sessionsController.DeleteSession)

	tagsController := NewTagsController(cfg.TagStore)
	router.GET("/api/tags", tagsController.ListTags)
	router.DELETE("/api/tags/:id", tagsController.DeleteTag)
	router.POST("/api/books/:id/tags", tagsController.AddTagToBook)
	router.PUT("/api/books/:id/tags", tagsController.SetBookTags)
	router.DELETE("/api/books/:id/tags/:tagId", tagsController.RemoveTagFromBook)

	pathsController := NewPathsController(cfg.PathStore)
	router.GET("/api/paths", pathsController.ListPaths)
	router.POST("/api/paths", pathsController.CreatePath)
	router.GET("/api/paths/:id", pathsController.GetPath)
	router.PATCH("/api/paths/:id", pathsController.UpdatePath)
	router.DELETE("/api/paths/:id", pathsController.DeletePath)
	router.GET("/api/paths/:id/books", pathsController.ListPathBooks)
	router.POST("/api/paths/:id/books", pathsController.AddBookToPath)
	router.DELETE("/api/paths/:id/books/:userBookId", pathsController.RemoveBookFromPath)
	router.PATCH("/api/paths/:id/books/reorder", pathsController.ReorderPath)

	settingsController := NewSettingsController(cfg.SettingStore)
	router.GET("/api/settings", settingsController.GetSettings)
	router.PATCH("/api/settings", settingsController.UpdateSettings)

	reportsController := NewReportsController(cfg.ReportStore)
	router.GET("/api/dashboard", reportsController.GetDashboard)
	router.GET("/api/pipeline", reportsController.GetPipeline)
	router.GET("/api/stats", reportsController.GetStats)

	if cfg.Enricher != nil && cfg.Searcher != nil {
		metadataController := NewMetadataController(cfg.Enricher, cfg.Searcher)
		router.POST("/api/books/:id/enrich", metadataController.EnrichBook)
		router.POST("/api/books/enrich-all", metadataController.EnrichAllMissing)
		router.GET("/api/search/openlibrary", metadataController.SearchOpenLibrary)
	}

	exportController := NewExportController(cfg.ExportStore)
	router.GET("/api/export", exportController.ExportJSON)
	router.GET("/api/export/csv", exportController.ExportCSV)

	return router
}
