package http

import (
	"booktracker/internal/auth"
	"booktracker/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces the long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database

	// Domain stores
	BookStore    BookStore
	SessionStore SessionStore
	PathStore    PathStore
	TagStore     TagStore
	SettingStore SettingsStore
	ReportStore  ReportStore
	ExportStore  ExportStore

	// Open Library integration (optional)
	Enricher Enricher
	Searcher Searcher

	// Authentication
	Gate           *auth.Gate
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware

	// CORS
	AllowedOrigins []string

	// Application info
	Version string
}
