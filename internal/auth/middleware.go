package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Middleware rejects unauthenticated API requests when the gate is enabled.
type Middleware struct {
	gate        *Gate
	sessions    *SessionManager
	publicPaths map[string]bool
}

// NewMiddleware creates the authentication middleware. Login, the session
// check, and the health endpoint stay reachable without a session.
func NewMiddleware(gate *Gate, sessions *SessionManager) *Middleware {
	return &Middleware{
		gate:     gate,
		sessions: sessions,
		publicPaths: map[string]bool{
			"/health":         true,
			"/api/auth/login": true,
			"/api/auth/check": true,
		},
	}
}

// Handler returns the Gin middleware. With the gate disabled every request
// passes through.
func (m *Middleware) Handler() gin.HandlerFunc {
	if !m.gate.Enabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if m.isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		if !m.sessions.IsAuthenticated(c.Request) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		c.Next()
	}
}

func (m *Middleware) isPublicPath(path string) bool {
	path = strings.TrimRight(path, "/")
	if path == "" {
		path = "/"
	}
	return m.publicPaths[path]
}
