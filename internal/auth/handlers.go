package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers exposes the login, logout, and session check endpoints.
type Handlers struct {
	gate     *Gate
	sessions *SessionManager
}

// NewHandlers creates the auth endpoint handlers.
func NewHandlers(gate *Gate, sessions *SessionManager) *Handlers {
	return &Handlers{gate: gate, sessions: sessions}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login exchanges the shared secret for a session cookie.
func (h *Handlers) Login(c *gin.Context) {
	if !h.gate.Enabled() {
		c.JSON(http.StatusOK, gin.H{"authenticated": true, "auth_enabled": false})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.gate.Verify(req.Password); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	if err := h.sessions.CreateSession(c.Request); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "auth_enabled": true})
}

// Logout destroys the session.
func (h *Handlers) Logout(c *gin.Context) {
	if h.gate.Enabled() {
		if err := h.sessions.DestroySession(c.Request); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to destroy session"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

// Check reports the current session state without requiring one.
func (h *Handlers) Check(c *gin.Context) {
	if !h.gate.Enabled() {
		c.JSON(http.StatusOK, gin.H{"authenticated": true, "auth_enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": h.sessions.IsAuthenticated(c.Request),
		"auth_enabled":  true,
	})
}
