package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booktracker/internal/database/sessions"
	"booktracker/internal/entities"
)

// SessionStore is the check-in ledger surface the sessions controller needs.
type SessionStore interface {
	ListForBook(bookID uint) ([]entities.ReadingSession, error)
	RecordCheckIn(bookID uint, input sessions.CheckInInput) (*sessions.CheckInResult, error)
	UpdateCheckIn(bookID uint, sessionID uint, patch sessions.CheckInPatch) (*sessions.CheckInResult, error)
	DeleteCheckIn(bookID uint, sessionID uint) (*entities.LibraryEntry, error)
}

type SessionsController struct {
	store SessionStore
}

func NewSessionsController(store SessionStore) *SessionsController {
	return &SessionsController{store: store}
}

// ListSessions returns a book's check-ins, most recent first.
func (controller *SessionsController) ListSessions(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	list, err := controller.store.ListForBook(bookID)
	if err != nil {
		respondStoreError(c, err, "list sessions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list, "count": len(list)})
}

// RecordSession appends a check-in and returns the updated entry.
func (controller *SessionsController) RecordSession(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input sessions.CheckInInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	result, err := controller.store.RecordCheckIn(bookID, input)
	if err != nil {
		respondStoreError(c, err, "record check-in")
		return
	}
	respondCreated(c, result)
}

// UpdateSession edits a check-in and reconciles the entry against the ledger.
func (controller *SessionsController) UpdateSession(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(c, "sessionId")
	if !ok {
		return
	}

	var patch sessions.CheckInPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	result, err := controller.store.UpdateCheckIn(bookID, sessionID, patch)
	if err != nil {
		respondStoreError(c, err, "update check-in")
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteSession removes a check-in and reconciles the entry.
func (controller *SessionsController) DeleteSession(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(c, "sessionId")
	if !ok {
		return
	}

	entry, err := controller.store.DeleteCheckIn(bookID, sessionID)
	if err != nil {
		respondStoreError(c, err, "delete check-in")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session deleted", "book": entry})
}

var _ SessionStore = (*sessions.Repository)(nil)
