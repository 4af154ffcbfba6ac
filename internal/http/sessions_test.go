package http

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booktracker/internal/database"
	"booktracker/internal/database/books"
	"booktracker/internal/database/sessions"
	"booktracker/internal/entities"
)

func newSessionsRouter(db *database.Database) (*gin.Engine, *books.Repository) {
	bookRepo := books.NewRepository(db.DB)
	controller := NewSessionsController(sessions.NewRepository(db.DB))

	router := gin.New()
	router.GET("/api/books/:id/sessions", controller.ListSessions)
	router.POST("/api/books/:id/sessions", controller.RecordSession)
	router.PATCH("/api/books/:id/sessions/:sessionId", controller.UpdateSession)
	router.DELETE("/api/books/:id/sessions/:sessionId", controller.DeleteSession)
	return router, bookRepo
}

func TestSessionsController_RecordSession(t *testing.T) {
	t.Run("advances the book position", func(t *testing.T) {
		db, cleanup := setupHTTPTestDB(t)
		defer cleanup()
		router, bookRepo := newSessionsRouter(db)

		entry := addTestBook(t, bookRepo, "Ledger Book", entities.StatusReading, 200)

		w := performJSON(t, router, "POST", fmt.Sprintf("/api/books/%d/sessions", entry.BookID), gin.H{
			"pages_read": 40,
			"notes":      "first sitting",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var result sessions.CheckInResult
		decodeBody(t, w, &result)
		assert.Equal(t, 1, result.StartPage)
		assert.Equal(t, 40, result.EndPage)
		assert.Equal(t, 40, result.Entry.CurrentPage)
		assert.Equal(t, 20, result.Entry.ProgressPercent)
	})

	t.Run("rejects non-positive pages", func(t *testing.T) {
		db, cleanup := setupHTTPTestDB(t)
		defer cleanup()
		router, bookRepo := newSessionsRouter(db)

		entry := addTestBook(t, bookRepo, "Zero Pages", entities.StatusReading, 200)

		w := performJSON(t, router, "POST", fmt.Sprintf("/api/books/%d/sessions", entry.BookID), gin.H{
			"pages_read": 0,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing book is a 404", func(t *testing.T) {
		db, cleanup := setupHTTPTestDB(t)
		defer cleanup()
		router, _ := newSessionsRouter(db)

		w := performJSON(t, router, "POST", "/api/books/9999/sessions", gin.H{"pages_read": 10})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("reaching the last page finishes the book", func(t *testing.T) {
		db, cleanup := setupHTTPTestDB(t)
		defer cleanup()
		router, bookRepo := newSessionsRouter(db)

		entry := addTestBook(t, bookRepo, "Short Book", entities.StatusReading, 50)

		w := performJSON(t, router, "POST", fmt.Sprintf("/api/books/%d/sessions", entry.BookID), gin.H{
			"pages_read": 50,
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var result sessions.CheckInResult
		decodeBody(t, w, &result)
		assert.Equal(t, entities.StatusFinished, result.Entry.Status)
		assert.Equal(t, 100, result.Entry.ProgressPercent)
		assert.NotNil(t, result.Entry.FinishedReadingAt)
	})
}

func TestSessionsController_ListSessions(t *testing.T) {
	db, cleanup := setupHTTPTestDB(t)
	defer cleanup()
	router, bookRepo := newSessionsRouter(db)

	entry := addTestBook(t, bookRepo, "Listed Book", entities.StatusReading, 300)
	for _, pages := range []int{10, 20} {
		w := performJSON(t, router, "POST", fmt.Sprintf("/api/books/%d/sessions", entry.BookID), gin.H{
			"pages_read": pages,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := performJSON(t, router, "GET", fmt.Sprintf("/api/books/%d/sessions", entry.BookID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Sessions []entities.ReadingSession `json:"sessions"`
		Count    int                       `json:"count"`
	}
	decodeBody(t, w, &body)
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Sessions, 2)
}

func TestSessionsController_UpdateSession(t *testing.T) {
	db, cleanup := setupHTTPTestDB(t)
	defer cleanup()
	router, bookRepo := newSessionsRouter(db)

	entry := addTestBook(t, bookRepo, "Edited Book", entities.StatusReading, 200)

	w := performJSON(t, router, "POST", fmt.Sprintf("/api/books/%d/sessions", entry.BookID), gin.H{
		"pages_read": 40,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created sessions.CheckInResult
	decodeBody(t, w, &created)

	w = performJSON(t, router, "PATCH",
		fmt.Sprintf("/api/books/%d/sessions/%d", entry.BookID, created.Session.ID),
		gin.H{"pages_read": 100})
	require.Equal(t, http.StatusOK, w.Code)

	var updated sessions.CheckInResult
	decodeBody(t, w, &updated)
	assert.Equal(t, 100, updated.Entry.CurrentPage)
	assert.Equal(t, 50, updated.Entry.ProgressPercent)
}

func TestSessionsController_DeleteSession(t *testing.T) {
	t.Run("removing a check-in rolls the position back", func(t *testing.T) {
		db, cleanup := setupHTTPTestDB(t)
		defer cleanup()
		router, bookRepo := newSessionsRouter(db)

		entry := addTestBook(t, bookRepo, "Rolled Back", entities.StatusReading, 200)

		w := performJSON(t, router, "POST", fmt.Sprintf("/api/books/%d/sessions", entry.BookID), gin.H{
			"pages_read": 40,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		var created sessions.CheckInResult
		decodeBody(t, w, &created)

		w = performJSON(t, router, "DELETE",
			fmt.Sprintf("/api/books/%d/sessions/%d", entry.BookID, created.Session.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Book entities.LibraryEntry `json:"book"`
		}
		decodeBody(t, w, &body)
		assert.Equal(t, 0, body.Book.CurrentPage)
	})

	t.Run("unknown session is a 404", func(t *testing.T) {
		db, cleanup := setupHTTPTestDB(t)
		defer cleanup()
		router, bookRepo := newSessionsRouter(db)

		entry := addTestBook(t, bookRepo, "No Session", entities.StatusReading, 200)

		w := performJSON(t, router, "DELETE",
			fmt.Sprintf("/api/books/%d/sessions/9999", entry.BookID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
