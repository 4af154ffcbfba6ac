package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"booktracker/internal/database"
	"booktracker/internal/database/books"
	"booktracker/internal/entities"
)

func setupHTTPTestDB(t *testing.T) (*database.Database, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

// performJSON issues a request with a JSON body against the router.
func performJSON(t *testing.T, router *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	w := httptest.NewRecorder()
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// addTestBook seeds one library entry through the books repository.
func addTestBook(t *testing.T, repo *books.Repository, title string, status entities.Status, pageCount int) *entities.LibraryEntry {
	t.Helper()

	input := books.AddBookInput{
		Title:  title,
		Author: "Test Author",
		Status: status,
	}
	if pageCount > 0 {
		input.PageCount = &pageCount
	}
	entry, err := repo.AddBook(input)
	require.NoError(t, err)
	return entry
}
