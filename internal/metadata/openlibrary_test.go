package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booktracker/internal/apperr"
)

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"978-0-13-468599-1", "9780134685991"},
		{"0-13-468599-6", "0134685996"},
		{"978 0 13 468599 1", "9780134685991"},
		{"9780134685991", "9780134685991"},
		{"0134685996", "0134685996"},
		{"123", ""},            // Too short
		{"12345678901234", ""}, // Too long
		{"", ""},
		{"  978-0-13-468599-1  ", "9780134685991"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeISBN(tt.input))
		})
	}
}

func TestPickISBNs(t *testing.T) {
	isbn10, isbn13 := pickISBNs([]string{"9780441172719", "0441172717", "9780441172726"})
	assert.Equal(t, "0441172717", isbn10)
	assert.Equal(t, "9780441172719", isbn13)

	isbn10, isbn13 = pickISBNs(nil)
	assert.Empty(t, isbn10)
	assert.Empty(t, isbn13)
}

func newTestClient(baseURL string) *OpenLibraryClient {
	return NewOpenLibraryClient(
		WithBaseURL(baseURL),
		WithTimeout(5*time.Second),
		WithRequestInterval(0),
	)
}

const searchResponse = `{
	"numFound": 1,
	"docs": [{
		"key": "/works/OL893415W",
		"title": "Dune",
		"author_name": ["Frank Herbert"],
		"first_publish_year": 1965,
		"number_of_pages_median": 412,
		"publisher": ["Ace Books", "Chilton", "Hodder", "Gollancz"],
		"subject": ["Science fiction", "Deserts", "Politics", "Ecology"],
		"isbn": ["9780441172719", "0441172717"],
		"cover_i": 11481354
	}]
}`

func TestSearchByISBN(t *testing.T) {
	var gotQuery, gotFields string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search.json", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		gotFields = r.URL.Query().Get("fields")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchResponse))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	lookup, err := client.SearchByISBN(context.Background(), "978-0-441-17271-9")
	require.NoError(t, err)
	require.NotNil(t, lookup)

	assert.Equal(t, "isbn:9780441172719", gotQuery)
	assert.Contains(t, gotFields, "number_of_pages_median")

	assert.Equal(t, "Dune", lookup.Title)
	assert.Equal(t, []string{"Frank Herbert"}, lookup.Authors)
	assert.Equal(t, 1965, lookup.FirstPublishYear)
	assert.Equal(t, 412, lookup.PageCount)
	assert.Equal(t, []string{"Ace Books", "Chilton", "Hodder"}, lookup.Publishers)
	assert.Equal(t, "0441172717", lookup.ISBN)
	assert.Equal(t, "9780441172719", lookup.ISBN13)
	assert.Equal(t, "/works/OL893415W", lookup.OpenLibraryKey)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/11481354-L.jpg", lookup.CoverURL)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/11481354-M.jpg", lookup.CoverURLMedium)
}

func TestSearchByISBN_InvalidISBN(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")
	_, err := client.SearchByISBN(context.Background(), "123")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSearchByTitle_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"numFound": 0, "docs": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	lookup, err := client.SearchByTitle(context.Background(), "Nonexistent Book", "")
	require.NoError(t, err)
	assert.Nil(t, lookup)
}

func TestSearchByTitle_IncludesAuthorInQuery(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchResponse))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SearchByTitle(context.Background(), "Dune", "Frank Herbert")
	require.NoError(t, err)
	assert.Equal(t, "Dune Frank Herbert", gotQuery)
}

func TestSearch_UpstreamErrorsAreWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SearchByTitle(context.Background(), "Dune", "")
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)

	// Connection refused is the same class of failure
	server.Close()
	_, err = client.SearchByTitle(context.Background(), "Dune", "")
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}

func TestSearch_ReturnsMultipleDocs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"numFound": 2,
			"docs": [
				{"key": "/works/OL1W", "title": "First"},
				{"key": "/works/OL2W", "title": "Second"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	lookups, err := client.Search(context.Background(), "anything", 10)
	require.NoError(t, err)
	require.Len(t, lookups, 2)
	assert.Equal(t, "First", lookups[0].Title)
	assert.Equal(t, "Second", lookups[1].Title)
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")
	_, err := client.Search(context.Background(), "", 10)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
