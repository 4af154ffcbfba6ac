// Package metadata fetches book metadata and cover art from the Open
// Library search API and writes enrichment results back to the catalog.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"booktracker/internal/apperr"
)

// searchFields is the explicit field list requested from search.json. Asking
// for everything makes responses an order of magnitude larger.
const searchFields = "key,title,author_name,first_publish_year,number_of_pages_median," +
	"publisher,subject,isbn,cover_i,cover_edition_key"

// Lookup is the best-match record extracted from an Open Library search.
type Lookup struct {
	Title            string   `json:"title"`
	Authors          []string `json:"authors"`
	FirstPublishYear int      `json:"first_publish_year,omitempty"`
	PageCount        int      `json:"page_count,omitempty"`
	Publishers       []string `json:"publishers,omitempty"`
	Subjects         []string `json:"subjects,omitempty"`
	CoverURL         string   `json:"cover_url,omitempty"`
	CoverURLMedium   string   `json:"cover_url_medium,omitempty"`
	ISBN             string   `json:"isbn,omitempty"`
	ISBN13           string   `json:"isbn13,omitempty"`
	OpenLibraryKey   string   `json:"open_library_key,omitempty"`
}

// OpenLibraryClient queries the Open Library search API.
type OpenLibraryClient struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	since := time.Since(r.lastCall)
	if since < r.interval {
		time.Sleep(r.interval - since)
	}
	r.lastCall = time.Now()
}

// ClientOption customizes the client.
type ClientOption func(*OpenLibraryClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *OpenLibraryClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *OpenLibraryClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithRequestInterval overrides the minimum spacing between requests.
func WithRequestInterval(interval time.Duration) ClientOption {
	return func(c *OpenLibraryClient) {
		c.rateLimiter = newRateLimiter(interval)
	}
}

// NewOpenLibraryClient creates a new Open Library API client, rate-limited
// to one request per second per the API guidelines.
func NewOpenLibraryClient(opts ...ClientOption) *OpenLibraryClient {
	c := &OpenLibraryClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     "https://openlibrary.org",
		rateLimiter: newRateLimiter(time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchByISBN looks up a book by its ISBN.
func (c *OpenLibraryClient) SearchByISBN(ctx context.Context, isbn string) (*Lookup, error) {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return nil, apperr.Validation("invalid ISBN")
	}
	return c.search(ctx, "isbn:"+isbn)
}

// SearchByTitle looks up a book by free-text title and optional author.
func (c *OpenLibraryClient) SearchByTitle(ctx context.Context, title, author string) (*Lookup, error) {
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	q := title
	if author != "" {
		q = title + " " + author
	}
	return c.search(ctx, q)
}

// Search runs a raw free-text query and returns up to limit extracted
// records, used by the search proxy endpoint.
func (c *OpenLibraryClient) Search(ctx context.Context, query string, limit int) ([]Lookup, error) {
	if query == "" {
		return nil, apperr.Validation("query is required")
	}
	if limit < 1 {
		limit = 10
	}

	result, err := c.doSearch(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	lookups := make([]Lookup, 0, len(result.Docs))
	for i := range result.Docs {
		lookups = append(lookups, *docToLookup(&result.Docs[i]))
	}
	return lookups, nil
}

// search returns the single best match for a query, or nil when the query
// has no hits.
func (c *OpenLibraryClient) search(ctx context.Context, query string) (*Lookup, error) {
	result, err := c.doSearch(ctx, query, 5)
	if err != nil {
		return nil, err
	}
	if len(result.Docs) == 0 {
		return nil, nil
	}
	return docToLookup(&result.Docs[0]), nil
}

func (c *OpenLibraryClient) doSearch(ctx context.Context, query string, limit int) (*openLibrarySearchResult, error) {
	c.rateLimiter.wait()

	params := url.Values{}
	params.Set("q", query)
	params.Set("fields", searchFields)
	params.Set("limit", fmt.Sprintf("%d", limit))

	searchURL := fmt.Sprintf("%s/search.json?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "BookTracker/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", apperr.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var result openLibrarySearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", apperr.ErrUpstreamUnavailable, err)
	}
	return &result, nil
}

func docToLookup(doc *openLibrarySearchDoc) *Lookup {
	lookup := &Lookup{
		Title:            doc.Title,
		Authors:          doc.AuthorName,
		FirstPublishYear: doc.FirstPublishYear,
		PageCount:        doc.NumberOfPagesMedian,
		OpenLibraryKey:   doc.Key,
	}

	if len(doc.Publisher) > 0 {
		lookup.Publishers = doc.Publisher
		if len(lookup.Publishers) > 3 {
			lookup.Publishers = lookup.Publishers[:3]
		}
	}
	if len(doc.Subject) > 0 {
		lookup.Subjects = doc.Subject
		if len(lookup.Subjects) > 10 {
			lookup.Subjects = lookup.Subjects[:10]
		}
	}

	lookup.ISBN, lookup.ISBN13 = pickISBNs(doc.ISBN)

	if doc.CoverI != 0 {
		lookup.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", doc.CoverI)
		lookup.CoverURLMedium = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", doc.CoverI)
	}

	return lookup
}

// pickISBNs splits a doc's ISBN list into a 10 and a 13 digit pick, sorted
// so the choice is deterministic across responses.
func pickISBNs(isbns []string) (isbn10, isbn13 string) {
	sorted := make([]string, len(isbns))
	copy(sorted, isbns)
	sort.Strings(sorted)
	for _, raw := range sorted {
		isbn := normalizeISBN(raw)
		switch len(isbn) {
		case 10:
			if isbn10 == "" {
				isbn10 = isbn
			}
		case 13:
			if isbn13 == "" {
				isbn13 = isbn
			}
		}
	}
	return isbn10, isbn13
}

// normalizeISBN removes hyphens and spaces from an ISBN.
func normalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}
	return isbn
}

type openLibrarySearchResult struct {
	NumFound int                    `json:"numFound"`
	Docs     []openLibrarySearchDoc `json:"docs"`
}

type openLibrarySearchDoc struct {
	Key                 string   `json:"key"`
	Title               string   `json:"title"`
	AuthorName          []string `json:"author_name"`
	FirstPublishYear    int      `json:"first_publish_year"`
	NumberOfPagesMedian int      `json:"number_of_pages_median"`
	Publisher           []string `json:"publisher"`
	Subject             []string `json:"subject"`
	ISBN                []string `json:"isbn"`
	CoverI              int      `json:"cover_i"`
	CoverEditionKey     string   `json:"cover_edition_key"`
}
