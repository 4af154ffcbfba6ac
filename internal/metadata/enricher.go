package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"

	"booktracker/internal/apperr"
	"booktracker/internal/entities"
)

// enrichBatchSize caps how many books one enrich-all request processes. The
// sweep is synchronous; clients call again for the next batch.
const enrichBatchSize = 50

// MetadataProvider defines the interface for fetching book metadata.
type MetadataProvider interface {
	SearchByISBN(ctx context.Context, isbn string) (*Lookup, error)
	SearchByTitle(ctx context.Context, title, author string) (*Lookup, error)
}

// CatalogStore defines the catalog operations enrichment needs.
type CatalogStore interface {
	GetCatalogBook(bookID uint) (*entities.Book, error)
	UpdateCatalogMetadata(bookID uint, openLibraryKey, coverURL string) error
	CatalogBooksMissingCovers(limit int) ([]entities.Book, error)
	CountCatalogBooksMissingCovers() (int64, error)
}

// EnrichmentResult is the outcome of enriching one book.
type EnrichmentResult struct {
	Book         *entities.Book `json:"book"`
	Found        bool           `json:"found"`
	SearchMethod string         `json:"search_method,omitempty"`
}

// BulkEnrichmentResult summarizes one enrich-all batch.
type BulkEnrichmentResult struct {
	Enriched  int   `json:"enriched"`
	Failed    int   `json:"failed"`
	Remaining int64 `json:"remaining"`
}

// Enricher looks up catalog books on Open Library and writes the resolved
// key and cover URL back.
type Enricher struct {
	provider MetadataProvider
	catalog  CatalogStore
}

// NewEnricher creates a new Enricher.
func NewEnricher(provider MetadataProvider, catalog CatalogStore) *Enricher {
	return &Enricher{provider: provider, catalog: catalog}
}

// EnrichBook resolves one catalog book against Open Library and stores the
// open library key and cover URL. Lookup order is ISBN-13, then ISBN-10,
// then free-text title+author; the first hit wins. A failing or unreachable
// upstream is treated as no match, never as a hard error.
func (e *Enricher) EnrichBook(ctx context.Context, bookID uint) (*EnrichmentResult, error) {
	book, err := e.catalog.GetCatalogBook(bookID)
	if err != nil {
		return nil, err
	}

	lookup, method := e.resolve(ctx, book)
	if lookup == nil {
		return &EnrichmentResult{Book: book, Found: false}, nil
	}

	coverURL := lookup.CoverURL
	if coverURL == "" {
		coverURL = book.CoverImageURL
	}
	if err := e.catalog.UpdateCatalogMetadata(bookID, lookup.OpenLibraryKey, coverURL); err != nil {
		return nil, err
	}

	book, err = e.catalog.GetCatalogBook(bookID)
	if err != nil {
		return nil, err
	}
	return &EnrichmentResult{Book: book, Found: true, SearchMethod: method}, nil
}

func (e *Enricher) resolve(ctx context.Context, book *entities.Book) (*Lookup, string) {
	type attempt struct {
		method string
		run    func() (*Lookup, error)
	}
	attempts := []attempt{
		{"isbn13", func() (*Lookup, error) {
			if book.ISBN13 == "" {
				return nil, nil
			}
			return e.provider.SearchByISBN(ctx, book.ISBN13)
		}},
		{"isbn", func() (*Lookup, error) {
			if book.ISBN == "" {
				return nil, nil
			}
			return e.provider.SearchByISBN(ctx, book.ISBN)
		}},
		{"title", func() (*Lookup, error) {
			return e.provider.SearchByTitle(ctx, book.Title, book.Author)
		}},
	}

	for _, a := range attempts {
		lookup, err := a.run()
		if errors.Is(err, apperr.ErrUpstreamUnavailable) {
			log.Printf("openlibrary lookup failed for %q (%s): %v", book.Title, a.method, err)
			continue
		}
		if err != nil {
			continue
		}
		if lookup != nil {
			return lookup, a.method
		}
	}
	return nil, ""
}

// EnrichAllMissing sweeps one batch of catalog books without enriched covers
// and reports how many remain after the batch.
func (e *Enricher) EnrichAllMissing(ctx context.Context) (*BulkEnrichmentResult, error) {
	books, err := e.catalog.CatalogBooksMissingCovers(enrichBatchSize)
	if err != nil {
		return nil, fmt.Errorf("list books missing covers: %w", err)
	}

	result := &BulkEnrichmentResult{}
	for _, book := range books {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		enriched, err := e.EnrichBook(ctx, book.ID)
		if err != nil || !enriched.Found {
			result.Failed++
			continue
		}
		result.Enriched++
	}

	remaining, err := e.catalog.CountCatalogBooksMissingCovers()
	if err != nil {
		return nil, fmt.Errorf("count books missing covers: %w", err)
	}
	result.Remaining = remaining
	return result, nil
}
