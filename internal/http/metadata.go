package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"booktracker/internal/metadata"
)

// Enricher is the enrichment surface the metadata controller needs.
type Enricher interface {
	EnrichBook(ctx context.Context, bookID uint) (*metadata.EnrichmentResult, error)
	EnrichAllMissing(ctx context.Context) (*metadata.BulkEnrichmentResult, error)
}

// Searcher proxies free-text lookups to Open Library.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]metadata.Lookup, error)
}

type MetadataController struct {
	enricher Enricher
	searcher Searcher
}

func NewMetadataController(enricher Enricher, searcher Searcher) *MetadataController {
	return &MetadataController{enricher: enricher, searcher: searcher}
}

// EnrichBook resolves one catalog book against Open Library.
func (controller *MetadataController) EnrichBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := controller.enricher.EnrichBook(c.Request.Context(), bookID)
	if err != nil {
		respondStoreError(c, err, "enrich book")
		return
	}
	c.JSON(http.StatusOK, result)
}

// EnrichAllMissing sweeps one batch of books without enriched covers.
func (controller *MetadataController) EnrichAllMissing(c *gin.Context) {
	result, err := controller.enricher.EnrichAllMissing(c.Request.Context())
	if err != nil {
		respondStoreError(c, err, "enrich all")
		return
	}
	c.JSON(http.StatusOK, result)
}

// SearchOpenLibrary proxies a free-text search for the add-book flow.
func (controller *MetadataController) SearchOpenLibrary(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		respondBadRequest(c, "q is required")
		return
	}
	limit := parseQueryInt(c, "limit", 10)

	results, err := controller.searcher.Search(c.Request.Context(), query, limit)
	if err != nil {
		respondStoreError(c, err, "openlibrary search")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

var _ Enricher = (*metadata.Enricher)(nil)
var _ Searcher = (*metadata.OpenLibraryClient)(nil)
