package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"booktracker/internal/exporters"
)

// ExportStore produces full-library snapshots.
type ExportStore interface {
	ExportBundle() (*exporters.Bundle, error)
	ExportCSV(w io.Writer) error
}

type ExportController struct {
	store ExportStore
}

func NewExportController(store ExportStore) *ExportController {
	return &ExportController{store: store}
}

// ExportJSON downloads the whole library as a JSON bundle.
func (controller *ExportController) ExportJSON(c *gin.Context) {
	bundle, err := controller.store.ExportBundle()
	if err != nil {
		respondInternalError(c, err, "export library")
		return
	}

	filename := fmt.Sprintf("library-%s.json", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.JSON(http.StatusOK, bundle)
}

// ExportCSV downloads the library flattened to one CSV row per entry.
func (controller *ExportController) ExportCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := controller.store.ExportCSV(&buf); err != nil {
		respondInternalError(c, err, "export library csv")
		return
	}

	filename := fmt.Sprintf("library-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

var _ ExportStore = (*exporters.Exporter)(nil)
