package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booktracker/internal/database/reports"
)

// ReportStore is the projection surface the reports controller needs.
type ReportStore interface {
	Dashboard() (*reports.Dashboard, error)
	Pipeline() (*reports.Pipeline, error)
	Stats() (*reports.Stats, error)
}

type ReportsController struct {
	store ReportStore
}

func NewReportsController(store ReportStore) *ReportsController {
	return &ReportsController{store: store}
}

// GetDashboard returns the landing page projection.
func (controller *ReportsController) GetDashboard(c *gin.Context) {
	dashboard, err := controller.store.Dashboard()
	if err != nil {
		respondStoreError(c, err, "dashboard")
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetPipeline returns the kanban projection.
func (controller *ReportsController) GetPipeline(c *gin.Context) {
	pipeline, err := controller.store.Pipeline()
	if err != nil {
		respondStoreError(c, err, "pipeline")
		return
	}
	c.JSON(http.StatusOK, pipeline)
}

// GetStats returns library-wide statistics.
func (controller *ReportsController) GetStats(c *gin.Context) {
	stats, err := controller.store.Stats()
	if err != nil {
		respondStoreError(c, err, "stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

var _ ReportStore = (*reports.Repository)(nil)
