package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booktracker/internal/database/paths"
	"booktracker/internal/entities"
)

// PathStore is the learning path surface the paths controller needs.
type PathStore interface {
	List() ([]paths.PathSummary, error)
	Get(pathID uint) (*paths.PathDetail, error)
	Create(name, description, color string) (*entities.LearningPath, error)
	Update(pathID uint, patch paths.PathPatch) (*entities.LearningPath, error)
	Delete(pathID uint) error
	AddBook(pathID uint, userBookID uint, position *int) (*entities.LearningPathBook, error)
	RemoveBook(pathID uint, userBookID uint) error
	Reorder(pathID uint, items []paths.ReorderItem) error
}

type PathsController struct {
	store PathStore
}

func NewPathsController(store PathStore) *PathsController {
	return &PathsController{store: store}
}

// ListPaths returns all paths with their counts.
func (controller *PathsController) ListPaths(c *gin.Context) {
	summaries, err := controller.store.List()
	if err != nil {
		respondStoreError(c, err, "list paths")
		return
	}
	c.JSON(http.StatusOK, gin.H{"paths": summaries, "count": len(summaries)})
}

// GetPath returns one path with its ordered books.
func (controller *PathsController) GetPath(c *gin.Context) {
	pathID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := controller.store.Get(pathID)
	if err != nil {
		respondStoreError(c, err, "get path")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListPathBooks returns just the ordered books of a path.
func (controller *PathsController) ListPathBooks(c *gin.Context) {
	pathID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := controller.store.Get(pathID)
	if err != nil {
		respondStoreError(c, err, "list path books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": detail.Books, "count": len(detail.Books)})
}

type createPathRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// CreatePath adds a new learning path.
func (controller *PathsController) CreatePath(c *gin.Context) {
	var req createPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	path, err := controller.store.Create(req.Name, req.Description, req.Color)
	if err != nil {
		respondStoreError(c, err, "create path")
		return
	}
	respondCreated(c, path)
}

// UpdatePath applies a partial update to a path.
func (controller *PathsController) UpdatePath(c *gin.Context) {
	pathID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var patch paths.PathPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	path, err := controller.store.Update(pathID, patch)
	if err != nil {
		respondStoreError(c, err, "update path")
		return
	}
	c.JSON(http.StatusOK, path)
}

// DeletePath removes a path and its memberships.
func (controller *PathsController) DeletePath(c *gin.Context) {
	pathID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.store.Delete(pathID); err != nil {
		respondStoreError(c, err, "delete path")
		return
	}
	respondSuccess(c, "path deleted")
}

type addPathBookRequest struct {
	UserBookID uint `json:"user_book_id"`
	Position   *int `json:"position"`
}

// AddBookToPath appends a library entry to a path.
func (controller *PathsController) AddBookToPath(c *gin.Context) {
	pathID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req addPathBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.UserBookID == 0 {
		respondBadRequest(c, "user_book_id is required")
		return
	}

	membership, err := controller.store.AddBook(pathID, req.UserBookID, req.Position)
	if err != nil {
		respondStoreError(c, err, "add book to path")
		return
	}
	respondCreated(c, membership)
}

// RemoveBookFromPath takes a library entry out of a path.
func (controller *PathsController) RemoveBookFromPath(c *gin.Context) {
	pathID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userBookID, ok := parseIDParam(c, "userBookId")
	if !ok {
		return
	}

	if err := controller.store.RemoveBook(pathID, userBookID); err != nil {
		respondStoreError(c, err, "remove book from path")
		return
	}
	respondSuccess(c, "book removed from path")
}

type reorderRequest struct {
	Books []paths.ReorderItem `json:"books"`
}

// ReorderPath applies a batch of position assignments.
func (controller *PathsController) ReorderPath(c *gin.Context) {
	pathID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if err := controller.store.Reorder(pathID, req.Books); err != nil {
		respondStoreError(c, err, "reorder path")
		return
	}
	respondSuccess(c, "path reordered")
}

var _ PathStore = (*paths.Repository)(nil)
