package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booktracker/internal/database/books"
	"booktracker/internal/entities"
)

// BookStore is the library surface the books controller needs.
type BookStore interface {
	List(p books.ListParams) (*books.ListResult, error)
	GetByBookID(bookID uint) (*entities.LibraryEntry, error)
	PathsForEntry(userBookID uint) ([]entities.LearningPath, error)
	AddBook(input books.AddBookInput) (*entities.LibraryEntry, error)
	UpdateEntry(bookID uint, patch books.EntryPatch) (*entities.LibraryEntry, error)
	DeleteEntry(bookID uint) error
}

type BooksController struct {
	store BookStore
}

func NewBooksController(store BookStore) *BooksController {
	return &BooksController{store: store}
}

// ListBooks returns one page of the library.
func (controller *BooksController) ListBooks(c *gin.Context) {
	params := books.ListParams{
		Status:  entities.Status(c.Query("status")),
		Search:  c.Query("search"),
		Sort:    books.SortKey(c.Query("sort")),
		Desc:    c.Query("order") == "desc",
		Page:    parseQueryInt(c, "page", 1),
		PerPage: parseQueryInt(c, "per_page", 50),
	}

	result, err := controller.store.List(params)
	if err != nil {
		respondStoreError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, result)
}

// bookDetail is the nested get-by-id response.
type bookDetail struct {
	*entities.LibraryEntry
	CoverURL      string                  `json:"cover_url"`
	LearningPaths []entities.LearningPath `json:"learning_paths"`
}

// GetBook returns one library entry with everything attached.
func (controller *BooksController) GetBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := controller.store.GetByBookID(bookID)
	if err != nil {
		respondStoreError(c, err, "get book")
		return
	}
	entryPaths, err := controller.store.PathsForEntry(entry.ID)
	if err != nil {
		respondStoreError(c, err, "get book paths")
		return
	}
	if entryPaths == nil {
		entryPaths = []entities.LearningPath{}
	}

	c.JSON(http.StatusOK, bookDetail{
		LibraryEntry:  entry,
		CoverURL:      entry.Book.EffectiveCoverURL(),
		LearningPaths: entryPaths,
	})
}

// CreateBook adds a book to the library.
func (controller *BooksController) CreateBook(c *gin.Context) {
	var input books.AddBookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	entry, err := controller.store.AddBook(input)
	if err != nil {
		respondStoreError(c, err, "add book")
		return
	}
	respondCreated(c, entry)
}

// UpdateBook applies a partial update to a library entry.
func (controller *BooksController) UpdateBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var patch books.EntryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	entry, err := controller.store.UpdateEntry(bookID, patch)
	if err != nil {
		respondStoreError(c, err, "update book")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteBook removes a library entry and its dependents.
func (controller *BooksController) DeleteBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.store.DeleteEntry(bookID); err != nil {
		respondStoreError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book removed from library")
}

var _ BookStore = (*books.Repository)(nil)
