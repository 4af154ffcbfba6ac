package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booktracker/internal/database/tags"
	"booktracker/internal/entities"
)

// TagStore is the tag surface the tags controller needs.
type TagStore interface {
	List() ([]tags.TagSummary, error)
	Delete(tagID uint) error
	AttachToEntry(bookID uint, name, color string) (*entities.Tag, error)
	DetachFromEntry(bookID, tagID uint) error
	SetEntryTags(bookID uint, names []string) ([]entities.Tag, error)
}

type TagsController struct {
	store TagStore
}

func NewTagsController(store TagStore) *TagsController {
	return &TagsController{store: store}
}

// ListTags returns all tags with usage counts.
func (controller *TagsController) ListTags(c *gin.Context) {
	summaries, err := controller.store.List()
	if err != nil {
		respondStoreError(c, err, "list tags")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": summaries, "count": len(summaries)})
}

// DeleteTag removes a tag everywhere.
func (controller *TagsController) DeleteTag(c *gin.Context) {
	tagID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.store.Delete(tagID); err != nil {
		respondStoreError(c, err, "delete tag")
		return
	}
	respondSuccess(c, "tag deleted")
}

type attachTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// AddTagToBook attaches a tag (created on demand) to a library entry.
func (controller *TagsController) AddTagToBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req attachTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	tag, err := controller.store.AttachToEntry(bookID, req.Name, req.Color)
	if err != nil {
		respondStoreError(c, err, "attach tag")
		return
	}
	respondCreated(c, tag)
}

// RemoveTagFromBook detaches a tag from a library entry.
func (controller *TagsController) RemoveTagFromBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	tagID, ok := parseIDParam(c, "tagId")
	if !ok {
		return
	}

	if err := controller.store.DetachFromEntry(bookID, tagID); err != nil {
		respondStoreError(c, err, "detach tag")
		return
	}
	respondSuccess(c, "tag removed")
}

type setTagsRequest struct {
	Tags []string `json:"tags"`
}

// SetBookTags replaces a library entry's tags.
func (controller *TagsController) SetBookTags(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req setTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	set, err := controller.store.SetEntryTags(bookID, req.Tags)
	if err != nil {
		respondStoreError(c, err, "set tags")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": set})
}

var _ TagStore = (*tags.Repository)(nil)
