// Package tags provides database operations for tag management.
package tags

import (
	"errors"

	"gorm.io/gorm"

	"booktracker/internal/apperr"
	"booktracker/internal/entities"
	"booktracker/internal/utils"
)

// TagSummary is a tag together with the number of library entries using it.
type TagSummary struct {
	entities.Tag
	BookCount int `json:"book_count"`
}

// Repository handles all tag database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tags repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns all tags with their usage counts, sorted by name.
func (r *Repository) List() ([]TagSummary, error) {
	var summaries []TagSummary
	err := r.db.Model(&entities.Tag{}).
		Select("tags.*, COUNT(user_book_tags.library_entry_id) AS book_count").
		Joins("LEFT JOIN user_book_tags ON user_book_tags.tag_id = tags.id").
		Group("tags.id").
		Order("tags.name ASC").
		Scan(&summaries).Error
	return summaries, err
}

// GetOrCreate retrieves or creates a tag (case-insensitive by name).
func (r *Repository) GetOrCreate(name, color string) (*entities.Tag, error) {
	if name == "" {
		return nil, apperr.Validation("tag name is required")
	}
	var tag entities.Tag
	err := r.db.Where("LOWER(name) = LOWER(?)", name).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tag = entities.Tag{Name: name, Color: utils.NormalizeHexColor(color, "")}
		if err := r.db.Create(&tag).Error; err != nil {
			return nil, err
		}
		return &tag, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// Delete removes a tag and all its attachments.
func (r *Repository) Delete(tagID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var tag entities.Tag
		err := tx.First(&tag, tagID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("tag")
		}
		if err != nil {
			return err
		}
		err = tx.Exec("DELETE FROM user_book_tags WHERE tag_id = ?", tagID).Error
		if err != nil {
			return err
		}
		return tx.Delete(&tag).Error
	})
}

// AttachToEntry associates a tag name with the library entry of a catalog
// book, creating the tag when it does not exist yet. Attaching twice is a
// no-op.
func (r *Repository) AttachToEntry(bookID uint, name, color string) (*entities.Tag, error) {
	entry, err := r.loadEntry(bookID)
	if err != nil {
		return nil, err
	}

	tag, err := r.GetOrCreate(name, color)
	if err != nil {
		return nil, err
	}
	if err := r.db.Model(entry).Association("Tags").Append(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// DetachFromEntry removes a tag from a book's library entry. The tag itself
// stays even when nothing uses it anymore.
func (r *Repository) DetachFromEntry(bookID, tagID uint) error {
	entry, err := r.loadEntry(bookID)
	if err != nil {
		return err
	}

	var tag entities.Tag
	err = r.db.First(&tag, tagID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("tag")
	}
	if err != nil {
		return err
	}
	return r.db.Model(entry).Association("Tags").Delete(&tag)
}

// SetEntryTags replaces the tags on a book's library entry with the given
// names.
func (r *Repository) SetEntryTags(bookID uint, names []string) ([]entities.Tag, error) {
	entry, err := r.loadEntry(bookID)
	if err != nil {
		return nil, err
	}

	tags := make([]entities.Tag, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		tag, err := r.GetOrCreate(name, "")
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}

	if err := r.db.Model(entry).Association("Tags").Replace(&tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *Repository) loadEntry(bookID uint) (*entities.LibraryEntry, error) {
	var entry entities.LibraryEntry
	err := r.db.Where("book_id = ?", bookID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("book")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
