// Package paths provides database operations for learning paths and their
// ordered book memberships.
package paths

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"booktracker/internal/apperr"
	"booktracker/internal/entities"
	"booktracker/internal/utils"
)

// DefaultPathColor matches the schema default for learning paths.
const DefaultPathColor = "#58a6ff"

// PathBook is one book inside a path, joined with its library entry.
type PathBook struct {
	Position int                   `json:"position"`
	Entry    entities.LibraryEntry `json:"book"`
}

// PathDetail is a path together with its ordered books.
type PathDetail struct {
	Path  entities.LearningPath `json:"path"`
	Books []PathBook            `json:"books"`
}

// PathSummary is a path plus its membership counts, used by listings.
type PathSummary struct {
	entities.LearningPath
	BookCount     int `json:"book_count"`
	FinishedCount int `json:"finished_count"`
}

// PathPatch updates a path's own fields. Nil means "not provided".
type PathPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

// ReorderItem assigns a position to one book of a path.
type ReorderItem struct {
	UserBookID uint `json:"user_book_id"`
	Position   int  `json:"position"`
}

// Repository handles learning path database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new paths repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns all paths with their book and finished counts, oldest first.
func (r *Repository) List() ([]PathSummary, error) {
	var paths []entities.LearningPath
	if err := r.db.Order("created_at ASC").Find(&paths).Error; err != nil {
		return nil, err
	}

	summaries := make([]PathSummary, 0, len(paths))
	for _, path := range paths {
		var bookCount, finishedCount int64
		err := r.db.Model(&entities.LearningPathBook{}).
			Where("learning_path_id = ?", path.ID).
			Count(&bookCount).Error
		if err != nil {
			return nil, err
		}
		err = r.db.Model(&entities.LearningPathBook{}).
			Joins("JOIN user_books ON user_books.id = learning_path_books.user_book_id").
			Where("learning_path_books.learning_path_id = ? AND user_books.status = ?",
				path.ID, entities.StatusFinished).
			Count(&finishedCount).Error
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, PathSummary{
			LearningPath:  path,
			BookCount:     int(bookCount),
			FinishedCount: int(finishedCount),
		})
	}
	return summaries, nil
}

// Get returns one path with its books ordered by position.
func (r *Repository) Get(pathID uint) (*PathDetail, error) {
	var path entities.LearningPath
	err := r.db.First(&path, pathID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("learning path")
	}
	if err != nil {
		return nil, err
	}

	var memberships []entities.LearningPathBook
	err = r.db.
		Where("learning_path_id = ?", pathID).
		Order("position ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}

	pathBooks := make([]PathBook, 0, len(memberships))
	for _, m := range memberships {
		var entry entities.LibraryEntry
		err := r.db.Preload("Book").Preload("Tags").First(&entry, m.UserBookID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		pathBooks = append(pathBooks, PathBook{Position: m.Position, Entry: entry})
	}

	return &PathDetail{Path: path, Books: pathBooks}, nil
}

// Create adds a new path.
func (r *Repository) Create(name, description, color string) (*entities.LearningPath, error) {
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	path := entities.LearningPath{
		Name:        name,
		Description: description,
		Color:       utils.NormalizeHexColor(color, DefaultPathColor),
		CreatedAt:   time.Now(),
	}
	if err := r.db.Create(&path).Error; err != nil {
		return nil, err
	}
	return &path, nil
}

// Update applies a partial update to a path.
func (r *Repository) Update(pathID uint, patch PathPatch) (*entities.LearningPath, error) {
	if patch.Name == nil && patch.Description == nil && patch.Color == nil {
		return nil, apperr.Validation("no valid fields to update")
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, apperr.Validation("name cannot be empty")
	}

	var path entities.LearningPath
	err := r.db.First(&path, pathID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("learning path")
	}
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		path.Name = *patch.Name
	}
	if patch.Description != nil {
		path.Description = *patch.Description
	}
	if patch.Color != nil {
		path.Color = utils.NormalizeHexColor(*patch.Color, DefaultPathColor)
	}
	if err := r.db.Save(&path).Error; err != nil {
		return nil, err
	}
	return &path, nil
}

// Delete removes a path and its memberships. Library entries are untouched.
func (r *Repository) Delete(pathID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var path entities.LearningPath
		err := tx.First(&path, pathID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("learning path")
		}
		if err != nil {
			return err
		}
		err = tx.Where("learning_path_id = ?", pathID).
			Delete(&entities.LearningPathBook{}).Error
		if err != nil {
			return err
		}
		return tx.Delete(&path).Error
	})
}

// AddBook appends a library entry to a path. Without an explicit position
// the book goes to the end. Adding a book twice is a conflict.
func (r *Repository) AddBook(pathID uint, userBookID uint, position *int) (*entities.LearningPathBook, error) {
	var membership entities.LearningPathBook
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var path entities.LearningPath
		err := tx.First(&path, pathID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("learning path")
		}
		if err != nil {
			return err
		}

		var entry entities.LibraryEntry
		err = tx.First(&entry, userBookID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("book")
		}
		if err != nil {
			return err
		}

		var count int64
		err = tx.Model(&entities.LearningPathBook{}).
			Where("learning_path_id = ? AND user_book_id = ?", pathID, userBookID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("book already in path")
		}

		pos := 1
		if position != nil {
			pos = *position
		} else {
			var maxPos *int
			err = tx.Model(&entities.LearningPathBook{}).
				Where("learning_path_id = ?", pathID).
				Select("MAX(position)").
				Scan(&maxPos).Error
			if err != nil {
				return err
			}
			if maxPos != nil {
				pos = *maxPos + 1
			}
		}

		membership = entities.LearningPathBook{
			LearningPathID: pathID,
			UserBookID:     userBookID,
			Position:       pos,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// RemoveBook takes a library entry out of a path.
func (r *Repository) RemoveBook(pathID uint, userBookID uint) error {
	result := r.db.
		Where("learning_path_id = ? AND user_book_id = ?", pathID, userBookID).
		Delete(&entities.LearningPathBook{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("path membership")
	}
	return nil
}

// Reorder assigns new positions in one batch. Books of the path that the
// batch does not mention keep their positions.
func (r *Repository) Reorder(pathID uint, items []ReorderItem) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var path entities.LearningPath
		err := tx.First(&path, pathID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("learning path")
		}
		if err != nil {
			return err
		}

		for _, item := range items {
			err := tx.Model(&entities.LearningPathBook{}).
				Where("learning_path_id = ? AND user_book_id = ?", pathID, item.UserBookID).
				Update("position", item.Position).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// NextBook returns the first unfinished book of a path by position, or nil
// when every book is finished.
func (r *Repository) NextBook(pathID uint) (*entities.LibraryEntry, error) {
	var membership entities.LearningPathBook
	err := r.db.
		Joins("JOIN user_books ON user_books.id = learning_path_books.user_book_id").
		Where("learning_path_books.learning_path_id = ? AND user_books.status != ?",
			pathID, entities.StatusFinished).
		Order("learning_path_books.position ASC").
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry entities.LibraryEntry
	if err := r.db.Preload("Book").First(&entry, membership.UserBookID).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// MembershipsFor returns the path names each of the given entries belongs
// to, keyed by entry ID.
func (r *Repository) MembershipsFor(userBookIDs []uint) (map[uint][]string, error) {
	result := make(map[uint][]string)
	if len(userBookIDs) == 0 {
		return result, nil
	}

	type row struct {
		UserBookID uint
		Name       string
	}
	var rows []row
	err := r.db.Model(&entities.LearningPathBook{}).
		Select("learning_path_books.user_book_id, learning_paths.name").
		Joins("JOIN learning_paths ON learning_paths.id = learning_path_books.learning_path_id").
		Where("learning_path_books.user_book_id IN ?", userBookIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		result[r.UserBookID] = append(result[r.UserBookID], r.Name)
	}
	return result, nil
}
