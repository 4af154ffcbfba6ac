// Package books provides database operations for catalog books and library
// entries, including the status transition engine applied on every entry
// update.
package books

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"booktracker/internal/apperr"
	"booktracker/internal/entities"
)

// SortKey enumerates the allowed list sort fields. Identifiers are resolved
// through sortColumns only; caller input never reaches the query text.
type SortKey string

const (
	SortDateAdded     SortKey = "date_added"
	SortFinishedAt    SortKey = "finished_reading_at"
	SortTitle         SortKey = "title"
	SortAuthor        SortKey = "author"
	SortMyRating      SortKey = "my_rating"
	SortPageCount     SortKey = "page_count"
	SortYearPublished SortKey = "year_published"
)

var sortColumns = map[SortKey]string{
	SortDateAdded:     "user_books.date_added",
	SortFinishedAt:    "user_books.finished_reading_at",
	SortTitle:         "books.title",
	SortAuthor:        "books.author",
	SortMyRating:      "user_books.my_rating",
	SortPageCount:     "books.page_count",
	SortYearPublished: "books.year_published",
}

// ListParams filters and orders the library listing.
type ListParams struct {
	Status  entities.Status
	Search  string
	Sort    SortKey
	Desc    bool
	Page    int
	PerPage int
}

// ListResult is one page of the library plus pagination metadata.
type ListResult struct {
	Entries []entities.LibraryEntry `json:"books"`
	Total   int64                   `json:"total"`
	Page    int                     `json:"page"`
	PerPage int                     `json:"per_page"`
	Pages   int                     `json:"pages"`
}

// EntryPatch carries the allow-listed fields of a library entry update.
// Nil means "not provided"; anything else is written verbatim before the
// derivations run.
type EntryPatch struct {
	Status          *entities.Status `json:"status"`
	CurrentPage     *int             `json:"current_page"`
	ProgressPercent *int             `json:"progress_percent"`
	Priority        *int             `json:"priority"`
	MyRating        *int             `json:"my_rating"`
	WhyReading      *string          `json:"why_reading"`
	OwnsKindle      *bool            `json:"owns_kindle"`
	OwnsAudible     *bool            `json:"owns_audible"`
	OwnsHardcopy    *bool            `json:"owns_hardcopy"`
	IdeaSource      *string          `json:"idea_source"`
	SourceBookID    *uint            `json:"source_book_id"`
}

// IsEmpty reports whether the patch provides no field at all.
func (p EntryPatch) IsEmpty() bool {
	return p.Status == nil && p.CurrentPage == nil && p.ProgressPercent == nil &&
		p.Priority == nil && p.MyRating == nil && p.WhyReading == nil &&
		p.OwnsKindle == nil && p.OwnsAudible == nil && p.OwnsHardcopy == nil &&
		p.IdeaSource == nil && p.SourceBookID == nil
}

// AddBookInput describes a book being added to the library. Catalog fields
// feed find-or-create; the entry fields seed the new library entry.
type AddBookInput struct {
	Title             string          `json:"title"`
	Author            string          `json:"author"`
	AdditionalAuthors string          `json:"additional_authors"`
	ISBN              string          `json:"isbn"`
	ISBN13            string          `json:"isbn13"`
	PageCount         *int            `json:"page_count"`
	YearPublished     int             `json:"year_published"`
	Publisher         string          `json:"publisher"`
	Description       string          `json:"description"`
	CoverImageURL     string          `json:"cover_image_url"`
	OpenLibraryKey    string          `json:"open_library_key"`
	Status            entities.Status `json:"status"`
	WhyReading        string          `json:"why_reading"`
	Priority          int             `json:"priority"`
	IdeaSource        string          `json:"idea_source"`
	SourceBookID      *uint           `json:"source_book_id"`
}

// Repository handles catalog book and library entry database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns one page of the library joined with catalog data.
func (r *Repository) List(p ListParams) (*ListResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 50
	}

	query := r.db.Model(&entities.LibraryEntry{}).
		Joins("JOIN books ON books.id = user_books.book_id")

	if p.Status != "" {
		if !p.Status.Valid() {
			return nil, apperr.Validation("unknown status filter")
		}
		query = query.Where("user_books.status = ?", p.Status)
	}
	if p.Search != "" {
		pattern := "%" + p.Search + "%"
		query = query.Where("books.title LIKE ? OR books.author LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	if p.Sort != "" {
		column, ok := sortColumns[p.Sort]
		if !ok {
			return nil, apperr.Validation("unknown sort field")
		}
		direction := "ASC"
		if p.Desc {
			direction = "DESC"
		}
		// NULLs always sort last regardless of direction
		query = query.Order(column + " IS NULL").Order(column + " " + direction)
	}

	var entries []entities.LibraryEntry
	err := query.
		Preload("Book").Preload("Tags").
		Limit(p.PerPage).Offset((p.Page - 1) * p.PerPage).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Page:    p.Page,
		PerPage: p.PerPage,
		Pages:   int((total + int64(p.PerPage) - 1) / int64(p.PerPage)),
	}, nil
}

// GetByBookID returns the library entry for a catalog book with all nested
// detail loaded.
func (r *Repository) GetByBookID(bookID uint) (*entities.LibraryEntry, error) {
	var entry entities.LibraryEntry
	err := r.db.
		Preload("Book").
		Preload("Tags").
		Preload("Notes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Sessions", func(db *gorm.DB) *gorm.DB {
			return db.Order("finished_at DESC")
		}).
		Where("book_id = ?", bookID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("book")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// PathsForEntry returns the learning paths an entry belongs to.
func (r *Repository) PathsForEntry(userBookID uint) ([]entities.LearningPath, error) {
	var paths []entities.LearningPath
	err := r.db.
		Joins("JOIN learning_path_books lpb ON lpb.learning_path_id = learning_paths.id").
		Where("lpb.user_book_id = ?", userBookID).
		Find(&paths).Error
	return paths, err
}

// AddBook adds a book to the library: the catalog record is found or
// created (matched by ISBN-13, then ISBN-10, then title+author), then a
// single library entry is attached. Adding a book that already has an
// entry is a conflict and leaves the first entry untouched.
func (r *Repository) AddBook(input AddBookInput) (*entities.LibraryEntry, error) {
	if input.Title == "" {
		return nil, apperr.Validation("title is required")
	}
	status := input.Status
	if status == "" {
		status = entities.StatusWantToRead
	}
	if !status.Valid() {
		return nil, apperr.Validation("unknown status")
	}

	var created *entities.LibraryEntry
	err := r.db.Transaction(func(tx *gorm.DB) error {
		book, err := findCatalogBook(tx, input)
		if err != nil {
			return err
		}
		if book == nil {
			book = &entities.Book{
				Title:             input.Title,
				Author:            input.Author,
				AdditionalAuthors: input.AdditionalAuthors,
				ISBN:              input.ISBN,
				ISBN13:            input.ISBN13,
				PageCount:         input.PageCount,
				YearPublished:     input.YearPublished,
				Publisher:         input.Publisher,
				Description:       input.Description,
				CoverImageURL:     input.CoverImageURL,
				OpenLibraryKey:    input.OpenLibraryKey,
			}
			if err := tx.Create(book).Error; err != nil {
				return err
			}
		} else {
			var existing entities.LibraryEntry
			err := tx.Where("book_id = ?", book.ID).First(&existing).Error
			if err == nil {
				return apperr.Conflict("book already in library")
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		entry := entities.LibraryEntry{
			BookID:       book.ID,
			Status:       status,
			DateAdded:    time.Now(),
			WhyReading:   input.WhyReading,
			Priority:     input.Priority,
			IdeaSource:   input.IdeaSource,
			SourceBookID: input.SourceBookID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		entry.Book = *book
		created = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func findCatalogBook(tx *gorm.DB, input AddBookInput) (*entities.Book, error) {
	var book entities.Book
	lookups := []func() *gorm.DB{
		func() *gorm.DB {
			if input.ISBN13 == "" {
				return nil
			}
			return tx.Where("isbn13 = ?", input.ISBN13)
		},
		func() *gorm.DB {
			if input.ISBN == "" {
				return nil
			}
			return tx.Where("isbn = ?", input.ISBN)
		},
		func() *gorm.DB {
			if input.Title == "" || input.Author == "" {
				return nil
			}
			return tx.Where("title = ? AND author = ?", input.Title, input.Author)
		},
	}
	for _, lookup := range lookups {
		q := lookup()
		if q == nil {
			continue
		}
		err := q.First(&book).Error
		if err == nil {
			return &book, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// UpdateEntry applies a partial update to the library entry of a book and
// derives the dependent progress and timestamp fields. The derivation order
// matters: verbatim fields first, then progress, then the status stamps.
func (r *Repository) UpdateEntry(bookID uint, patch EntryPatch) (*entities.LibraryEntry, error) {
	if patch.IsEmpty() {
		return nil, apperr.Validation("no valid fields to update")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperr.Validation("unknown status")
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var entry entities.LibraryEntry
		err := tx.Preload("Book").Where("book_id = ?", bookID).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("book")
		}
		if err != nil {
			return err
		}

		ApplyPatch(&entry, patch, time.Now())

		return tx.Save(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetByBookID(bookID)
}

// ApplyPatch mutates entry in place according to the transition rules.
// Exported so the ledger repository can reuse the same derivations when a
// check-in finishes a book.
func ApplyPatch(entry *entities.LibraryEntry, patch EntryPatch, now time.Time) {
	wasFinished := entry.Status == entities.StatusFinished

	// Step 1: allow-listed fields verbatim.
	if patch.Status != nil {
		entry.Status = *patch.Status
	}
	if patch.CurrentPage != nil {
		entry.CurrentPage = *patch.CurrentPage
	}
	if patch.ProgressPercent != nil {
		entry.ProgressPercent = *patch.ProgressPercent
	}
	if patch.Priority != nil {
		entry.Priority = *patch.Priority
	}
	if patch.MyRating != nil {
		entry.MyRating = *patch.MyRating
	}
	if patch.WhyReading != nil {
		entry.WhyReading = *patch.WhyReading
	}
	if patch.OwnsKindle != nil {
		entry.OwnsKindle = *patch.OwnsKindle
	}
	if patch.OwnsAudible != nil {
		entry.OwnsAudible = *patch.OwnsAudible
	}
	if patch.OwnsHardcopy != nil {
		entry.OwnsHardcopy = *patch.OwnsHardcopy
	}
	if patch.IdeaSource != nil {
		entry.IdeaSource = *patch.IdeaSource
	}
	if patch.SourceBookID != nil {
		entry.SourceBookID = patch.SourceBookID
	}

	// Step 2: derive progress from the page position unless the caller
	// supplied an explicit percentage.
	if patch.CurrentPage != nil && patch.ProgressPercent == nil {
		if percent, ok := entities.DeriveProgress(entry.CurrentPage, entry.Book.PageCount); ok {
			entry.ProgressPercent = percent
		}
	}

	// Step 3: any progress movement counts as reading activity.
	if patch.CurrentPage != nil || patch.ProgressPercent != nil {
		t := now
		entry.LastReadAt = &t
	}

	// Step 4: started_reading_at fires once, ever.
	if patch.Status != nil && *patch.Status == entities.StatusReading && entry.StartedReadingAt == nil {
		t := now
		entry.StartedReadingAt = &t
	}

	// Step 5: completion saturates progress. Finishing an already-finished
	// entry keeps the original completion timestamp.
	if patch.Status != nil && *patch.Status == entities.StatusFinished {
		if !wasFinished || entry.FinishedReadingAt == nil {
			t := now
			entry.FinishedReadingAt = &t
		}
		entry.ProgressPercent = 100
		if entry.Book.PageCount != nil && *entry.Book.PageCount > 0 {
			entry.CurrentPage = *entry.Book.PageCount
		}
	}
}

// DeleteEntry removes a library entry together with its sessions, notes,
// and memberships. The catalog record stays.
func (r *Repository) DeleteEntry(bookID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var entry entities.LibraryEntry
		err := tx.Where("book_id = ?", bookID).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("book")
		}
		if err != nil {
			return err
		}

		for _, stmt := range []struct {
			query string
			arg   uint
		}{
			{"DELETE FROM reading_sessions WHERE user_book_id = ?", entry.ID},
			{"DELETE FROM notes WHERE user_book_id = ?", entry.ID},
			{"DELETE FROM user_book_tags WHERE library_entry_id = ?", entry.ID},
			{"DELETE FROM learning_path_books WHERE user_book_id = ?", entry.ID},
		} {
			if err := tx.Exec(stmt.query, stmt.arg).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&entry).Error
	})
}

// UpdateCatalogMetadata writes enrichment results back to the catalog book.
func (r *Repository) UpdateCatalogMetadata(bookID uint, openLibraryKey, coverURL string) error {
	result := r.db.Model(&entities.Book{}).Where("id = ?", bookID).Updates(map[string]any{
		"open_library_key": openLibraryKey,
		"cover_image_url":  coverURL,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("book")
	}
	return nil
}

// GetCatalogBook returns the catalog record alone.
func (r *Repository) GetCatalogBook(bookID uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("book")
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// CatalogBooksMissingCovers returns up to limit catalog books whose cover
// has not been enriched yet (no cover, or only the ISBN-derived fallback).
func (r *Repository) CatalogBooksMissingCovers(limit int) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.
		Where("cover_image_url IS NULL OR cover_image_url = '' OR cover_image_url LIKE ?",
			"%covers.openlibrary.org/b/isbn%").
		Limit(limit).
		Find(&books).Error
	return books, err
}

// CountCatalogBooksMissingCovers counts the remaining un-enriched covers.
func (r *Repository) CountCatalogBooksMissingCovers() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).
		Where("cover_image_url IS NULL OR cover_image_url = '' OR cover_image_url LIKE ?",
			"%covers.openlibrary.org/b/isbn%").
		Count(&count).Error
	return count, err
}
