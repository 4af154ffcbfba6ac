// Package sessions provides database operations for the append-only reading
// check-in ledger and the page-position reconciliation that follows every
// ledger mutation.
package sessions

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"booktracker/internal/apperr"
	"booktracker/internal/database/books"
	"booktracker/internal/entities"
)

// CheckInInput is one reading check-in: a page delta plus session metadata.
type CheckInInput struct {
	PagesRead    int    `json:"pages_read"`
	Notes        string `json:"notes"`
	MarkFinished bool   `json:"mark_finished"`
}

// CheckInPatch updates an existing check-in. Nil means "not provided".
type CheckInPatch struct {
	PagesRead *int    `json:"pages_read"`
	Notes     *string `json:"notes"`
}

// CheckInResult pairs the recorded session with the updated entry and the
// page range the session covered.
type CheckInResult struct {
	Session   *entities.ReadingSession `json:"session"`
	Entry     *entities.LibraryEntry   `json:"book"`
	StartPage int                      `json:"start_page"`
	EndPage   int                      `json:"end_page"`
}

// Repository handles reading session database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new sessions repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListForBook returns all check-ins for a book, most recent first.
func (r *Repository) ListForBook(bookID uint) ([]entities.ReadingSession, error) {
	entry, err := r.loadEntry(r.db, bookID)
	if err != nil {
		return nil, err
	}
	var sessions []entities.ReadingSession
	err = r.db.
		Where("user_book_id = ?", entry.ID).
		Order("finished_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// RecordCheckIn appends a check-in to the ledger and moves the entry's page
// position forward by the pages read, clamped to the page count when known.
// An entry in the reading status auto-finishes when the caller asks for it
// or when the new position reaches the page count.
func (r *Repository) RecordCheckIn(bookID uint, input CheckInInput) (*CheckInResult, error) {
	if input.PagesRead <= 0 {
		return nil, apperr.Validation("pages_read must be a positive number")
	}

	var result CheckInResult
	err := r.db.Transaction(func(tx *gorm.DB) error {
		entry, err := r.loadEntry(tx, bookID)
		if err != nil {
			return err
		}

		now := time.Now()
		startPage := entry.CurrentPage
		newPage := startPage + input.PagesRead

		session := entities.ReadingSession{
			UserBookID: entry.ID,
			PagesRead:  input.PagesRead,
			Notes:      input.Notes,
			FinishedAt: now,
		}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		finish := input.MarkFinished
		if pageCount := entry.Book.PageCount; pageCount != nil && *pageCount > 0 {
			if newPage >= *pageCount {
				finish = true
				newPage = *pageCount
			}
		}

		// Only a book that is actively being read finishes; a check-in on a
		// queued or abandoned entry moves the page position without touching
		// the status.
		patch := books.EntryPatch{CurrentPage: &newPage}
		if finish && entry.Status == entities.StatusReading {
			finished := entities.StatusFinished
			patch.Status = &finished
		}
		books.ApplyPatch(entry, patch, now)
		if err := tx.Save(entry).Error; err != nil {
			return err
		}

		result = CheckInResult{
			Session:   &session,
			Entry:     entry,
			StartPage: startPage + 1,
			EndPage:   entry.CurrentPage,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateCheckIn edits a check-in and re-derives the entry's page position
// from the full ledger, so corrections to any session keep the position
// consistent with the sum of pages read.
func (r *Repository) UpdateCheckIn(bookID uint, sessionID uint, patch CheckInPatch) (*CheckInResult, error) {
	if patch.PagesRead == nil && patch.Notes == nil {
		return nil, apperr.Validation("no valid fields to update")
	}
	if patch.PagesRead != nil && *patch.PagesRead <= 0 {
		return nil, apperr.Validation("pages_read must be a positive number")
	}

	var result CheckInResult
	err := r.db.Transaction(func(tx *gorm.DB) error {
		entry, err := r.loadEntry(tx, bookID)
		if err != nil {
			return err
		}

		session, err := r.loadSession(tx, entry.ID, sessionID)
		if err != nil {
			return err
		}
		if patch.PagesRead != nil {
			session.PagesRead = *patch.PagesRead
		}
		if patch.Notes != nil {
			session.Notes = *patch.Notes
		}
		if err := tx.Save(session).Error; err != nil {
			return err
		}

		if err := r.reconcile(tx, entry); err != nil {
			return err
		}
		result = CheckInResult{Session: session, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteCheckIn removes a check-in and re-derives the entry's page position
// from the remaining ledger.
func (r *Repository) DeleteCheckIn(bookID uint, sessionID uint) (*entities.LibraryEntry, error) {
	var entry *entities.LibraryEntry
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = r.loadEntry(tx, bookID)
		if err != nil {
			return err
		}

		session, err := r.loadSession(tx, entry.ID, sessionID)
		if err != nil {
			return err
		}
		if err := tx.Delete(session).Error; err != nil {
			return err
		}

		return r.reconcile(tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// reconcile recomputes the page position as the sum of all pages read across
// the ledger, clamped to the page count, and re-derives the progress
// percentage from it. A changed position counts as reading activity.
func (r *Repository) reconcile(tx *gorm.DB, entry *entities.LibraryEntry) error {
	var totalPages int
	err := tx.Model(&entities.ReadingSession{}).
		Where("user_book_id = ?", entry.ID).
		Select("COALESCE(SUM(pages_read), 0)").
		Scan(&totalPages).Error
	if err != nil {
		return err
	}

	if pageCount := entry.Book.PageCount; pageCount != nil && *pageCount > 0 && totalPages > *pageCount {
		totalPages = *pageCount
	}
	if totalPages != entry.CurrentPage {
		t := time.Now()
		entry.LastReadAt = &t
	}
	entry.CurrentPage = totalPages
	if percent, ok := entities.DeriveProgress(totalPages, entry.Book.PageCount); ok {
		entry.ProgressPercent = percent
	}
	return tx.Save(entry).Error
}

func (r *Repository) loadEntry(tx *gorm.DB, bookID uint) (*entities.LibraryEntry, error) {
	var entry entities.LibraryEntry
	err := tx.Preload("Book").Where("book_id = ?", bookID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("book")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *Repository) loadSession(tx *gorm.DB, userBookID uint, sessionID uint) (*entities.ReadingSession, error) {
	var session entities.ReadingSession
	err := tx.Where("id = ? AND user_book_id = ?", sessionID, userBookID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("session")
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
