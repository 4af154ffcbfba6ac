package sessions

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"booktracker/internal/apperr"
	"booktracker/internal/database/books"
	"booktracker/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *books.Repository, func()) {
	dbPath := "./test_sessions_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Book{},
		&entities.LibraryEntry{},
		&entities.ReadingSession{},
		&entities.Note{},
		&entities.Tag{},
	)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return NewRepository(db), books.NewRepository(db), cleanup
}

func intPtr(v int) *int { return &v }

func addReadingBook(t *testing.T, bookRepo *books.Repository, title string, pageCount *int) *entities.LibraryEntry {
	t.Helper()
	entry, err := bookRepo.AddBook(books.AddBookInput{
		Title:     title,
		Author:    "Author",
		PageCount: pageCount,
		Status:    entities.StatusReading,
	})
	require.NoError(t, err)
	return entry
}

func TestRecordCheckIn_AdvancesPagePosition(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", intPtr(200))

	result, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 40, Notes: "chapter one"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.StartPage)
	assert.Equal(t, 40, result.EndPage)
	assert.Equal(t, 40, result.Entry.CurrentPage)
	assert.Equal(t, 20, result.Entry.ProgressPercent)
	assert.Equal(t, entities.StatusReading, result.Entry.Status)
	assert.Equal(t, "chapter one", result.Session.Notes)
	assert.NotNil(t, result.Entry.LastReadAt)

	// The second check-in stacks on top of the first
	result, err = repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 60})
	require.NoError(t, err)
	assert.Equal(t, 41, result.StartPage)
	assert.Equal(t, 100, result.EndPage)
	assert.Equal(t, 50, result.Entry.ProgressPercent)
}

func TestRecordCheckIn_RejectsNonPositivePages(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", intPtr(200))

	_, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: -10})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRecordCheckIn_AutoFinishesAtPageCount(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", intPtr(100))

	result, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 120})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusFinished, result.Entry.Status)
	assert.Equal(t, 100, result.Entry.ProgressPercent)
	assert.Equal(t, 100, result.Entry.CurrentPage)
	assert.NotNil(t, result.Entry.FinishedReadingAt)
}

func TestRecordCheckIn_OnlyReadingBooksFinish(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry, err := bookRepo.AddBook(books.AddBookInput{
		Title:     "Queued Book",
		Author:    "Author",
		PageCount: intPtr(100),
		Status:    entities.StatusQueued,
	})
	require.NoError(t, err)

	result, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 100})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusQueued, result.Entry.Status)
	assert.Nil(t, result.Entry.FinishedReadingAt)
	assert.Equal(t, 100, result.Entry.CurrentPage)
	assert.Equal(t, 100, result.Entry.ProgressPercent)
}

func TestRecordCheckIn_ClampsPagePositionToPageCount(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", intPtr(100))

	_, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 100})
	require.NoError(t, err)

	second, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 10})
	require.NoError(t, err)

	assert.Equal(t, 100, second.Entry.CurrentPage)
	assert.Equal(t, 100, second.EndPage)
}

func TestRecordCheckIn_MarkFinishedWithoutPageCount(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", nil)

	result, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 30, MarkFinished: true})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusFinished, result.Entry.Status)
	assert.Equal(t, 100, result.Entry.ProgressPercent)
	assert.NotNil(t, result.Entry.FinishedReadingAt)
}

func TestRecordCheckIn_FinishedStaysFinished(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", intPtr(100))

	first, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 100})
	require.NoError(t, err)
	require.NotNil(t, first.Entry.FinishedReadingAt)
	finishedAt := *first.Entry.FinishedReadingAt

	time.Sleep(10 * time.Millisecond)

	second, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 10})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusFinished, second.Entry.Status)
	require.NotNil(t, second.Entry.FinishedReadingAt)
	assert.WithinDuration(t, finishedAt, *second.Entry.FinishedReadingAt, time.Millisecond)
}

func TestRecordCheckIn_MissingBookIsNotFound(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.RecordCheckIn(9999, CheckInInput{PagesRead: 10})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// Editing a past check-in resets the page position to the sum of the ledger.
func TestUpdateCheckIn_ReconcilesFromLedger(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", intPtr(200))

	first, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 40})
	require.NoError(t, err)
	_, err = repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 60})
	require.NoError(t, err)

	result, err := repo.UpdateCheckIn(entry.BookID, first.Session.ID, CheckInPatch{PagesRead: intPtr(10)})
	require.NoError(t, err)

	assert.Equal(t, 10, result.Session.PagesRead)
	assert.Equal(t, 70, result.Entry.CurrentPage)
	assert.Equal(t, 35, result.Entry.ProgressPercent)
}

func TestUpdateCheckIn_PositionChangeStampsLastReadAt(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", intPtr(200))

	first, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 40})
	require.NoError(t, err)
	require.NotNil(t, first.Entry.LastReadAt)
	recordedAt := *first.Entry.LastReadAt

	time.Sleep(10 * time.Millisecond)

	result, err := repo.UpdateCheckIn(entry.BookID, first.Session.ID, CheckInPatch{PagesRead: intPtr(30)})
	require.NoError(t, err)

	require.NotNil(t, result.Entry.LastReadAt)
	assert.True(t, result.Entry.LastReadAt.After(recordedAt))
}

func TestUpdateCheckIn_NotesOnlyKeepsPosition(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", intPtr(200))

	first, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 40})
	require.NoError(t, err)

	notes := "rewrote the note"
	result, err := repo.UpdateCheckIn(entry.BookID, first.Session.ID, CheckInPatch{Notes: &notes})
	require.NoError(t, err)

	assert.Equal(t, "rewrote the note", result.Session.Notes)
	assert.Equal(t, 40, result.Entry.CurrentPage)
}

func TestUpdateCheckIn_EmptyPatchRejected(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", intPtr(200))
	first, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 40})
	require.NoError(t, err)

	_, err = repo.UpdateCheckIn(entry.BookID, first.Session.ID, CheckInPatch{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteCheckIn_ReconcilesFromLedger(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", intPtr(200))

	first, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 40})
	require.NoError(t, err)
	_, err = repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 60})
	require.NoError(t, err)

	updated, err := repo.DeleteCheckIn(entry.BookID, first.Session.ID)
	require.NoError(t, err)

	assert.Equal(t, 60, updated.CurrentPage)
	assert.Equal(t, 30, updated.ProgressPercent)

	sessions, err := repo.ListForBook(entry.BookID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestDeleteCheckIn_LastSessionZeroesPosition(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", intPtr(200))

	first, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 40})
	require.NoError(t, err)

	updated, err := repo.DeleteCheckIn(entry.BookID, first.Session.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, updated.CurrentPage)
	assert.Equal(t, 0, updated.ProgressPercent)
}

func TestDeleteCheckIn_WrongBookIsNotFound(t *testing.T) {
	repo, bookRepo, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addReadingBook(t, bookRepo, "Test Book", intPtr(200))
	other := addReadingBook(t, bookRepo, "Other Book", intPtr(200))

	first, err := repo.RecordCheckIn(entry.BookID, CheckInInput{PagesRead: 40})
	require.NoError(t, err)

	_, err = repo.DeleteCheckIn(other.BookID, first.Session.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
