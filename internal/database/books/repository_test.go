package books

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
	"booktracker/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB, func()) {
	dbPath := "./test_books_" + t.Name() + ".db"

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
		&entities.LearningPath{},
		&entities.LearningPathBook{},
	)
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, db, cleanup
}

func intPtr(v int) *int                         { return &v }
func statusPtr(s entities.Status) *entities.Status { return &s }

func addBook(t *testing.T, repo *Repository, title string, pageCount *int) *entities.LibraryEntry {
	t.Helper()
	entry, err := repo.AddBook(AddBookInput{
		Title:     title,
		Author:    "Test Author",
		PageCount: pageCount,
	})
	require.NoError(t, err)
	return entry
}

func TestAddBook_CreatesCatalogAndEntry(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	entry, err := repo.AddBook(AddBookInput{
		Title:  "The Pragmatic Programmer",
		Author: "Hunt",
		ISBN13: "9780135957059",
	})
	require.NoError(t, err)

	assert.NotZero(t, entry.ID)
	assert.NotZero(t, entry.BookID)
	assert.Equal(t, entities.StatusWantToRead, entry.Status)
	assert.False(t, entry.DateAdded.IsZero())
}

func TestAddBook_DuplicateByISBN13IsConflict(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	first, err := repo.AddBook(AddBookInput{
		Title:  "Dune",
		Author: "Herbert",
		ISBN13: "9780441172719",
	})
	require.NoError(t, err)

	// Same ISBN-13, different title spelling: still the same catalog book
	_, err = repo.AddBook(AddBookInput{
		Title:  "Dune (Anniversary Edition)",
		Author: "Frank Herbert",
		ISBN13: "9780441172719",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// First entry is unaffected
	got, err := repo.GetByBookID(first.BookID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, entities.StatusWantToRead, got.Status)
}

func TestAddBook_DuplicateByTitleAuthorIsConflict(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	addBook(t, repo, "Sapiens", nil)

	_, err := repo.AddBook(AddBookInput{Title: "Sapiens", Author: "Test Author"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAddBook_RequiresTitle(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.AddBook(AddBookInput{Author: "Anonymous"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateEntry_DerivesProgressFromCurrentPage(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addBook(t, repo, "Test", intPtr(300))

	updated, err := repo.UpdateEntry(entry.BookID, EntryPatch{CurrentPage: intPtr(150)})
	require.NoError(t, err)

	assert.Equal(t, 150, updated.CurrentPage)
	assert.Equal(t, 50, updated.ProgressPercent)
	assert.NotNil(t, updated.LastReadAt)
}

func TestUpdateEntry_ExplicitProgressWins(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addBook(t, repo, "Test", intPtr(300))

	updated, err := repo.UpdateEntry(entry.BookID, EntryPatch{
		CurrentPage:     intPtr(150),
		ProgressPercent: intPtr(42),
	})
	require.NoError(t, err)

	assert.Equal(t, 150, updated.CurrentPage)
	assert.Equal(t, 42, updated.ProgressPercent)
}

func TestUpdateEntry_UnknownPageCountLeavesProgress(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addBook(t, repo, "Test", nil)

	_, err := repo.UpdateEntry(entry.BookID, EntryPatch{ProgressPercent: intPtr(30)})
	require.NoError(t, err)

	updated, err := repo.UpdateEntry(entry.BookID, EntryPatch{CurrentPage: intPtr(80)})
	require.NoError(t, err)

	// No page count: the page position cannot re-derive the percentage
	assert.Equal(t, 80, updated.CurrentPage)
	assert.Equal(t, 30, updated.ProgressPercent)
}

// Scenario C: a pure priority change must not touch progress or activity.
func TestUpdateEntry_PriorityOnlyLeavesProgressAlone(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addBook(t, repo, "Test", intPtr(300))

	updated, err := repo.UpdateEntry(entry.BookID, EntryPatch{Priority: intPtr(3)})
	require.NoError(t, err)

	assert.Equal(t, 3, updated.Priority)
	assert.Equal(t, entities.StatusWantToRead, updated.Status)
	assert.Equal(t, 0, updated.CurrentPage)
	assert.Equal(t, 0, updated.ProgressPercent)
	assert.Nil(t, updated.LastReadAt)
}

func TestUpdateEntry_StartedReadingAtFiresOnce(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addBook(t, repo, "Test", intPtr(300))

	updated, err := repo.UpdateEntry(entry.BookID, EntryPatch{Status: statusPtr(entities.StatusReading)})
	require.NoError(t, err)
	require.NotNil(t, updated.StartedReadingAt)
	started := *updated.StartedReadingAt

	time.Sleep(10 * time.Millisecond)

	// reading -> finished -> reading must keep the original timestamp
	_, err = repo.UpdateEntry(entry.BookID, EntryPatch{Status: statusPtr(entities.StatusFinished)})
	require.NoError(t, err)
	updated, err = repo.UpdateEntry(entry.BookID, EntryPatch{Status: statusPtr(entities.StatusReading)})
	require.NoError(t, err)

	require.NotNil(t, updated.StartedReadingAt)
	assert.WithinDuration(t, started, *updated.StartedReadingAt, time.Millisecond)
}

func TestUpdateEntry_FinishedSaturatesProgress(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addBook(t, repo, "Test", intPtr(300))

	_, err := repo.UpdateEntry(entry.BookID, EntryPatch{CurrentPage: intPtr(120)})
	require.NoError(t, err)

	updated, err := repo.UpdateEntry(entry.BookID, EntryPatch{Status: statusPtr(entities.StatusFinished)})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusFinished, updated.Status)
	assert.Equal(t, 100, updated.ProgressPercent)
	assert.Equal(t, 300, updated.CurrentPage)
	assert.NotNil(t, updated.FinishedReadingAt)
}

// Completion overrides partial page data supplied in the same update.
func TestUpdateEntry_FinishedOverridesPartialPages(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addBook(t, repo, "Test", intPtr(300))

	updated, err := repo.UpdateEntry(entry.BookID, EntryPatch{
		Status:      statusPtr(entities.StatusFinished),
		CurrentPage: intPtr(250),
	})
	require.NoError(t, err)

	assert.Equal(t, 300, updated.CurrentPage)
	assert.Equal(t, 100, updated.ProgressPercent)
}

func TestUpdateEntry_FinishTwiceIsIdempotent(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addBook(t, repo, "Test", intPtr(300))

	first, err := repo.UpdateEntry(entry.BookID, EntryPatch{Status: statusPtr(entities.StatusFinished)})
	require.NoError(t, err)
	require.NotNil(t, first.FinishedReadingAt)
	finishedAt := *first.FinishedReadingAt

	time.Sleep(10 * time.Millisecond)

	second, err := repo.UpdateEntry(entry.BookID, EntryPatch{Status: statusPtr(entities.StatusFinished)})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusFinished, second.Status)
	assert.Equal(t, 100, second.ProgressPercent)
	assert.Equal(t, 300, second.CurrentPage)
	require.NotNil(t, second.FinishedReadingAt)
	assert.WithinDuration(t, finishedAt, *second.FinishedReadingAt, time.Millisecond)
}

func TestUpdateEntry_EmptyPatchRejected(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addBook(t, repo, "Test", intPtr(300))

	_, err := repo.UpdateEntry(entry.BookID, EntryPatch{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateEntry_UnknownStatusRejected(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addBook(t, repo, "Test", intPtr(300))

	bad := entities.Status("owned")
	_, err := repo.UpdateEntry(entry.BookID, EntryPatch{Status: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateEntry_MissingEntryIsNotFound(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.UpdateEntry(9999, EntryPatch{Priority: intPtr(1)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestList_FilterSortPaginate(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	titles := []string{"Alpha", "Bravo", "Charlie"}
	for _, title := range titles {
		addBook(t, repo, title, intPtr(100))
	}
	entry := addBook(t, repo, "Delta", intPtr(100))
	_, err := repo.UpdateEntry(entry.BookID, EntryPatch{Status: statusPtr(entities.StatusReading)})
	require.NoError(t, err)

	// Status filter
	result, err := repo.List(ListParams{Status: entities.StatusReading})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Total)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "Delta", result.Entries[0].Book.Title)

	// Sort by title ascending
	result, err = repo.List(ListParams{Sort: SortTitle})
	require.NoError(t, err)
	require.Len(t, result.Entries, 4)
	assert.Equal(t, "Alpha", result.Entries[0].Book.Title)
	assert.Equal(t, "Delta", result.Entries[3].Book.Title)

	// Pagination
	result, err = repo.List(ListParams{Sort: SortTitle, Page: 2, PerPage: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, result.Total)
	assert.Equal(t, 2, result.Pages)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "Delta", result.Entries[0].Book.Title)

	// Search
	result, err = repo.List(ListParams{Search: "rav"})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "Bravo", result.Entries[0].Book.Title)
}

func TestList_UnknownSortKeyRejected(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.List(ListParams{Sort: SortKey("status; DROP TABLE books")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteEntry_CascadesToLedger(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	entry := addBook(t, repo, "Test", intPtr(300))

	session := entities.ReadingSession{UserBookID: entry.ID, PagesRead: 50, FinishedAt: time.Now()}
	require.NoError(t, db.Create(&session).Error)

	require.NoError(t, repo.DeleteEntry(entry.BookID))

	var sessionCount int64
	require.NoError(t, db.Model(&entities.ReadingSession{}).Where("user_book_id = ?", entry.ID).Count(&sessionCount).Error)
	assert.Zero(t, sessionCount)

	// The catalog record survives
	var bookCount int64
	require.NoError(t, db.Model(&entities.Book{}).Where("id = ?", entry.BookID).Count(&bookCount).Error)
	assert.EqualValues(t, 1, bookCount)

	_, err := repo.GetByBookID(entry.BookID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
