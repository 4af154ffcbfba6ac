// Package importers parses Goodreads library exports and loads them into the
// catalog and library tables.
package importers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"booktracker/internal/entities"
)

// GoodreadsRow represents a single row from a Goodreads library export CSV.
type GoodreadsRow struct {
	BookID                  string
	Title                   string
	Author                  string
	AdditionalAuthors       string
	ISBN                    string
	ISBN13                  string
	MyRating                string
	AverageRating           string
	Publisher               string
	Binding                 string
	NumberOfPages           string
	YearPublished           string
	OriginalPublicationYear string
	DateRead                string
	DateAdded               string
	Bookshelves             string
	ExclusiveShelf          string
	ReadCount               string
}

// ImportResult summarizes one import run.
type ImportResult struct {
	BooksImported int      `json:"books_imported"`
	Skipped       int      `json:"skipped"`
	TagsCreated   int      `json:"tags_created"`
	Errors        []string `json:"errors,omitempty"`
}

// exclusiveShelves are Goodreads' built-in shelves; they map onto statuses
// and never become tags.
var exclusiveShelves = map[string]entities.Status{
	"to-read":           entities.StatusWantToRead,
	"currently-reading": entities.StatusReading,
	"read":              entities.StatusFinished,
}

// cleanISBN strips the ="..." wrapper Goodreads puts around ISBN columns.
func cleanISBN(raw string) string {
	cleaned := strings.TrimPrefix(raw, "=")
	cleaned = strings.Trim(cleaned, `"`)
	return strings.TrimSpace(cleaned)
}

// parseGoodreadsDate parses the YYYY/MM/DD format used in exports.
func parseGoodreadsDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006/01/02", raw)
	if err != nil {
		return nil
	}
	return &t
}

func mapShelfToStatus(shelf string) entities.Status {
	if status, ok := exclusiveShelves[shelf]; ok {
		return status
	}
	return entities.StatusWantToRead
}

// parseBookshelves splits the comma-separated shelf list, dropping the
// exclusive shelves.
func parseBookshelves(raw string) []string {
	if raw == "" {
		return nil
	}
	var shelves []string
	for _, shelf := range strings.Split(raw, ",") {
		shelf = strings.TrimSpace(shelf)
		if shelf == "" {
			continue
		}
		if _, exclusive := exclusiveShelves[shelf]; exclusive {
			continue
		}
		shelves = append(shelves, shelf)
	}
	return shelves
}

// ParseGoodreadsCSV parses a Goodreads library export. Returns the parsed
// rows, per-line parse errors, and a fatal error when the file is not a
// Goodreads export at all.
func ParseGoodreadsCSV(r io.Reader) ([]GoodreadsRow, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	headerIndex := make(map[string]int)
	for i, h := range header {
		headerIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for _, required := range []string{"title", "author", "exclusive shelf"} {
		if _, ok := headerIndex[required]; !ok {
			return nil, nil, fmt.Errorf("missing required header: %s", required)
		}
	}

	var rows []GoodreadsRow
	var parseErrors []string
	lineNum := 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("Line %d: %v", lineNum, err))
			continue
		}

		rows = append(rows, GoodreadsRow{
			BookID:                  getColumn(record, headerIndex, "book id"),
			Title:                   getColumn(record, headerIndex, "title"),
			Author:                  getColumn(record, headerIndex, "author"),
			AdditionalAuthors:       getColumn(record, headerIndex, "additional authors"),
			ISBN:                    cleanISBN(getColumn(record, headerIndex, "isbn")),
			ISBN13:                  cleanISBN(getColumn(record, headerIndex, "isbn13")),
			MyRating:                getColumn(record, headerIndex, "my rating"),
			AverageRating:           getColumn(record, headerIndex, "average rating"),
			Publisher:               getColumn(record, headerIndex, "publisher"),
			Binding:                 getColumn(record, headerIndex, "binding"),
			NumberOfPages:           getColumn(record, headerIndex, "number of pages"),
			YearPublished:           getColumn(record, headerIndex, "year published"),
			OriginalPublicationYear: getColumn(record, headerIndex, "original publication year"),
			DateRead:                getColumn(record, headerIndex, "date read"),
			DateAdded:               getColumn(record, headerIndex, "date added"),
			Bookshelves:             getColumn(record, headerIndex, "bookshelves"),
			ExclusiveShelf:          getColumn(record, headerIndex, "exclusive shelf"),
			ReadCount:               getColumn(record, headerIndex, "read count"),
		})
	}

	return rows, parseErrors, nil
}

func getColumn(record []string, headerIndex map[string]int, name string) string {
	idx, ok := headerIndex[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// GoodreadsImporter loads parsed rows into the database.
type GoodreadsImporter struct {
	db *gorm.DB
}

func NewGoodreadsImporter(db *gorm.DB) *GoodreadsImporter {
	return &GoodreadsImporter{db: db}
}

// Import creates catalog books, library entries, and shelf tags for every
// row. Books already present in the library are skipped, so re-running an
// import never clobbers local progress.
func (imp *GoodreadsImporter) Import(rows []GoodreadsRow) (*ImportResult, error) {
	result := &ImportResult{}
	tagCache := make(map[string]*entities.Tag)

	for i, row := range rows {
		if row.Title == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: missing title", i+1))
			continue
		}
		if err := imp.importRow(row, result, tagCache); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d (%s): %v", i+1, row.Title, err))
		}
	}

	result.TagsCreated = len(tagCache)
	return result, nil
}

func (imp *GoodreadsImporter) importRow(row GoodreadsRow, result *ImportResult, tagCache map[string]*entities.Tag) error {
	return imp.db.Transaction(func(tx *gorm.DB) error {
		book, err := imp.findOrCreateBook(tx, row)
		if err != nil {
			return err
		}

		var existing entities.LibraryEntry
		err = tx.Where("book_id = ?", book.ID).First(&existing).Error
		if err == nil {
			result.Skipped++
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		entry := buildEntry(book, row)
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		// A finished import with a known completion date gets one ledger
		// entry covering the whole book, so reconciliation stays consistent.
		if entry.Status == entities.StatusFinished && entry.FinishedReadingAt != nil &&
			book.PageCount != nil && *book.PageCount > 0 {
			session := entities.ReadingSession{
				UserBookID: entry.ID,
				PagesRead:  *book.PageCount,
				FinishedAt: *entry.FinishedReadingAt,
			}
			if err := tx.Create(&session).Error; err != nil {
				return err
			}
		}

		for _, shelf := range parseBookshelves(row.Bookshelves) {
			tag, cached := tagCache[strings.ToLower(shelf)]
			if !cached {
				tag = &entities.Tag{Name: shelf}
				err := tx.Where("LOWER(name) = LOWER(?)", shelf).First(tag).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					if err := tx.Create(tag).Error; err != nil {
						return err
					}
				} else if err != nil {
					return err
				}
				tagCache[strings.ToLower(shelf)] = tag
			}
			if err := tx.Model(entry).Association("Tags").Append(tag); err != nil {
				return err
			}
		}

		result.BooksImported++
		return nil
	})
}

func (imp *GoodreadsImporter) findOrCreateBook(tx *gorm.DB, row GoodreadsRow) (*entities.Book, error) {
	var book entities.Book

	lookups := []struct {
		query string
		value string
	}{
		{"goodreads_id = ?", row.BookID},
		{"isbn13 = ?", row.ISBN13},
		{"isbn = ?", row.ISBN},
	}
	for _, lookup := range lookups {
		if lookup.value == "" {
			continue
		}
		err := tx.Where(lookup.query, lookup.value).First(&book).Error
		if err == nil {
			return &book, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	err := tx.Where("title = ? AND author = ?", row.Title, row.Author).First(&book).Error
	if err == nil {
		return &book, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	book = entities.Book{
		GoodreadsID:       row.BookID,
		ISBN:              row.ISBN,
		ISBN13:            row.ISBN13,
		Title:             row.Title,
		Author:            row.Author,
		AdditionalAuthors: row.AdditionalAuthors,
		Publisher:         row.Publisher,
		Binding:           row.Binding,
	}
	if pages, err := strconv.Atoi(row.NumberOfPages); err == nil && pages > 0 {
		book.PageCount = &pages
	}
	if year, err := strconv.Atoi(row.YearPublished); err == nil {
		book.YearPublished = year
	}
	if year, err := strconv.Atoi(row.OriginalPublicationYear); err == nil {
		book.OriginalPublicationYear = year
	}
	if rating, err := strconv.ParseFloat(row.AverageRating, 64); err == nil {
		book.GoodreadsAvgRating = rating
	}
	if err := tx.Create(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func buildEntry(book *entities.Book, row GoodreadsRow) *entities.LibraryEntry {
	entry := &entities.LibraryEntry{
		BookID:    book.ID,
		Status:    mapShelfToStatus(row.ExclusiveShelf),
		DateAdded: time.Now(),
	}
	if added := parseGoodreadsDate(row.DateAdded); added != nil {
		entry.DateAdded = *added
	}
	if rating, err := strconv.Atoi(row.MyRating); err == nil && rating >= 0 && rating <= 5 {
		entry.MyRating = rating
	}
	if count, err := strconv.Atoi(row.ReadCount); err == nil {
		entry.ReadCount = count
	}

	if entry.Status == entities.StatusFinished {
		entry.FinishedReadingAt = parseGoodreadsDate(row.DateRead)
		entry.ProgressPercent = 100
		if book.PageCount != nil {
			entry.CurrentPage = *book.PageCount
		}
	}
	return entry
}
