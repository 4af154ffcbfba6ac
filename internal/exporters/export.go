// Package exporters produces full-library snapshots for backup and for
// spreadsheet use. The JSON bundle is lossless; the CSV flattens each
// library entry into one row.
package exporters

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"booktracker/internal/entities"
)

// Bundle is the lossless JSON export: every aggregate, fully preloaded.
type Bundle struct {
	ExportedAt time.Time               `json:"exported_at"`
	Books      []entities.LibraryEntry `json:"books"`
	Paths      []entities.LearningPath `json:"learning_paths"`
	PathBooks  []entities.LearningPathBook `json:"learning_path_books"`
	Tags       []entities.Tag          `json:"tags"`
	Settings   []entities.Setting      `json:"settings"`
}

type Exporter struct {
	db *gorm.DB
}

func NewExporter(db *gorm.DB) *Exporter {
	return &Exporter{db: db}
}

// ExportBundle loads the whole library into a single serializable snapshot.
func (e *Exporter) ExportBundle() (*Bundle, error) {
	bundle := &Bundle{ExportedAt: time.Now().UTC()}

	err := e.db.
		Preload("Book").
		Preload("Tags").
		Preload("Sessions", func(db *gorm.DB) *gorm.DB { return db.Order("finished_at ASC") }).
		Preload("Notes").
		Order("date_added ASC").
		Find(&bundle.Books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load library entries: %w", err)
	}

	if err := e.db.Order("created_at ASC").Find(&bundle.Paths).Error; err != nil {
		return nil, fmt.Errorf("failed to load learning paths: %w", err)
	}
	if err := e.db.Order("learning_path_id ASC, position ASC").Find(&bundle.PathBooks).Error; err != nil {
		return nil, fmt.Errorf("failed to load path memberships: %w", err)
	}
	if err := e.db.Order("name ASC").Find(&bundle.Tags).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if err := e.db.Order("key ASC").Find(&bundle.Settings).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return bundle, nil
}

var csvHeader = []string{
	"title", "author", "additional_authors", "isbn", "isbn13",
	"status", "my_rating", "page_count", "current_page", "progress_percent",
	"date_added", "started_reading_at", "finished_reading_at",
	"priority", "read_count", "why_reading",
	"owns_kindle", "owns_audible", "owns_hardcopy",
	"publisher", "year_published", "tags",
}

// ExportCSV writes the flattened library, one row per entry, ordered by the
// date the book was added.
func (e *Exporter) ExportCSV(w io.Writer) error {
	var entries []entities.LibraryEntry
	err := e.db.
		Preload("Book").
		Preload("Tags").
		Order("date_added ASC").
		Find(&entries).Error
	if err != nil {
		return fmt.Errorf("failed to load library entries: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range entries {
		if err := writer.Write(entryRow(entry)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func entryRow(entry entities.LibraryEntry) []string {
	tagNames := make([]string, 0, len(entry.Tags))
	for _, tag := range entry.Tags {
		tagNames = append(tagNames, tag.Name)
	}

	pageCount := ""
	if entry.Book.PageCount != nil {
		pageCount = strconv.Itoa(*entry.Book.PageCount)
	}
	yearPublished := ""
	if entry.Book.YearPublished != 0 {
		yearPublished = strconv.Itoa(entry.Book.YearPublished)
	}

	return []string{
		entry.Book.Title,
		entry.Book.Author,
		entry.Book.AdditionalAuthors,
		entry.Book.ISBN,
		entry.Book.ISBN13,
		string(entry.Status),
		strconv.Itoa(entry.MyRating),
		pageCount,
		strconv.Itoa(entry.CurrentPage),
		strconv.Itoa(entry.ProgressPercent),
		formatDate(&entry.DateAdded),
		formatDate(entry.StartedReadingAt),
		formatDate(entry.FinishedReadingAt),
		strconv.Itoa(entry.Priority),
		strconv.Itoa(entry.ReadCount),
		entry.WhyReading,
		strconv.FormatBool(entry.OwnsKindle),
		strconv.FormatBool(entry.OwnsAudible),
		strconv.FormatBool(entry.OwnsHardcopy),
		entry.Book.Publisher,
		yearPublished,
		strings.Join(tagNames, ";"),
	}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
