// Package reports provides the derived read-only projections over the
// library: dashboard, status pipeline, and statistics.
package reports

import (
	"gorm.io/gorm"

	"booktracker/internal/database/paths"
	"booktracker/internal/database/settings"
	"booktracker/internal/entities"
)

// PipelineEntry is one book of a pipeline bucket together with the names of
// the learning paths it belongs to.
type PipelineEntry struct {
	entities.LibraryEntry
	LearningPaths []string `json:"learning_paths"`
}

// Pipeline is the kanban projection: every entry partitioned into the five
// status buckets, each with its own ordering.
type Pipeline struct {
	WantToRead []PipelineEntry `json:"want_to_read"`
	Queued     []PipelineEntry `json:"queued"`
	Reading    []PipelineEntry `json:"reading"`
	Finished   []PipelineEntry `json:"finished"`
	Abandoned  []PipelineEntry `json:"abandoned"`
	WIPLimit   int             `json:"wip_limit"`
}

// DashboardPath is a learning path with progress counts and the next
// unfinished book.
type DashboardPath struct {
	entities.LearningPath
	BookCount     int                    `json:"book_count"`
	FinishedCount int                    `json:"finished_count"`
	NextBook      *entities.LibraryEntry `json:"next_book"`
}

// Dashboard is the landing page projection.
type Dashboard struct {
	CurrentlyReading []entities.LibraryEntry `json:"currently_reading"`
	Queued           []entities.LibraryEntry `json:"queued"`
	LearningPaths    []DashboardPath         `json:"learning_paths"`
	WIPLimit         int                     `json:"wip_limit"`
	ReadingCount     int                     `json:"reading_count"`
}

// YearCount is the number of books finished in one year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// AuthorCount is the number of library books by one author.
type AuthorCount struct {
	Author string `json:"author"`
	Count  int    `json:"count"`
}

// TagCount is the number of library books carrying one tag.
type TagCount struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

// Stats is the statistics projection.
type Stats struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	BooksByYear    []YearCount    `json:"books_by_year"`
	AvgDaysToRead  *float64       `json:"avg_days_to_read"`
	TotalPagesRead int            `json:"total_pages_read"`
	TopAuthors     []AuthorCount  `json:"top_authors"`
	TopTags        []TagCount     `json:"top_tags"`
}

// Repository computes the reporting projections.
type Repository struct {
	db       *gorm.DB
	paths    *paths.Repository
	settings *settings.Repository
}

// NewRepository creates a new reports repository.
func NewRepository(db *gorm.DB, pathRepo *paths.Repository, settingsRepo *settings.Repository) *Repository {
	return &Repository{db: db, paths: pathRepo, settings: settingsRepo}
}

// Pipeline partitions the whole library into the five status buckets. Each
// bucket keeps its own ordering and every entry carries its learning path
// memberships. The WIP limit comes along for client display only; nothing
// here enforces it.
func (r *Repository) Pipeline() (*Pipeline, error) {
	orderings := map[entities.Status]string{
		entities.StatusWantToRead: "user_books.date_added DESC",
		entities.StatusQueued:     "user_books.priority DESC, user_books.date_added ASC",
		entities.StatusReading:    "user_books.last_read_at IS NULL, user_books.last_read_at DESC",
		entities.StatusFinished:   "user_books.finished_reading_at DESC",
		entities.StatusAbandoned:  "user_books.date_added DESC",
	}

	buckets := make(map[entities.Status][]PipelineEntry, len(orderings))
	var allIDs []uint
	for status, order := range orderings {
		var entries []entities.LibraryEntry
		err := r.db.Model(&entities.LibraryEntry{}).
			Preload("Book").Preload("Tags").
			Where("user_books.status = ?", status).
			Order(order).
			Find(&entries).Error
		if err != nil {
			return nil, err
		}
		bucket := make([]PipelineEntry, 0, len(entries))
		for _, entry := range entries {
			allIDs = append(allIDs, entry.ID)
			bucket = append(bucket, PipelineEntry{LibraryEntry: entry, LearningPaths: []string{}})
		}
		buckets[status] = bucket
	}

	memberships, err := r.paths.MembershipsFor(allIDs)
	if err != nil {
		return nil, err
	}
	for _, bucket := range buckets {
		for i := range bucket {
			if names, ok := memberships[bucket[i].ID]; ok {
				bucket[i].LearningPaths = names
			}
		}
	}

	limit, err := r.settings.WIPLimit()
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		WantToRead: buckets[entities.StatusWantToRead],
		Queued:     buckets[entities.StatusQueued],
		Reading:    buckets[entities.StatusReading],
		Finished:   buckets[entities.StatusFinished],
		Abandoned:  buckets[entities.StatusAbandoned],
		WIPLimit:   limit,
	}, nil
}

// Dashboard builds the landing page projection.
func (r *Repository) Dashboard() (*Dashboard, error) {
	var reading []entities.LibraryEntry
	err := r.db.Model(&entities.LibraryEntry{}).
		Preload("Book").Preload("Tags").
		Where("status = ?", entities.StatusReading).
		Order("last_read_at IS NULL").
		Order("last_read_at DESC").
		Order("priority DESC").
		Find(&reading).Error
	if err != nil {
		return nil, err
	}

	var queued []entities.LibraryEntry
	err = r.db.Model(&entities.LibraryEntry{}).
		Preload("Book").Preload("Tags").
		Where("status = ?", entities.StatusQueued).
		Order("priority DESC, date_added ASC").
		Limit(10).
		Find(&queued).Error
	if err != nil {
		return nil, err
	}

	summaries, err := r.paths.List()
	if err != nil {
		return nil, err
	}
	dashPaths := make([]DashboardPath, 0, len(summaries))
	for _, summary := range summaries {
		next, err := r.paths.NextBook(summary.ID)
		if err != nil {
			return nil, err
		}
		dashPaths = append(dashPaths, DashboardPath{
			LearningPath:  summary.LearningPath,
			BookCount:     summary.BookCount,
			FinishedCount: summary.FinishedCount,
			NextBook:      next,
		})
	}

	limit, err := r.settings.WIPLimit()
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		CurrentlyReading: reading,
		Queued:           queued,
		LearningPaths:    dashPaths,
		WIPLimit:         limit,
		ReadingCount:     len(reading),
	}, nil
}

// Stats computes library-wide statistics.
func (r *Repository) Stats() (*Stats, error) {
	stats := &Stats{ByStatus: make(map[string]int)}

	type statusRow struct {
		Status string
		Count  int
	}
	var statusRows []statusRow
	err := r.db.Model(&entities.LibraryEntry{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}
	for _, status := range entities.AllStatuses {
		if _, ok := stats.ByStatus[string(status)]; !ok {
			stats.ByStatus[string(status)] = 0
		}
	}

	err = r.db.Model(&entities.LibraryEntry{}).
		Select("CAST(strftime('%Y', finished_reading_at) AS INTEGER) AS year, COUNT(*) AS count").
		Where("status = ? AND finished_reading_at IS NOT NULL", entities.StatusFinished).
		Group("year").
		Order("year ASC").
		Scan(&stats.BooksByYear).Error
	if err != nil {
		return nil, err
	}

	// Negative spans (finished before added, seen after imports) are skipped.
	var avg *float64
	err = r.db.Model(&entities.LibraryEntry{}).
		Select("AVG(julianday(finished_reading_at) - julianday(date_added))").
		Where("status = ? AND finished_reading_at IS NOT NULL", entities.StatusFinished).
		Where("julianday(finished_reading_at) >= julianday(date_added)").
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	stats.AvgDaysToRead = avg

	err = r.db.Model(&entities.LibraryEntry{}).
		Select("COALESCE(SUM(books.page_count), 0)").
		Joins("JOIN books ON books.id = user_books.book_id").
		Where("user_books.status = ? AND books.page_count IS NOT NULL", entities.StatusFinished).
		Scan(&stats.TotalPagesRead).Error
	if err != nil {
		return nil, err
	}

	err = r.db.Model(&entities.LibraryEntry{}).
		Select("books.author AS author, COUNT(*) AS count").
		Joins("JOIN books ON books.id = user_books.book_id").
		Where("books.author != ''").
		Group("books.author").
		Order("count DESC, books.author ASC").
		Limit(10).
		Scan(&stats.TopAuthors).Error
	if err != nil {
		return nil, err
	}

	err = r.db.Model(&entities.Tag{}).
		Select("tags.name AS name, tags.color AS color, COUNT(user_book_tags.library_entry_id) AS count").
		Joins("JOIN user_book_tags ON user_book_tags.tag_id = tags.id").
		Group("tags.id").
		Order("count DESC, tags.name ASC").
		Limit(20).
		Scan(&stats.TopTags).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}
