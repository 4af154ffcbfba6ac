package entities

import (
	"time"
)

// Status is the reading lifecycle state of a library entry. The set is
// closed and enforced with a CHECK constraint; ownership is modelled as
// separate boolean attributes, never as a status value.
type Status string

const (
	StatusWantToRead Status = "want_to_read"
	StatusQueued     Status = "queued"
	StatusReading    Status = "reading"
	StatusFinished   Status = "finished"
	StatusAbandoned  Status = "abandoned"
)

// AllStatuses lists every valid status in pipeline order.
var AllStatuses = []Status{
	StatusWantToRead,
	StatusQueued,
	StatusReading,
	StatusFinished,
	StatusAbandoned,
}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusWantToRead, StatusQueued, StatusReading, StatusFinished, StatusAbandoned:
		return true
	}
	return false
}

// Book is a catalog record: canonical metadata independent of the user's
// relationship to the book. Created on first reference, never deleted while
// a LibraryEntry points at it.
type Book struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	GoodreadsID             string    `gorm:"index;size:20" json:"goodreads_id,omitempty"`
	OpenLibraryKey          string    `gorm:"size:64" json:"open_library_key,omitempty"`
	ISBN                    string    `gorm:"index;size:20" json:"isbn,omitempty"`
	ISBN13                  string    `gorm:"index;size:20" json:"isbn13,omitempty"`
	Title                   string    `gorm:"index;size:512" json:"title"`
	Author                  string    `gorm:"index;size:256" json:"author"`
	AdditionalAuthors       string    `gorm:"size:512" json:"additional_authors,omitempty"`
	Publisher               string    `gorm:"size:256" json:"publisher,omitempty"`
	Binding                 string    `gorm:"size:50" json:"binding,omitempty"`
	PageCount               *int      `json:"page_count,omitempty"`
	YearPublished           int       `json:"year_published,omitempty"`
	OriginalPublicationYear int       `json:"original_publication_year,omitempty"`
	Description             string    `gorm:"type:text" json:"description,omitempty"`
	CoverImageURL           string    `gorm:"size:2048" json:"cover_image_url,omitempty"`
	GoodreadsAvgRating      float64   `json:"goodreads_avg_rating,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// EffectiveCoverURL returns the stored cover URL, falling back to the Open
// Library ISBN cover when none has been set yet.
func (b Book) EffectiveCoverURL() string {
	if b.CoverImageURL != "" {
		return b.CoverImageURL
	}
	isbn := b.ISBN13
	if isbn == "" {
		isbn = b.ISBN
	}
	if isbn == "" {
		return ""
	}
	return "https://covers.openlibrary.org/b/isbn/" + isbn + "-M.jpg"
}

// LibraryEntry is the user's relationship to a catalog book: status,
// progress, ownership, provenance. At most one entry exists per book.
type LibraryEntry struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	BookID          uint       `gorm:"uniqueIndex" json:"book_id"`
	Status          Status     `gorm:"size:20;check:status IN ('want_to_read','queued','reading','finished','abandoned');index" json:"status"`
	MyRating        int        `gorm:"check:my_rating >= 0 AND my_rating <= 5" json:"my_rating"`
	DateAdded       time.Time  `gorm:"index" json:"date_added"`
	StartedReadingAt  *time.Time `json:"started_reading_at,omitempty"`
	FinishedReadingAt *time.Time `gorm:"index" json:"finished_reading_at,omitempty"`
	LastReadAt        *time.Time `gorm:"index" json:"last_read_at,omitempty"`
	ReadCount       int        `json:"read_count"`
	CurrentPage     int        `json:"current_page"`
	ProgressPercent int        `json:"progress_percent"`
	WhyReading      string     `gorm:"type:text" json:"why_reading,omitempty"`
	Priority        int        `gorm:"index" json:"priority"`
	OwnsKindle      bool       `json:"owns_kindle"`
	OwnsAudible     bool       `json:"owns_audible"`
	OwnsHardcopy    bool       `json:"owns_hardcopy"`
	IdeaSource      string     `gorm:"size:256" json:"idea_source,omitempty"`
	SourceBookID    *uint      `gorm:"index" json:"source_book_id,omitempty"`
	DateCaptured    *time.Time `json:"date_captured,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Book     Book             `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Sessions []ReadingSession `gorm:"foreignKey:UserBookID;constraint:OnDelete:CASCADE" json:"sessions,omitempty"`
	Notes    []Note           `gorm:"foreignKey:UserBookID;constraint:OnDelete:CASCADE" json:"notes,omitempty"`
	Tags     []Tag            `gorm:"many2many:user_book_tags;" json:"tags,omitempty"`
}

// ReadingSession is one check-in in the progress ledger: the number of pages
// read in one sitting. FinishedAt records when the check-in happened, not
// when the book was completed.
type ReadingSession struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserBookID uint      `gorm:"index" json:"user_book_id"`
	PagesRead  int       `json:"pages_read"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`
	FinishedAt time.Time `gorm:"index" json:"finished_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Note is free-form text attached to a library entry.
type Note struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserBookID uint      `gorm:"index" json:"user_book_id"`
	Title      string    `gorm:"size:256" json:"title,omitempty"`
	Content    string    `gorm:"type:text" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Tag struct {
	ID      uint           `gorm:"primaryKey" json:"id"`
	Name    string         `gorm:"uniqueIndex;size:100" json:"name"`
	Color   string         `gorm:"size:10" json:"color,omitempty"`
	Entries []LibraryEntry `gorm:"many2many:user_book_tags;" json:"-"`
	CreatedAt time.Time    `json:"created_at"`
}

// LearningPath is a user-defined ordered grouping of library entries.
type LearningPath struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:256" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Color       string    `gorm:"size:10;default:'#58a6ff'" json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LearningPathBook orders one library entry inside one path. Position is
// user-controlled; the schema does not force positions to be unique or
// contiguous.
type LearningPathBook struct {
	LearningPathID uint      `gorm:"primaryKey" json:"learning_path_id"`
	UserBookID     uint      `gorm:"primaryKey" json:"user_book_id"`
	Position       int       `gorm:"default:0" json:"position"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Book) TableName() string {
	return "books"
}

func (LibraryEntry) TableName() string {
	return "user_books"
}

func (ReadingSession) TableName() string {
	return "reading_sessions"
}

func (Note) TableName() string {
	return "notes"
}

func (Tag) TableName() string {
	return "tags"
}

func (LearningPath) TableName() string {
	return "learning_paths"
}

func (LearningPathBook) TableName() string {
	return "learning_path_books"
}

// DeriveProgress computes the saturating progress percentage for a page
// position: min(100, floor(currentPage*100/pageCount)). Returns ok=false
// when the page count is unknown or non-positive, in which case the stored
// percent must be left alone.
func DeriveProgress(currentPage int, pageCount *int) (percent int, ok bool) {
	if pageCount == nil || *pageCount <= 0 {
		return 0, false
	}
	if currentPage < 0 {
		currentPage = 0
	}
	percent = currentPage * 100 / *pageCount
	if percent > 100 {
		percent = 100
	}
	return percent, true
}
