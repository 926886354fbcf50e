package entities

import "time"

const (
	// DefaultAuthor is stored when the completion service does not report an author.
	DefaultAuthor = "Unknown"
	// DefaultLanguage is stored when the completion service does not report a language.
	DefaultLanguage = "English"
)

type Book struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"size:512;not null" json:"title"`
	Author          string    `gorm:"index;size:256;not null" json:"author"`
	NormalizedTitle string    `gorm:"uniqueIndex;size:512;not null" json:"normalized_title"`
	Slug            *string   `gorm:"uniqueIndex;size:600" json:"slug,omitempty"` // nil only for rows created before slugs existed
	Language        string    `gorm:"size:64;default:'English'" json:"language"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SlugValue returns the slug or an empty string for legacy rows.
func (b *Book) SlugValue() string {
	if b == nil || b.Slug == nil {
		return ""
	}
	return *b.Slug
}

type Flashcard struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	BookID   uint   `gorm:"index" json:"book_id"`
	Question string `gorm:"type:text;not null" json:"question"`
	Answer   string `gorm:"type:text;not null" json:"answer"`
	Language string `gorm:"size:64" json:"language,omitempty"`

	// Deprecated: cards from the title-linked revision carry only the book title.
	// The backfill migration resolves it into BookID.
	LegacyBookTitle string `gorm:"column:book_title;size:512" json:"-"`

	Book      *Book     `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Book) TableName() string {
	return "books"
}

func (Flashcard) TableName() string {
	return "flashcards"
}
