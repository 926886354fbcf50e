// Package flashcards provides database operations for flashcards.
//
// Cards are written once, in a batch, right after their book is resolved and
// are never edited here. Listing always filters by the owning book.
package flashcards

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/bookcards/internal/entities"
)

const insertBatchSize = 100

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBatch inserts all cards in a single transaction: either every card is
// stored or none is.
func (r *Repository) CreateBatch(ctx context.Context, cards []entities.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Book").CreateInBatches(cards, insertBatchSize).Error
	})
}

// ListByBook returns a page of a book's cards in insertion order with the
// owning book preloaded.
func (r *Repository) ListByBook(ctx context.Context, bookID uint, offset, limit int) ([]entities.Flashcard, error) {
	var cards []entities.Flashcard
	err := r.db.WithContext(ctx).Preload("Book").
		Where("book_id = ?", bookID).
		Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&cards).Error
	return cards, err
}

// ListByBookAfter returns up to limit cards of a book with an ID lower than
// afterID, newest first. An afterID of zero starts from the newest card.
func (r *Repository) ListByBookAfter(ctx context.Context, bookID, afterID uint, limit int) ([]entities.Flashcard, error) {
	var cards []entities.Flashcard
	query := r.db.WithContext(ctx).Preload("Book").
		Where("book_id = ?", bookID).
		Order("id DESC").
		Limit(limit)
	if afterID > 0 {
		query = query.Where("id < ?", afterID)
	}
	err := query.Find(&cards).Error
	return cards, err
}

// LegacyTitles returns the distinct book titles of cards that are linked by
// title text only.
func (r *Repository) LegacyTitles(ctx context.Context) ([]string, error) {
	var titles []string
	err := r.db.WithContext(ctx).Model(&entities.Flashcard{}).
		Where("(book_id IS NULL OR book_id = 0) AND book_title IS NOT NULL AND book_title <> ''").
		Distinct("book_title").
		Pluck("book_title", &titles).Error
	return titles, err
}

// LinkLegacyTitle points every title-linked card carrying title at bookID.
func (r *Repository) LinkLegacyTitle(ctx context.Context, title string, bookID uint, language string) (int64, error) {
	updates := map[string]any{"book_id": bookID}
	if language != "" {
		updates["language"] = gorm.Expr("COALESCE(NULLIF(language, ''), ?)", language)
	}
	result := r.db.WithContext(ctx).Model(&entities.Flashcard{}).
		Where("(book_id IS NULL OR book_id = 0) AND book_title = ?", title).
		Updates(updates)
	return result.RowsAffected, result.Error
}
