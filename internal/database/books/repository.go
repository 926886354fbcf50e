// Package books provides database operations for canonical book records.
//
// Rows are keyed by normalized title and slug, both unique. Create relies on
// those indexes: a concurrent insert of the same book fails with
// database.ErrDuplicateKey instead of producing a second row.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetByNormalizedTitle(ctx, "the hobbit")
package books

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/bookcards/internal/entities"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByID retrieves a book by its ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByNormalizedTitle is the point lookup used for deduplication.
func (r *Repository) GetByNormalizedTitle(ctx context.Context, normalizedTitle string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Where("normalized_title = ?", normalizedTitle).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBySlug retrieves a book by its public slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// Create inserts a new book. Unique index violations are returned as
// database.ErrDuplicateKey.
func (r *Repository) Create(ctx context.Context, book *entities.Book) error {
	if book.Language == "" {
		book.Language = entities.DefaultLanguage
	}
	return r.db.WithContext(ctx).Create(book).Error
}

// AssignSlug sets the slug of a legacy book that has none. Rows that already
// carry a slug are left untouched; the returned bool reports whether a row
// was updated.
func (r *Repository) AssignSlug(ctx context.Context, id uint, slug string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).
		Where("id = ? AND (slug IS NULL OR slug = '')", id).
		Update("slug", slug)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateIdentity overwrites the derived identity columns of a book.
// Title and author are never touched.
func (r *Repository) UpdateIdentity(ctx context.Context, book *entities.Book) error {
	return r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", book.ID).
		Updates(map[string]any{
			"normalized_title": book.NormalizedTitle,
			"slug":             book.Slug,
			"language":         book.Language,
		}).Error
}

// List returns books newest first using offset pagination.
func (r *Repository) List(ctx context.Context, offset, limit int) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&books).Error
	return books, err
}

// ListAfter returns up to limit books with an ID lower than afterID, in
// descending ID order. An afterID of zero starts from the newest book.
func (r *Repository) ListAfter(ctx context.Context, afterID uint, limit int) ([]entities.Book, error) {
	var books []entities.Book
	query := r.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if afterID > 0 {
		query = query.Where("id < ?", afterID)
	}
	err := query.Find(&books).Error
	return books, err
}

// Random returns up to n distinct books in random order.
func (r *Repository) Random(ctx context.Context, n int) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.WithContext(ctx).Order("RANDOM()").Limit(n).Find(&books).Error
	return books, err
}

// EachBatch walks every book in ID order, batchSize rows at a time.
func (r *Repository) EachBatch(ctx context.Context, batchSize int, fn func(batch []entities.Book) error) error {
	var batch []entities.Book
	result := r.db.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, n int) error {
		return fn(batch)
	})
	if result.Error != nil {
		return fmt.Errorf("failed to iterate books: %w", result.Error)
	}
	return nil
}
