// Package catalog serves stored books and flashcards. It is read-only: every
// call recomputes its result from the store.
//
// Two pagination styles are offered. Page/limit listing is 1-based. Cursor
// listing walks records in descending ID order and detects a following page
// by fetching one row more than requested.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/bookcards/internal/database"
	"github.com/mrlokans/bookcards/internal/entities"
	"github.com/mrlokans/bookcards/internal/utils"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidPage   = errors.New("invalid pagination parameters")
	ErrInvalidCursor = fmt.Errorf("%w: malformed cursor", ErrInvalidPage)
	ErrInvalidCount  = errors.New("count must be a positive integer")
)

// DefaultMaxLimit caps page sizes when no other maximum is configured.
const DefaultMaxLimit = 100

type BookStore interface {
	GetBySlug(ctx context.Context, slug string) (*entities.Book, error)
	GetByID(ctx context.Context, id uint) (*entities.Book, error)
	List(ctx context.Context, offset, limit int) ([]entities.Book, error)
	ListAfter(ctx context.Context, afterID uint, limit int) ([]entities.Book, error)
	Random(ctx context.Context, n int) ([]entities.Book, error)
}

type FlashcardStore interface {
	ListByBook(ctx context.Context, bookID uint, offset, limit int) ([]entities.Flashcard, error)
	ListByBookAfter(ctx context.Context, bookID, afterID uint, limit int) ([]entities.Flashcard, error)
}

// Page is one cursor-paginated slice of results.
type Page[T any] struct {
	Items      []T    `json:"items"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type Service struct {
	books      BookStore
	flashcards FlashcardStore
	maxLimit   int
}

// NewService creates a catalog service. Limits above maxLimit are clamped;
// a non-positive maxLimit selects DefaultMaxLimit.
func NewService(books BookStore, flashcards FlashcardStore, maxLimit int) *Service {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &Service{books: books, flashcards: flashcards, maxLimit: maxLimit}
}

// ListBooks returns one page of books, newest first.
func (s *Service) ListBooks(ctx context.Context, page, limit int) ([]entities.Book, error) {
	offset, limit, err := s.offset(page, limit)
	if err != nil || limit == 0 {
		return []entities.Book{}, err
	}
	books, err := s.books.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return nonNil(books), nil
}

// ListBooksAfter returns books older than the cursor position.
func (s *Service) ListBooksAfter(ctx context.Context, cursor string, limit int) (*Page[entities.Book], error) {
	after, limit, err := s.cursor(cursor, limit)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		return &Page[entities.Book]{Items: []entities.Book{}}, nil
	}

	books, err := s.books.ListAfter(ctx, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return paginate(books, limit, func(b entities.Book) uint { return b.ID }), nil
}

// ListFlashcards returns one page of a book's flashcards in creation order.
func (s *Service) ListFlashcards(ctx context.Context, bookID uint, page, limit int) ([]entities.Flashcard, error) {
	offset, limit, err := s.offset(page, limit)
	if err != nil || limit == 0 {
		return []entities.Flashcard{}, err
	}
	cards, err := s.flashcards.ListByBook(ctx, bookID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list flashcards for book %d: %w", bookID, err)
	}
	return nonNil(cards), nil
}

// ListFlashcardsAfter returns a book's flashcards older than the cursor position.
func (s *Service) ListFlashcardsAfter(ctx context.Context, bookID uint, cursor string, limit int) (*Page[entities.Flashcard], error) {
	after, limit, err := s.cursor(cursor, limit)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		return &Page[entities.Flashcard]{Items: []entities.Flashcard{}}, nil
	}

	cards, err := s.flashcards.ListByBookAfter(ctx, bookID, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to list flashcards for book %d: %w", bookID, err)
	}
	return paginate(cards, limit, func(c entities.Flashcard) uint { return c.ID }), nil
}

// LookupBook returns the book with the given slug or ErrNotFound.
func (s *Service) LookupBook(ctx context.Context, slug string) (*entities.Book, error) {
	slug = utils.CanonicalSlug(strings.TrimSpace(slug))
	if slug == "" {
		return nil, ErrNotFound
	}
	book, err := s.books.GetBySlug(ctx, slug)
	if database.IsNotFound(err) {
		return nil, fmt.Errorf("%w: book %q", ErrNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up book %q: %w", slug, err)
	}
	return book, nil
}

// GetBook returns the book with the given ID or ErrNotFound.
func (s *Service) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if database.IsNotFound(err) {
		return nil, fmt.Errorf("%w: book %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load book %d: %w", id, err)
	}
	return book, nil
}

// RandomBooks returns up to n distinct books in no particular order. Fewer
// are returned only when fewer exist.
func (s *Service) RandomBooks(ctx context.Context, n int) ([]entities.Book, error) {
	if n <= 0 {
		return nil, ErrInvalidCount
	}
	if n > s.maxLimit {
		n = s.maxLimit
	}
	books, err := s.books.Random(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to sample books: %w", err)
	}
	return nonNil(books), nil
}

func (s *Service) offset(page, limit int) (int, int, error) {
	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page must be at least 1", ErrInvalidPage)
	}
	limit, err := s.clamp(limit)
	if err != nil {
		return 0, 0, err
	}
	return (page - 1) * limit, limit, nil
}

func (s *Service) cursor(cursor string, limit int) (uint, int, error) {
	data, err := DecodeCursor(cursor)
	if err != nil {
		return 0, 0, err
	}
	limit, err = s.clamp(limit)
	if err != nil {
		return 0, 0, err
	}
	return data.AfterID, limit, nil
}

func (s *Service) clamp(limit int) (int, error) {
	if limit < 0 {
		return 0, fmt.Errorf("%w: limit must not be negative", ErrInvalidPage)
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit, nil
}

// paginate trims the look-ahead row and derives the next cursor.
func paginate[T any](rows []T, limit int, id func(T) uint) *Page[T] {
	page := &Page[T]{Items: nonNil(rows)}
	if len(rows) > limit {
		page.Items = rows[:limit]
		page.HasMore = true
		page.NextCursor = EncodeCursor(CursorData{AfterID: id(page.Items[limit-1])})
	}
	return page
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
