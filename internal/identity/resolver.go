// Package identity maps a reported book title to exactly one stored Book.
//
// Deduplication is keyed on the normalized title. Uniqueness is enforced by
// the store's unique indexes rather than by checking first: when two
// resolvers race on the same unseen title, the loser's insert fails with a
// duplicate key and it re-reads the winner's row.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mrlokans/bookcards/internal/database"
	"github.com/mrlokans/bookcards/internal/entities"
	"github.com/mrlokans/bookcards/internal/utils"
)

var (
	// ErrDuplicateSlug is returned when a new book's slug is already held by a
	// book with a different normalized title. Slugs are never suffixed.
	ErrDuplicateSlug = errors.New("slug already used by another book")
	// ErrEmptyTitle is returned when a title has nothing left after normalization.
	ErrEmptyTitle = fmt.Errorf("%w: title has no letters or digits", utils.ErrInvalidInput)
)

// BookStore is the subset of the books repository the resolver needs.
type BookStore interface {
	GetByNormalizedTitle(ctx context.Context, normalizedTitle string) (*entities.Book, error)
	Create(ctx context.Context, book *entities.Book) error
	AssignSlug(ctx context.Context, id uint, slug string) (bool, error)
}

type Resolver struct {
	store BookStore
}

func NewResolver(store BookStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve finds the book whose normalized title matches rawTitle or creates
// it. The returned bool is true only when this call inserted the row.
// Existing books are returned unchanged except that a missing slug is filled in.
func (r *Resolver) Resolve(ctx context.Context, rawTitle, rawAuthor, language string) (*entities.Book, bool, error) {
	normalized := utils.NormalizeTitle(rawTitle)
	if normalized == "" {
		return nil, false, ErrEmptyTitle
	}

	book, err := r.store.GetByNormalizedTitle(ctx, normalized)
	switch {
	case err == nil:
		if err := r.ensureSlug(ctx, book); err != nil {
			return nil, false, err
		}
		return book, false, nil
	case !database.IsNotFound(err):
		return nil, false, fmt.Errorf("failed to look up book %q: %w", normalized, err)
	}

	author := strings.TrimSpace(rawAuthor)
	if author == "" {
		author = entities.DefaultAuthor
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = entities.DefaultLanguage
	}
	slug := utils.BookSlug(normalized, author)

	book = &entities.Book{
		Title:           strings.TrimSpace(rawTitle),
		Author:          author,
		NormalizedTitle: normalized,
		Slug:            &slug,
		Language:        language,
	}

	err = r.store.Create(ctx, book)
	if err == nil {
		log.Printf("[IDENTITY] Created book %d %q (slug %s)", book.ID, book.Title, slug)
		return book, true, nil
	}
	if !database.IsDuplicateKey(err) {
		return nil, false, fmt.Errorf("failed to create book %q: %w", normalized, err)
	}

	// Someone else inserted first; their row wins when it has our normalized title
	existing, lookupErr := r.store.GetByNormalizedTitle(ctx, normalized)
	if lookupErr == nil {
		log.Printf("[IDENTITY] Lost creation race for %q, using book %d", normalized, existing.ID)
		if err := r.ensureSlug(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if !database.IsNotFound(lookupErr) {
		return nil, false, fmt.Errorf("failed to re-read book %q: %w", normalized, lookupErr)
	}

	return nil, false, fmt.Errorf("%w: %s", ErrDuplicateSlug, slug)
}

// ensureSlug assigns a slug to a legacy book that has none. Title and author
// are left as stored. When the computed slug is taken by another book the
// legacy book is returned as is.
func (r *Resolver) ensureSlug(ctx context.Context, book *entities.Book) error {
	if book.SlugValue() != "" {
		return nil
	}

	author := book.Author
	if strings.TrimSpace(author) == "" {
		author = entities.DefaultAuthor
	}
	slug := utils.BookSlug(book.NormalizedTitle, author)
	updated, err := r.store.AssignSlug(ctx, book.ID, slug)
	if database.IsDuplicateKey(err) {
		// The book stays resolvable by title; it just remains without a slug
		log.Printf("[IDENTITY] Book %d keeps no slug: %s already used by another book", book.ID, slug)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to assign slug to book %d: %w", book.ID, err)
	}

	if !updated {
		// A concurrent request healed it first
		fresh, err := r.store.GetByNormalizedTitle(ctx, book.NormalizedTitle)
		if err != nil {
			return fmt.Errorf("failed to re-read book %d: %w", book.ID, err)
		}
		*book = *fresh
		return nil
	}

	book.Slug = &slug
	log.Printf("[IDENTITY] Assigned slug %s to legacy book %d", slug, book.ID)
	return nil
}
