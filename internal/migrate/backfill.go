// Package migrate reconciles rows written by older revisions of the service.
//
// The backfill recomputes every book's normalized title, slug and language
// with the current rules and links flashcards that only reference their book
// by title text. It is safe to run repeatedly.
package migrate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mrlokans/bookcards/internal/audit"
	"github.com/mrlokans/bookcards/internal/database"
	"github.com/mrlokans/bookcards/internal/entities"
	"github.com/mrlokans/bookcards/internal/utils"
)

const DefaultBatchSize = 200

type BookStore interface {
	EachBatch(ctx context.Context, batchSize int, fn func(batch []entities.Book) error) error
	UpdateIdentity(ctx context.Context, book *entities.Book) error
}

type FlashcardStore interface {
	LegacyTitles(ctx context.Context) ([]string, error)
	LinkLegacyTitle(ctx context.Context, title string, bookID uint, language string) (int64, error)
}

// BookResolver creates books for legacy flashcards whose book does not exist.
type BookResolver interface {
	Resolve(ctx context.Context, rawTitle, rawAuthor, language string) (*entities.Book, bool, error)
}

type BackfillLogger interface {
	LogBackfill(rec audit.BackfillRecord)
}

// Stats summarizes one backfill run.
type Stats struct {
	Books         int   `json:"books"`
	Updated       int   `json:"updated"`
	Conflicts     int   `json:"conflicts"`
	LegacyLinked  int64 `json:"legacy_linked"`
	LegacyOrphans int   `json:"legacy_orphans"`
}

type Backfiller struct {
	books     BookStore
	cards     FlashcardStore
	resolver  BookResolver
	audit     BackfillLogger
	batchSize int
}

func NewBackfiller(books BookStore, cards FlashcardStore, resolver BookResolver) *Backfiller {
	return &Backfiller{books: books, cards: cards, resolver: resolver, batchSize: DefaultBatchSize}
}

// WithAudit records every run through logger.
func (b *Backfiller) WithAudit(logger BackfillLogger) *Backfiller {
	b.audit = logger
	return b
}

// WithBatchSize sets how many books are loaded per query.
func (b *Backfiller) WithBatchSize(n int) *Backfiller {
	if n > 0 {
		b.batchSize = n
	}
	return b
}

// Run performs the backfill. Rows that would violate a unique index are
// counted as conflicts and left as they are; any other store error stops
// the run.
func (b *Backfiller) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	log.Printf("[BACKFILL] Starting book backfill")

	err := b.backfillBooks(ctx, stats)
	if err == nil {
		err = b.linkLegacyFlashcards(ctx, stats)
	}

	if b.audit != nil {
		b.audit.LogBackfill(audit.BackfillRecord{
			Books:         stats.Books,
			Updated:       stats.Updated,
			Conflicts:     stats.Conflicts,
			LegacyLinked:  stats.LegacyLinked,
			LegacyOrphans: stats.LegacyOrphans,
			Err:           err,
		})
	}
	if err != nil {
		log.Printf("[BACKFILL] Failed: %v", err)
		return stats, err
	}

	log.Printf("[BACKFILL] Done: %d books, %d updated, %d conflicts, %d legacy flashcards linked, %d orphaned titles",
		stats.Books, stats.Updated, stats.Conflicts, stats.LegacyLinked, stats.LegacyOrphans)
	return stats, nil
}

func (b *Backfiller) backfillBooks(ctx context.Context, stats *Stats) error {
	return b.books.EachBatch(ctx, b.batchSize, func(batch []entities.Book) error {
		for i := range batch {
			book := &batch[i]
			stats.Books++

			if !recompute(book) {
				continue
			}
			err := b.books.UpdateIdentity(ctx, book)
			if database.IsDuplicateKey(err) {
				stats.Conflicts++
				log.Printf("[BACKFILL] Book %d %q conflicts with an existing book (slug %s), skipped", book.ID, book.Title, book.SlugValue())
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to update book %d: %w", book.ID, err)
			}
			stats.Updated++
		}
		return nil
	})
}

// recompute applies the current identity rules to book and reports whether
// anything changed.
func recompute(book *entities.Book) bool {
	author := strings.TrimSpace(book.Author)
	if author == "" {
		author = entities.DefaultAuthor
	}
	normalized := utils.NormalizeTitle(book.Title)
	if normalized == "" {
		// Nothing to derive a key from; keep whatever is stored
		return false
	}
	slug := utils.BookSlug(normalized, author)
	language := strings.TrimSpace(book.Language)
	if language == "" {
		language = entities.DefaultLanguage
	}

	if book.NormalizedTitle == normalized && book.SlugValue() == slug && book.Language == language {
		return false
	}
	book.NormalizedTitle = normalized
	book.Slug = &slug
	book.Language = language
	return true
}

func (b *Backfiller) linkLegacyFlashcards(ctx context.Context, stats *Stats) error {
	titles, err := b.cards.LegacyTitles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list legacy flashcard titles: %w", err)
	}

	for _, title := range titles {
		if b.resolver == nil {
			stats.LegacyOrphans++
			continue
		}
		book, _, err := b.resolver.Resolve(ctx, title, "", "")
		if err != nil {
			stats.LegacyOrphans++
			log.Printf("[BACKFILL] Could not resolve a book for legacy title %q: %v", title, err)
			continue
		}

		linked, err := b.cards.LinkLegacyTitle(ctx, title, book.ID, book.Language)
		if err != nil {
			return fmt.Errorf("failed to link flashcards titled %q: %w", title, err)
		}
		stats.LegacyLinked += linked
	}
	return nil
}
