package http

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookcards/internal/catalog"
	"github.com/mrlokans/bookcards/internal/entities"
	"github.com/mrlokans/bookcards/internal/ingest"
)

// Ingester runs the flashcard pipeline for one title.
type Ingester interface {
	Ingest(ctx context.Context, title string) (*ingest.Result, error)
}

// Catalog serves stored books and flashcards.
type Catalog interface {
	ListBooks(ctx context.Context, page, limit int) ([]entities.Book, error)
	ListBooksAfter(ctx context.Context, cursor string, limit int) (*catalog.Page[entities.Book], error)
	ListFlashcards(ctx context.Context, bookID uint, page, limit int) ([]entities.Flashcard, error)
	ListFlashcardsAfter(ctx context.Context, bookID uint, cursor string, limit int) (*catalog.Page[entities.Flashcard], error)
	LookupBook(ctx context.Context, slug string) (*entities.Book, error)
	GetBook(ctx context.Context, id uint) (*entities.Book, error)
	RandomBooks(ctx context.Context, n int) ([]entities.Book, error)
}

// TaskQueue enqueues background tasks and reports their status.
type TaskQueue interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// Schedule reports when a scheduled task type runs next.
type Schedule interface {
	NextRunTime(name string) *time.Time
}

// AuditReader lists recorded audit events.
type AuditReader interface {
	GetEvents(limit, offset int) ([]entities.AuditEvent, int64, error)
	GetEventsByType(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error)
	GetPartialWrites(limit, offset int) ([]entities.AuditEvent, int64, error)
}

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Limits are the defaults applied when a request omits them.
type Limits struct {
	Books       int
	Flashcards  int
	RandomBooks int
}

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Ingester Ingester
	Catalog  Catalog
	Database Pinger

	// Optional
	Tasks    TaskQueue
	Schedule Schedule
	Audit    AuditReader

	Limits Limits

	// Cross-origin access; empty allows any origin
	CORSOrigins []string

	// Per-client generation limit, 0 disables it
	GenerateRatePerMinute float64
	GenerateBurst         int

	// Application info
	Version string
}
