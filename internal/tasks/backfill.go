package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookcards/internal/migrate"
)

const QueueBackfillBooks = "backfill_books"

// BackfillRunner reconciles legacy book and flashcard rows.
type BackfillRunner interface {
	Run(ctx context.Context) (*migrate.Stats, error)
}

// BackfillBooksTask recomputes book identities and links legacy flashcards.
type BackfillBooksTask struct {
	Trigger string `json:"trigger,omitempty"` // "schedule" or "manual"
}

// Config returns the queue configuration for backfill tasks.
func (t BackfillBooksTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueBackfillBooks,
		MaxAttempts: 1,
		Timeout:     time.Hour,
		Retention:   retainFailures(7 * 24 * time.Hour),
	}
}

// BackfillBooksProcessor creates a processor function for BackfillBooksTask.
func BackfillBooksProcessor(runner BackfillRunner) backlite.QueueProcessor[BackfillBooksTask] {
	return func(ctx context.Context, task BackfillBooksTask) error {
		if runner == nil {
			return fmt.Errorf("backfill not configured")
		}

		stats, err := runner.Run(ctx)
		if err != nil {
			return fmt.Errorf("backfill books: %w", err)
		}

		log.Printf("[TASK] Backfill (%s) finished: %d books, %d updated, %d conflicts",
			triggerOrDefault(task.Trigger), stats.Books, stats.Updated, stats.Conflicts)
		return nil
	}
}

// NewBackfillBooksQueue creates a backlite queue for backfill tasks.
func NewBackfillBooksQueue(runner BackfillRunner) backlite.Queue {
	return backlite.NewQueue(BackfillBooksProcessor(runner))
}

func triggerOrDefault(trigger string) string {
	if trigger == "" {
		return "manual"
	}
	return trigger
}
