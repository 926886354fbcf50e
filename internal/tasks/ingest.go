package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookcards/internal/ingest"
)

const QueueIngest = "ingest"

// Ingester runs the flashcard pipeline for one title.
type Ingester interface {
	Ingest(ctx context.Context, title string) (*ingest.Result, error)
}

// IngestTask generates flashcards for a title in the background.
type IngestTask struct {
	Title string `json:"title"`
}

// Config returns the queue configuration for ingestion tasks. A failed
// completion call is final, so the task runs exactly once.
func (t IngestTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueIngest,
		MaxAttempts: 1,
		Timeout:     IngestTimeout,
		Retention:   retainFailures(24 * time.Hour),
	}
}

// IngestProcessor creates a processor function for IngestTask.
func IngestProcessor(ingester Ingester) backlite.QueueProcessor[IngestTask] {
	return func(ctx context.Context, task IngestTask) error {
		if ingester == nil {
			return fmt.Errorf("ingester not configured")
		}

		result, err := ingester.Ingest(ctx, task.Title)
		if err != nil {
			return fmt.Errorf("ingest %q: %w", task.Title, err)
		}

		log.Printf("[TASK] Ingested %q as %s: %d flashcards (created=%t)",
			task.Title, result.Slug, len(result.Flashcards), result.Created)
		return nil
	}
}

// NewIngestQueue creates a backlite queue for ingestion tasks.
func NewIngestQueue(ingester Ingester) backlite.Queue {
	return backlite.NewQueue(IngestProcessor(ingester))
}
