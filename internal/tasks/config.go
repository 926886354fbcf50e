package tasks

import (
	"time"

	"github.com/mikestefanello/backlite"
)

// IngestTimeout bounds one background ingestion, completion call included.
const IngestTimeout = 5 * time.Minute

// Config tunes the backlite client. Per-queue attempts and timeouts are fixed
// by each task's Config method.
type Config struct {
	// Workers is the number of tasks processed concurrently
	Workers int

	// ReleaseAfter returns a claimed task to the queue when its worker has
	// not finished by then
	ReleaseAfter time.Duration

	// CleanupInterval is how often expired task rows are removed
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:         2,
		ReleaseAfter:    15 * time.Minute,
		CleanupInterval: time.Hour,
	}
}

// retainFailures keeps finished tasks for d. Payloads are kept only for
// failures, so a failed ingestion can be inspected and re-submitted.
func retainFailures(d time.Duration) *backlite.Retention {
	return &backlite.Retention{
		Duration: d,
		Data:     &backlite.RetainData{OnlyFailed: true},
	}
}
