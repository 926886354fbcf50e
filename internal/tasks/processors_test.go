package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookcards/internal/entities"
	"github.com/mrlokans/bookcards/internal/ingest"
	"github.com/mrlokans/bookcards/internal/migrate"
)

type fakeIngester struct {
	titles []string
	err    error
}

func (f *fakeIngester) Ingest(ctx context.Context, title string) (*ingest.Result, error) {
	f.titles = append(f.titles, title)
	if f.err != nil {
		return nil, f.err
	}
	return &ingest.Result{
		Book:       &entities.Book{ID: 1, Title: title},
		Slug:       "dune-by-frank-herbert",
		Flashcards: make([]entities.Flashcard, 3),
		Created:    true,
	}, nil
}

type fakeBackfill struct {
	runs int
	err  error
}

func (f *fakeBackfill) Run(ctx context.Context) (*migrate.Stats, error) {
	f.runs++
	if f.err != nil {
		return &migrate.Stats{}, f.err
	}
	return &migrate.Stats{Books: 4, Updated: 2}, nil
}

type fakeCleaner struct {
	retention time.Duration
	err       error
}

func (f *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.retention = retention
	return 7, f.err
}

type fakePruner struct {
	cutoff time.Time
}

func (f *fakePruner) Prune(olderThan time.Time) (int, error) {
	f.cutoff = olderThan
	return 2, nil
}

func TestIngestTaskConfig(t *testing.T) {
	cfg := IngestTask{Title: "Dune"}.Config()

	assert.Equal(t, QueueIngest, cfg.Name)
	assert.Equal(t, 1, cfg.MaxAttempts, "ingestion must not be retried")
	assert.NotNil(t, cfg.Retention)
}

func TestIngestProcessor(t *testing.T) {
	ingester := &fakeIngester{}
	err := IngestProcessor(ingester)(context.Background(), IngestTask{Title: "Dune"})

	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, ingester.titles)
}

func TestIngestProcessor_Failure(t *testing.T) {
	cause := errors.New("completion service failed")
	err := IngestProcessor(&fakeIngester{err: cause})(context.Background(), IngestTask{Title: "Dune"})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Dune")
}

func TestIngestProcessor_NotConfigured(t *testing.T) {
	err := IngestProcessor(nil)(context.Background(), IngestTask{Title: "Dune"})
	assert.Error(t, err)
}

func TestBackfillBooksTaskConfig(t *testing.T) {
	cfg := BackfillBooksTask{}.Config()

	assert.Equal(t, QueueBackfillBooks, cfg.Name)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, time.Hour, cfg.Timeout)
}

func TestBackfillBooksProcessor(t *testing.T) {
	runner := &fakeBackfill{}
	require.NoError(t, BackfillBooksProcessor(runner)(context.Background(), BackfillBooksTask{Trigger: "schedule"}))
	assert.Equal(t, 1, runner.runs)

	failing := &fakeBackfill{err: errors.New("disk full")}
	err := BackfillBooksProcessor(failing)(context.Background(), BackfillBooksTask{})
	assert.ErrorContains(t, err, "disk full")
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	cleaner := &fakeCleaner{}
	pruner := &fakePruner{}

	before := time.Now()
	err := CleanupAuditEventsProcessor(cleaner, pruner)(context.Background(), CleanupAuditEventsTask{RetentionDays: 7})
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, cleaner.retention)
	assert.WithinDuration(t, before.Add(-7*24*time.Hour), pruner.cutoff, time.Minute)
}

func TestCleanupAuditEventsProcessor_DefaultRetention(t *testing.T) {
	cleaner := &fakeCleaner{}

	err := CleanupAuditEventsProcessor(cleaner, nil)(context.Background(), CleanupAuditEventsTask{})
	require.NoError(t, err)
	assert.Equal(t, DefaultAuditRetentionDays*24*time.Hour, cleaner.retention)
}

func TestCleanupAuditEventsProcessor_Errors(t *testing.T) {
	err := CleanupAuditEventsProcessor(nil, nil)(context.Background(), CleanupAuditEventsTask{})
	assert.Error(t, err)

	err = CleanupAuditEventsProcessor(&fakeCleaner{err: errors.New("locked")}, nil)(context.Background(), CleanupAuditEventsTask{})
	assert.ErrorContains(t, err, "locked")
}
