package entrypoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookcards/internal/completion"
	"github.com/mrlokans/bookcards/internal/config"
	"github.com/mrlokans/bookcards/internal/entities"
	"github.com/mrlokans/bookcards/internal/tasks"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	dir := t.TempDir()
	cfg.Database.Path = filepath.Join(dir, "bookcards.db")
	cfg.Audit.Dir = filepath.Join(dir, "audit")
	return cfg
}

func TestNewApp_EndToEnd(t *testing.T) {
	completer := completion.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return `{"title":"Atomic Habits","author":"James Clear","flashcards":[{"question":"What is a habit?","answer":"Answer: A routine."}]}`, nil
	})

	app, err := NewApp(testConfig(t), completer)
	require.NoError(t, err)
	defer app.Close()

	result, err := app.Ingest.Ingest(context.Background(), "atomic habits")
	require.NoError(t, err)
	assert.Equal(t, "atomic-habits-by-james-clear", result.Slug)

	book, err := app.Catalog.LookupBook(context.Background(), result.Slug)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultLanguage, book.Language)

	cards, err := app.Catalog.ListFlashcards(context.Background(), book.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "A routine.", cards[0].Answer)

	stats, err := app.Backfill.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Books)
	assert.Zero(t, stats.Updated, "fresh rows already carry current identities")

	app.Audit.Wait()
	events, total, err := app.Audit.GetEventsByType(entities.AuditEventIngest, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, entities.AuditStatusSuccess, events[0].Status)
}

func TestNewApp_DefaultCompleter(t *testing.T) {
	app, err := NewApp(testConfig(t), nil)
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Ingest)
}

func TestMaintenanceJobs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backfill.Enabled = false
	cfg.Audit.CleanupEnabled = true

	jobs := MaintenanceJobs(cfg)
	require.Len(t, jobs, 1)
	assert.Equal(t, tasks.QueueCleanupAuditEvents, jobs[0].Name)
	assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays}, jobs[0].Task)

	cfg.Backfill.Enabled = true
	jobs = MaintenanceJobs(cfg)
	require.Len(t, jobs, 2)
	assert.Equal(t, tasks.QueueBackfillBooks, jobs[0].Name)
	assert.Equal(t, cfg.Backfill.Schedule, jobs[0].Schedule)
}

func TestTaskConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tasks.Workers = 4

	taskCfg := TaskConfig(cfg)
	assert.Equal(t, 4, taskCfg.Workers)
	assert.Equal(t, cfg.Tasks.ReleaseAfter, taskCfg.ReleaseAfter)
	assert.Equal(t, cfg.Tasks.CleanupInterval, taskCfg.CleanupInterval)
}
