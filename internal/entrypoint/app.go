package entrypoint

import (
	"fmt"
	"log"

	"github.com/mrlokans/bookcards/internal/audit"
	"github.com/mrlokans/bookcards/internal/catalog"
	"github.com/mrlokans/bookcards/internal/completion"
	"github.com/mrlokans/bookcards/internal/config"
	"github.com/mrlokans/bookcards/internal/database"
	auditrepo "github.com/mrlokans/bookcards/internal/database/audit"
	"github.com/mrlokans/bookcards/internal/database/books"
	"github.com/mrlokans/bookcards/internal/database/flashcards"
	"github.com/mrlokans/bookcards/internal/extractor"
	"github.com/mrlokans/bookcards/internal/identity"
	"github.com/mrlokans/bookcards/internal/ingest"
	"github.com/mrlokans/bookcards/internal/migrate"
)

// App holds the services shared by the server and the CLI commands.
type App struct {
	DB         *database.Database
	Books      *books.Repository
	Flashcards *flashcards.Repository
	Auditor    *audit.Auditor
	Audit      *audit.Service
	Resolver   *identity.Resolver
	Ingest     *ingest.Service
	Catalog    *catalog.Service
	Backfill   *migrate.Backfiller
}

// NewApp opens the database and wires every service. A nil completer selects
// the OpenAI client configured in cfg.
func NewApp(cfg *config.Config, completer completion.Completer) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if completer == nil {
		if cfg.OpenAI.APIKey == "" {
			log.Printf("WARNING: OPENAI_API_KEY is not set. Flashcard generation requests will fail.")
		}
		completer = completion.NewOpenAIClient(completion.OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     cfg.OpenAI.Timeout,
			MinInterval: cfg.OpenAI.MinInterval,
		})
	}

	bookRepo := books.NewRepository(db.DB)
	cardRepo := flashcards.NewRepository(db.DB)
	auditor := audit.NewAuditor(cfg.Audit.Dir)
	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	resolver := identity.NewResolver(bookRepo)

	app := &App{
		DB:         db,
		Books:      bookRepo,
		Flashcards: cardRepo,
		Auditor:    auditor,
		Audit:      auditService,
		Resolver:   resolver,
		Ingest: ingest.NewService(ingest.Dependencies{
			Completer:  completer,
			Extractor:  extractor.New(extractor.DefaultStrategies...),
			Resolver:   resolver,
			Flashcards: cardRepo,
			Audit:      auditService,
			Dumps:      auditor,
		}),
		Catalog: catalog.NewService(bookRepo, cardRepo, cfg.Catalog.MaxLimit),
		Backfill: migrate.NewBackfiller(bookRepo, cardRepo, resolver).
			WithAudit(auditService).
			WithBatchSize(cfg.Backfill.BatchSize),
	}
	return app, nil
}

// Close waits for pending audit writes and closes the database.
func (a *App) Close() error {
	a.Audit.Wait()
	return a.DB.Close()
}
