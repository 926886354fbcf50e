package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookcards/internal/config"
	http_controllers "github.com/mrlokans/bookcards/internal/http"
	"github.com/mrlokans/bookcards/internal/scheduler"
	"github.com/mrlokans/bookcards/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before the workers go away
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// TaskConfig converts the queue section of the configuration.
func TaskConfig(cfg *config.Config) tasks.Config {
	return tasks.Config{
		Workers:         cfg.Tasks.Workers,
		ReleaseAfter:    cfg.Tasks.ReleaseAfter,
		CleanupInterval: cfg.Tasks.CleanupInterval,
	}
}

// RegisterQueues registers every queue the service processes.
func RegisterQueues(client *tasks.Client, app *App) {
	client.Register(
		tasks.NewIngestQueue(app.Ingest),
		tasks.NewBackfillBooksQueue(app.Backfill),
		tasks.NewCleanupAuditEventsQueue(app.Audit, app.Auditor),
	)
}

// MaintenanceJobs lists the cron jobs enabled in cfg.
func MaintenanceJobs(cfg *config.Config) []scheduler.Job {
	var jobs []scheduler.Job
	if cfg.Backfill.Enabled {
		jobs = append(jobs, scheduler.Job{
			Name:     tasks.QueueBackfillBooks,
			Schedule: cfg.Backfill.Schedule,
			Task:     tasks.BackfillBooksTask{Trigger: "schedule"},
		})
	}
	if cfg.Audit.CleanupEnabled {
		jobs = append(jobs, scheduler.Job{
			Name:     tasks.QueueCleanupAuditEvents,
			Schedule: cfg.Audit.CleanupSchedule,
			Task:     tasks.CleanupAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays},
		})
	}
	return jobs
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookcards v%s", version)

	app, err := NewApp(cfg, nil)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	routerCfg := http_controllers.RouterConfig{
		Ingester: app.Ingest,
		Catalog:  app.Catalog,
		Database: app.DB,
		Audit:    app.Audit,
		Limits: http_controllers.Limits{
			Books:       cfg.Catalog.DefaultBooksLimit,
			Flashcards:  cfg.Catalog.DefaultFlashcardsLimit,
			RandomBooks: cfg.Catalog.DefaultRandomCount,
		},
		CORSOrigins:           cfg.HTTP.CORSOrigins,
		GenerateRatePerMinute: cfg.HTTP.GenerateRatePerMinute,
		GenerateBurst:         cfg.HTTP.GenerateBurst,
		Version:               version,
	}

	// Initialize task queue and maintenance schedule if enabled
	var taskClient *tasks.Client
	var cron *scheduler.Scheduler
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, TaskConfig(cfg))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		RegisterQueues(taskClient, app)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		cron = scheduler.New(taskClient, MaintenanceJobs(cfg)...)
		if err := cron.Start(taskCtx); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}

		routerCfg.Tasks = taskClient
		routerCfg.Schedule = cron
	} else {
		log.Printf("Task queue disabled: async generation, backfill and audit cleanup jobs are unavailable")
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if cron != nil {
			cron.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
