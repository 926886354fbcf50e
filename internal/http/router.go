package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Task and audit routes are registered only when their dependencies are set.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(cfg.CORSOrigins))

	checks := []HealthCheck{{Name: "database", Target: cfg.Database}}
	if queue, ok := cfg.Tasks.(Pinger); ok {
		checks = append(checks, HealthCheck{Name: "task_queue", Target: queue})
	}
	health := NewHealthController(cfg.Version, checks...)
	flashcards := NewFlashcardsController(cfg.Ingester, cfg.Catalog, cfg.Tasks, cfg.Limits)
	books := NewBooksController(cfg.Catalog, cfg.Limits)

	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Flashcard API is running")
	})

	api := router.Group("/api")

	generate := []gin.HandlerFunc{flashcards.GenerateFlashcards}
	if cfg.GenerateRatePerMinute > 0 {
		limiter := NewRateLimiter(cfg.GenerateRatePerMinute, cfg.GenerateBurst)
		generate = append([]gin.HandlerFunc{limiter.Handler()}, generate...)
	}
	api.POST("/generate-flashcards", generate...)

	api.GET("/flashcards", flashcards.ListFlashcards)
	api.GET("/books", books.ListBooks)
	api.GET("/books/random", books.RandomBooks)
	api.GET("/books/:slug", books.GetBook)

	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks, cfg.Schedule)
		api.GET("/tasks/types", tasksController.ListTaskTypes)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
		api.POST("/tasks/:type/run", tasksController.RunTask)
	}

	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Audit)
		api.GET("/audit", auditController.GetAuditEvents)
	}

	return router
}
