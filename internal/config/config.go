package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Audit
		OpenAI
		Catalog
		Tasks
		Backfill
	}

	HTTP struct {
		Port        int32
		Host        string
		CORSOrigins []string
		// Per-client limit on flashcard generation, 0 = unlimited
		GenerateRatePerMinute float64
		GenerateBurst         int
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Audit struct {
		Dir             string // Raw completion dumps
		RetentionDays   int    // Days to keep audit events and dumps (default: 30)
		CleanupEnabled  bool
		CleanupSchedule string // Cron format: "30 3 * * *" = daily at 03:30
	}
	OpenAI struct {
		APIKey      string
		BaseURL     string
		Model       string
		Temperature float64
		Timeout     time.Duration
		MinInterval time.Duration // Minimum gap between completion requests, 0 = unlimited
	}
	Catalog struct {
		DefaultBooksLimit      int
		DefaultFlashcardsLimit int
		DefaultRandomCount     int
		MaxLimit               int
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration // stuck tasks go back to the queue after this
		CleanupInterval time.Duration
	}
	Backfill struct {
		Enabled   bool
		Schedule  string // Cron format: "0 4 * * 0" = Sundays at 04:00
		BatchSize int
	}
)

// LoadDotEnv loads environment variables from the given files (".env" when
// none are given) without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("cors_allowed_origins", []string{"*"})
	v.SetDefault("generate_rate_per_minute", 0)
	v.SetDefault("generate_burst", 3)
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("audit_dir", "./audit")
	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_enabled", true)
	v.SetDefault("audit_cleanup_schedule", "30 3 * * *")

	// Completion service defaults
	v.SetDefault("openai_base_url", "")
	v.SetDefault("openai_model", "gpt-4o")
	v.SetDefault("openai_temperature", 0.7)
	v.SetDefault("openai_timeout", "60s")
	v.SetDefault("openai_min_interval", "0s")

	// Catalog defaults
	v.SetDefault("catalog_default_books_limit", 5)
	v.SetDefault("catalog_default_flashcards_limit", 10)
	v.SetDefault("catalog_default_random_count", 5)
	v.SetDefault("catalog_max_limit", 100)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("backfill_enabled", false)
	v.SetDefault("backfill_schedule", "0 4 * * 0")
	v.SetDefault("backfill_batch_size", 200)

	return &Config{
		HTTP: HTTP{
			Port:                  v.GetInt32("PORT"),
			Host:                  v.GetString("HOST"),
			CORSOrigins:           v.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			GenerateRatePerMinute: v.GetFloat64("GENERATE_RATE_PER_MINUTE"),
			GenerateBurst:         v.GetInt("GENERATE_BURST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Audit: Audit{
			Dir:             v.GetString("AUDIT_DIR"),
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupEnabled:  v.GetBool("AUDIT_CLEANUP_ENABLED"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		OpenAI: OpenAI{
			APIKey:      v.GetString("OPENAI_API_KEY"),
			BaseURL:     v.GetString("OPENAI_BASE_URL"),
			Model:       v.GetString("OPENAI_MODEL"),
			Temperature: v.GetFloat64("OPENAI_TEMPERATURE"),
			Timeout:     v.GetDuration("OPENAI_TIMEOUT"),
			MinInterval: v.GetDuration("OPENAI_MIN_INTERVAL"),
		},
		Catalog: Catalog{
			DefaultBooksLimit:      v.GetInt("CATALOG_DEFAULT_BOOKS_LIMIT"),
			DefaultFlashcardsLimit: v.GetInt("CATALOG_DEFAULT_FLASHCARDS_LIMIT"),
			DefaultRandomCount:     v.GetInt("CATALOG_DEFAULT_RANDOM_COUNT"),
			MaxLimit:               v.GetInt("CATALOG_MAX_LIMIT"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Backfill: Backfill{
			Enabled:   v.GetBool("BACKFILL_ENABLED"),
			Schedule:  v.GetString("BACKFILL_SCHEDULE"),
			BatchSize: v.GetInt("BACKFILL_BATCH_SIZE"),
		},
	}
}

// AuditRetention is the configured retention as a duration.
func (c *Config) AuditRetention() time.Duration {
	return time.Duration(c.Audit.RetentionDays) * 24 * time.Hour
}
