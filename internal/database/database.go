package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookcards/internal/entities"
)

var (
	// ErrDuplicateKey is returned by writes that violate a unique index.
	ErrDuplicateKey = gorm.ErrDuplicatedKey
	// ErrNotFound is returned by point lookups that match no row.
	ErrNotFound = gorm.ErrRecordNotFound
)

// Pragmas appended to file DSNs so concurrent writers wait instead of failing with SQLITE_BUSY.
const sqlitePragmas = "_busy_timeout=5000&_journal_mode=WAL"

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Book{},
		&entities.Flashcard{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the underlying connection pool can reach the database.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// IsDuplicateKey reports whether err is a unique index violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicateKey) {
		return true
	}
	// Drivers that bypass the translator still surface the raw sqlite message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func dsn(dbPath string) string {
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		return dbPath
	}
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + sqlitePragmas
	}
	return dbPath + "?" + sqlitePragmas
}
