package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookcards/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func TestNewDatabase_MigratesTables(t *testing.T) {
	db := setupTestDB(t)

	for _, model := range []any{&entities.Book{}, &entities.Flashcard{}, &entities.AuditEvent{}} {
		assert.True(t, db.DB.Migrator().HasTable(model))
	}
	assert.True(t, db.DB.Migrator().HasColumn(&entities.Flashcard{}, "book_title"))
}

func TestDatabase_Ping(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))

	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(context.Background()))
}

func TestDuplicateKeyTranslation(t *testing.T) {
	db := setupTestDB(t)

	first := &entities.Book{Title: "Dune", Author: "Frank Herbert", NormalizedTitle: "dune", Slug: strPtr("dune-by-frank-herbert")}
	require.NoError(t, db.DB.Create(first).Error)

	t.Run("normalized title", func(t *testing.T) {
		dup := &entities.Book{Title: "DUNE!", Author: "Someone", NormalizedTitle: "dune", Slug: strPtr("dune-by-someone")}
		err := db.DB.Create(dup).Error
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateKey)
		assert.True(t, IsDuplicateKey(err))
	})

	t.Run("slug", func(t *testing.T) {
		dup := &entities.Book{Title: "Dune Messiah", Author: "Frank Herbert", NormalizedTitle: "dune messiah", Slug: strPtr("dune-by-frank-herbert")}
		err := db.DB.Create(dup).Error
		assert.True(t, IsDuplicateKey(err))
	})

	t.Run("legacy rows without slug do not collide", func(t *testing.T) {
		require.NoError(t, db.DB.Create(&entities.Book{Title: "A", Author: "X", NormalizedTitle: "a"}).Error)
		require.NoError(t, db.DB.Create(&entities.Book{Title: "B", Author: "X", NormalizedTitle: "b"}).Error)
	})
}

func TestErrorClassifiers(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.False(t, IsDuplicateKey(errors.New("disk I/O error")))
	assert.True(t, IsDuplicateKey(errors.New("UNIQUE constraint failed: books.slug")))

	db := setupTestDB(t)
	var book entities.Book
	err := db.DB.First(&book, 42).Error
	assert.True(t, IsNotFound(err))
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", dsn(":memory:"))
	assert.Equal(t, "app.db?"+sqlitePragmas, dsn("app.db"))
	assert.Equal(t, "app.db?cache=shared&"+sqlitePragmas, dsn("app.db?cache=shared"))
}
