// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, error classification
//	├── books/           # Book lookup, creation and listing
//	├── flashcards/      # Batch insert and per-book listing of flashcards
//	└── audit/           # Ingestion audit trail
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./bookcards.db")
//
//	booksRepo := books.NewRepository(db.DB)
//	cardsRepo := flashcards.NewRepository(db.DB)
//
//	book, err := booksRepo.GetByNormalizedTitle(ctx, "atomic habits")
//
// # Uniqueness
//
// Book identity is guarded by unique indexes on normalized_title and slug.
// The connection is opened with TranslateError so a violated index surfaces
// as ErrDuplicateKey; callers detect it with IsDuplicateKey and re-read
// instead of checking before inserting.
package database
