package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookcards/internal/audit"
	"github.com/mrlokans/bookcards/internal/database"
	"github.com/mrlokans/bookcards/internal/database/books"
	"github.com/mrlokans/bookcards/internal/database/flashcards"
	"github.com/mrlokans/bookcards/internal/entities"
	"github.com/mrlokans/bookcards/internal/identity"
)

const fencedCompletion = "```json\n{\"title\":\"T\",\"author\":\"A\",\"language\":\"English\",\"flashcards\":[{\"question\":\"Q1\",\"answer\":\"Answer: A1\"}]}\n```"

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type mockFlashcardStore struct {
	mock.Mock
}

func (m *mockFlashcardStore) CreateBatch(ctx context.Context, cards []entities.Flashcard) error {
	args := m.Called(ctx, cards)
	return args.Error(0)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, rawTitle, rawAuthor, language string) (*entities.Book, bool, error) {
	args := m.Called(ctx, rawTitle, rawAuthor, language)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entities.Book), args.Bool(1), args.Error(2)
}

type recordingAudit struct {
	records []audit.IngestRecord
}

func (r *recordingAudit) LogIngest(rec audit.IngestRecord) {
	r.records = append(r.records, rec)
}

type recordingDumper struct {
	completions []string
	err         error
}

func (d *recordingDumper) SaveRawCompletion(requestedTitle, prompt, completion string, cause error) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	d.completions = append(d.completions, completion)
	return "dump.json", nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB
}

func newDBService(t *testing.T, completer *mockCompleter) (*Service, *gorm.DB, *recordingAudit) {
	db := setupTestDB(t)
	rec := &recordingAudit{}
	svc := NewService(Dependencies{
		Completer:  completer,
		Resolver:   identity.NewResolver(books.NewRepository(db)),
		Flashcards: flashcards.NewRepository(db),
		Audit:      rec,
	})
	return svc, db, rec
}

func TestIngest_EndToEnd(t *testing.T) {
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, BuildPrompt("atomic habits")).Return(fencedCompletion, nil).Once()

	svc, db, rec := newDBService(t, completer)

	result, err := svc.Ingest(context.Background(), "atomic habits")
	require.NoError(t, err)

	assert.Equal(t, "t-by-a", result.Slug)
	assert.True(t, result.Created)
	assert.Equal(t, "fenced_json", result.Strategy)
	require.Len(t, result.Flashcards, 1)
	assert.Equal(t, "Q1", result.Flashcards[0].Question)
	assert.Equal(t, "A1", result.Flashcards[0].Answer)
	assert.Equal(t, result.Book.ID, result.Flashcards[0].BookID)
	assert.Equal(t, "English", result.Flashcards[0].Language)

	var stored []entities.Flashcard
	require.NoError(t, db.Where("book_id = ?", result.Book.ID).Find(&stored).Error)
	assert.Len(t, stored, 1)

	require.Len(t, rec.records, 1)
	assert.NoError(t, rec.records[0].Err)
	assert.Equal(t, 1, rec.records[0].Flashcards)
	completer.AssertExpectations(t)
}

func TestIngest_SecondRequestReusesBook(t *testing.T) {
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(fencedCompletion, nil).Twice()

	svc, db, _ := newDBService(t, completer)

	first, err := svc.Ingest(context.Background(), "atomic habits")
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), "Atomic Habits!")
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.Book.ID, second.Book.ID)

	var bookCount, cardCount int64
	require.NoError(t, db.Model(&entities.Book{}).Count(&bookCount).Error)
	require.NoError(t, db.Model(&entities.Flashcard{}).Count(&cardCount).Error)
	assert.Equal(t, int64(1), bookCount)
	assert.Equal(t, int64(2), cardCount, "flashcards are not deduplicated")
}

func TestIngest_DefaultsMissingMetadata(t *testing.T) {
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).
		Return(`[{"question":"Who wrote it?","answer":"Nobody knows"}]`, nil)

	svc, _, _ := newDBService(t, completer)

	result, err := svc.Ingest(context.Background(), "  The Cloud of Unknowing ")
	require.NoError(t, err)
	assert.Equal(t, "The Cloud of Unknowing", result.Book.Title)
	assert.Equal(t, entities.DefaultAuthor, result.Book.Author)
	assert.Equal(t, entities.DefaultLanguage, result.Book.Language)
	assert.Equal(t, "the-cloud-of-unknowing-by-unknown", result.Slug)
}

func TestIngest_InvalidInput(t *testing.T) {
	for _, title := range []string{"", "  ", "ab", " a ", "?!?"} {
		completer := new(mockCompleter)
		svc := NewService(Dependencies{Completer: completer})

		_, err := svc.Ingest(context.Background(), title)
		require.Error(t, err, "title %q", title)
		assert.Equal(t, KindInvalidInput, KindOf(err))

		var ingestErr *Error
		require.ErrorAs(t, err, &ingestErr)
		assert.True(t, ingestErr.ClientError())
		completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	}
}

func TestValidateTitle(t *testing.T) {
	title, err := ValidateTitle("  Dune  ")
	require.NoError(t, err)
	assert.Equal(t, "Dune", title)

	_, err = ValidateTitle(42)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = ValidateTitle(nil)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	title, err = ValidateTitle("Ωμέ")
	require.NoError(t, err, "length counts characters, not bytes")
	assert.Equal(t, "Ωμέ", title)
}

func TestIngest_CompletionFailed(t *testing.T) {
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("status 429: rate limited")).Once()
	resolver := new(mockResolver)
	store := new(mockFlashcardStore)
	rec := &recordingAudit{}

	svc := NewService(Dependencies{Completer: completer, Resolver: resolver, Flashcards: store, Audit: rec})

	_, err := svc.Ingest(context.Background(), "Dune")
	require.Error(t, err)
	assert.Equal(t, KindCompletionFailed, KindOf(err))
	assert.Contains(t, err.Error(), "rate limited")

	completer.AssertNumberOfCalls(t, "Complete", 1)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	require.Len(t, rec.records, 1)
	assert.Equal(t, "completion_failed", rec.records[0].ErrorKind)
}

func TestIngest_ExtractionFailed(t *testing.T) {
	raw := "I'm sorry, I don't know this book."
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(raw, nil)
	resolver := new(mockResolver)
	dumper := &recordingDumper{}
	rec := &recordingAudit{}

	svc := NewService(Dependencies{Completer: completer, Resolver: resolver, Flashcards: new(mockFlashcardStore), Audit: rec, Dumps: dumper})

	_, err := svc.Ingest(context.Background(), "Unknown Book")
	require.Error(t, err)
	assert.Equal(t, KindExtractionFailed, KindOf(err))

	assert.Equal(t, []string{raw}, dumper.completions, "raw completion is kept for diagnosis")
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, rec.records, 1)
	assert.Equal(t, "dump.json", rec.records[0].RawDump)

	t.Run("dumper failure is not fatal to reporting", func(t *testing.T) {
		svc := NewService(Dependencies{Completer: completer, Resolver: resolver, Dumps: &recordingDumper{err: errors.New("read-only fs")}})
		_, err := svc.Ingest(context.Background(), "Unknown Book")
		assert.Equal(t, KindExtractionFailed, KindOf(err))
	})
}

func TestIngest_DuplicateSlug(t *testing.T) {
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(fencedCompletion, nil)
	resolver := new(mockResolver)
	resolver.On("Resolve", mock.Anything, "T", "A", "English").
		Return(nil, false, identity.ErrDuplicateSlug)
	store := new(mockFlashcardStore)

	svc := NewService(Dependencies{Completer: completer, Resolver: resolver, Flashcards: store})

	_, err := svc.Ingest(context.Background(), "atomic habits")
	assert.Equal(t, KindDuplicateSlug, KindOf(err))
	assert.ErrorIs(t, err, identity.ErrDuplicateSlug)
	store.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestIngest_ResolveFailure(t *testing.T) {
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(fencedCompletion, nil)
	resolver := new(mockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, false, errors.New("database is locked"))

	svc := NewService(Dependencies{Completer: completer, Resolver: resolver, Flashcards: new(mockFlashcardStore)})

	_, err := svc.Ingest(context.Background(), "atomic habits")
	assert.Equal(t, KindPersistenceFailed, KindOf(err))
}

func TestIngest_PartialWriteIsReported(t *testing.T) {
	book := &entities.Book{ID: 11, Title: "T", Author: "A", Language: "English"}
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(fencedCompletion, nil)
	resolver := new(mockResolver)
	resolver.On("Resolve", mock.Anything, "T", "A", "English").Return(book, true, nil)
	store := new(mockFlashcardStore)
	store.On("CreateBatch", mock.Anything, mock.MatchedBy(func(cards []entities.Flashcard) bool {
		return len(cards) == 1 && cards[0].BookID == 11
	})).Return(errors.New("disk full")).Once()
	rec := &recordingAudit{}

	svc := NewService(Dependencies{Completer: completer, Resolver: resolver, Flashcards: store, Audit: rec})

	_, err := svc.Ingest(context.Background(), "atomic habits")
	require.Error(t, err)
	assert.Equal(t, KindPersistenceFailed, KindOf(err))
	assert.Contains(t, err.Error(), "was stored but its flashcards were not")

	require.Len(t, rec.records, 1)
	assert.True(t, rec.records[0].BookCreated)
	require.NotNil(t, rec.records[0].BookID)
	assert.Equal(t, uint(11), *rec.records[0].BookID)
	store.AssertExpectations(t)
}

func TestIngest_IgnoresCallerCancellation(t *testing.T) {
	completer := new(mockCompleter)
	completer.On("Complete", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(fencedCompletion, nil).Once()

	svc, _, _ := newDBService(t, completer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Ingest(ctx, "atomic habits")
	require.NoError(t, err)
	assert.Len(t, result.Flashcards, 1)
	completer.AssertExpectations(t)
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("atomic  habits\n")
	assert.Equal(t, prompt, BuildPrompt("atomic habits"))
	assert.Contains(t, prompt, `"atomic habits"`)
	assert.Contains(t, prompt, `"flashcards"`)
	assert.Contains(t, prompt, "language")
	assert.Contains(t, prompt, "author")

	assert.Contains(t, BuildPrompt(`The "Quoted" Book`), `"The 'Quoted' Book"`)
}

func TestError(t *testing.T) {
	cause := errors.New("boom")
	err := newError(KindCompletionFailed, cause, "call %d failed", 1)
	assert.Equal(t, "completion_failed: call 1 failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, err.ClientError())

	assert.Equal(t, "invalid_input: too short", newError(KindInvalidInput, nil, "too short").Error())
	assert.Equal(t, Kind(""), KindOf(cause))
}
