// Package ingest turns a requested book title into a stored book with
// flashcards.
//
// A request moves through fixed states, each logged with an [INGEST] prefix:
//
//	RECEIVED -> PROMPTED -> COMPLETION_PENDING -> EXTRACTED -> RESOLVED -> PERSISTED
//
// with failure exits VALIDATION_FAILED, COMPLETION_FAILED, EXTRACTION_FAILED
// and PERSISTENCE_FAILED. Failed completion calls are not retried. Once the
// title is validated the pipeline runs to the end even if the caller goes away.
package ingest

import (
	"context"
	"errors"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mrlokans/bookcards/internal/audit"
	"github.com/mrlokans/bookcards/internal/completion"
	"github.com/mrlokans/bookcards/internal/entities"
	"github.com/mrlokans/bookcards/internal/extractor"
	"github.com/mrlokans/bookcards/internal/identity"
	"github.com/mrlokans/bookcards/internal/utils"
)

// MinTitleLength is the shortest accepted title, in characters, after trimming.
const MinTitleLength = 3

type State string

const (
	StateReceived          State = "RECEIVED"
	StatePrompted          State = "PROMPTED"
	StateCompletionPending State = "COMPLETION_PENDING"
	StateExtracted         State = "EXTRACTED"
	StateResolved          State = "RESOLVED"
	StatePersisted         State = "PERSISTED"

	StateValidationFailed  State = "VALIDATION_FAILED"
	StateCompletionFailed  State = "COMPLETION_FAILED"
	StateExtractionFailed  State = "EXTRACTION_FAILED"
	StatePersistenceFailed State = "PERSISTENCE_FAILED"
)

// BookResolver finds or creates the canonical book for a title.
type BookResolver interface {
	Resolve(ctx context.Context, rawTitle, rawAuthor, language string) (*entities.Book, bool, error)
}

// FlashcardStore persists a batch of cards atomically.
type FlashcardStore interface {
	CreateBatch(ctx context.Context, cards []entities.Flashcard) error
}

// AuditLogger records the outcome of each request.
type AuditLogger interface {
	LogIngest(rec audit.IngestRecord)
}

// RawDumper keeps completions that could not be parsed for later diagnosis.
type RawDumper interface {
	SaveRawCompletion(requestedTitle, prompt, completion string, cause error) (string, error)
}

// Dependencies are the collaborators of a Service. Audit and Dumps are optional.
type Dependencies struct {
	Completer  completion.Completer
	Extractor  *extractor.Extractor
	Resolver   BookResolver
	Flashcards FlashcardStore
	Audit      AuditLogger
	Dumps      RawDumper
}

// Result is what a successful ingestion returns to the caller.
type Result struct {
	Book       *entities.Book       `json:"book"`
	Slug       string               `json:"slug"`
	Flashcards []entities.Flashcard `json:"flashcards"`
	Created    bool                 `json:"created"`
	Strategy   string               `json:"strategy"`
}

type Service struct {
	completer  completion.Completer
	extractor  *extractor.Extractor
	resolver   BookResolver
	flashcards FlashcardStore
	audit      AuditLogger
	dumps      RawDumper
}

func NewService(deps Dependencies) *Service {
	ex := deps.Extractor
	if ex == nil {
		ex = extractor.New()
	}
	return &Service{
		completer:  deps.Completer,
		extractor:  ex,
		resolver:   deps.Resolver,
		flashcards: deps.Flashcards,
		audit:      deps.Audit,
		dumps:      deps.Dumps,
	}
}

// ValidateTitle checks a decoded request value and returns the trimmed title.
func ValidateTitle(v any) (string, error) {
	s, err := utils.ValidateText(v)
	if err != nil {
		return "", newError(KindInvalidInput, err, "title must be a string")
	}
	title := strings.TrimSpace(s)
	if utf8.RuneCountInString(title) < MinTitleLength {
		return "", newError(KindInvalidInput, nil, "title must be at least %d characters", MinTitleLength)
	}
	if utils.NormalizeTitle(title) == "" {
		return "", newError(KindInvalidInput, nil, "title must contain letters or digits")
	}
	return title, nil
}

// Ingest runs the whole pipeline for one requested title. Every error it
// returns is an *Error.
func (s *Service) Ingest(ctx context.Context, title string) (*Result, error) {
	run := &run{id: uuid.NewString()[:8], requested: title}
	run.transition(StateReceived, "title=%q", title)

	title, err := ValidateTitle(title)
	if err != nil {
		run.transition(StateValidationFailed, "%v", err)
		return nil, err
	}
	run.requested = title

	// Past validation nothing may abort the pipeline halfway
	ctx = context.WithoutCancel(ctx)

	result, err := s.execute(ctx, run)
	if s.audit != nil {
		s.audit.LogIngest(run.record(result, err))
	}
	return result, err
}

func (s *Service) execute(ctx context.Context, run *run) (*Result, error) {
	prompt := BuildPrompt(run.requested)
	run.transition(StatePrompted, "prompt_len=%d", len(prompt))

	run.transition(StateCompletionPending, "")
	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		run.transition(StateCompletionFailed, "%v", err)
		return nil, newError(KindCompletionFailed, err, "completion service failed")
	}

	extracted, err := s.extractor.Extract(raw)
	if err != nil {
		run.rawDump = s.keepRaw(run, prompt, raw, err)
		run.transition(StateExtractionFailed, "%v", err)
		return nil, newError(KindExtractionFailed, err, "could not read flashcards from completion")
	}
	run.strategy = extracted.Strategy
	run.transition(StateExtracted, "strategy=%s cards=%d", extracted.Strategy, len(extracted.Flashcards))

	bookTitle, author, language := metadataWithDefaults(extracted, run.requested)
	book, created, err := s.resolver.Resolve(ctx, bookTitle, author, language)
	if err != nil {
		run.transition(StatePersistenceFailed, "resolve: %v", err)
		if errors.Is(err, identity.ErrDuplicateSlug) {
			return nil, newError(KindDuplicateSlug, err, "book %q collides with an existing slug", bookTitle)
		}
		return nil, newError(KindPersistenceFailed, err, "could not store book %q", bookTitle)
	}
	run.book = book
	run.created = created
	run.transition(StateResolved, "book_id=%d created=%t slug=%s", book.ID, created, book.SlugValue())

	cards := make([]entities.Flashcard, len(extracted.Flashcards))
	for i, c := range extracted.Flashcards {
		cards[i] = entities.Flashcard{
			BookID:   book.ID,
			Question: c.Question,
			Answer:   c.Answer,
			Language: book.Language,
		}
	}

	if err := s.flashcards.CreateBatch(ctx, cards); err != nil {
		if created {
			run.transition(StatePersistenceFailed, "PARTIAL WRITE: book %d was created but none of its %d flashcards were stored: %v", book.ID, len(cards), err)
			return nil, newError(KindPersistenceFailed, err, "book %q was stored but its flashcards were not", book.Title)
		}
		run.transition(StatePersistenceFailed, "flashcards for book %d not stored: %v", book.ID, err)
		return nil, newError(KindPersistenceFailed, err, "could not store flashcards for %q", book.Title)
	}
	run.cards = len(cards)
	run.transition(StatePersisted, "book_id=%d flashcards=%d", book.ID, len(cards))

	return &Result{
		Book:       book,
		Slug:       book.SlugValue(),
		Flashcards: cards,
		Created:    created,
		Strategy:   extracted.Strategy,
	}, nil
}

// keepRaw stores the raw completion through the dumper, falling back to the
// log so the text is never lost.
func (s *Service) keepRaw(run *run, prompt, raw string, cause error) string {
	if s.dumps != nil {
		filename, err := s.dumps.SaveRawCompletion(run.requested, prompt, raw, cause)
		if err == nil {
			log.Printf("[INGEST] %s raw completion saved to %s", run.id, filename)
			return filename
		}
		log.Printf("[INGEST] %s failed to save raw completion: %v", run.id, err)
	}
	log.Printf("[INGEST] %s raw completion: %q", run.id, raw)
	return ""
}

// metadataWithDefaults fills what the completion left out: the requested
// title, an unknown author and English.
func metadataWithDefaults(res *extractor.Result, requested string) (title, author, language string) {
	title = requested
	if res.Title != nil && utils.NormalizeTitle(*res.Title) != "" {
		title = *res.Title
	}
	author = entities.DefaultAuthor
	if res.Author != nil {
		author = *res.Author
	}
	language = entities.DefaultLanguage
	if res.Language != nil {
		language = *res.Language
	}
	return title, author, language
}

// run carries per-request state for logging and auditing.
type run struct {
	id        string
	requested string
	strategy  string
	rawDump   string
	book      *entities.Book
	created   bool
	cards     int
}

func (r *run) transition(state State, format string, args ...any) {
	if format == "" {
		log.Printf("[INGEST] %s %s", r.id, state)
		return
	}
	log.Printf("[INGEST] %s %s "+format, append([]any{r.id, state}, args...)...)
}

func (r *run) record(result *Result, err error) audit.IngestRecord {
	rec := audit.IngestRecord{
		RequestedTitle: r.requested,
		BookCreated:    r.created,
		Flashcards:     r.cards,
		Strategy:       r.strategy,
		RawDump:        r.rawDump,
		Err:            err,
	}
	if r.book != nil {
		id := r.book.ID
		rec.BookID = &id
	}
	if err != nil {
		rec.ErrorKind = string(KindOf(err))
	}
	return rec
}
