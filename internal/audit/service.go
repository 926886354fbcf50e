package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/bookcards/internal/database/audit"
	"github.com/mrlokans/bookcards/internal/entities"
)

const maxErrorLen = 500

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// IngestRecord describes the outcome of one ingestion request.
type IngestRecord struct {
	RequestedTitle string
	BookID         *uint
	BookCreated    bool
	Flashcards     int
	Strategy       string
	RawDump        string // audit file holding the raw completion, if any
	ErrorKind      string
	Err            error
}

// BackfillRecord summarizes one run of the backfill migration.
type BackfillRecord struct {
	Books         int
	Updated       int
	Conflicts     int
	LegacyLinked  int64
	LegacyOrphans int
	Err           error
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every pending LogAsync write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogIngest records an ingestion outcome. A failure after the book was
// created is stored as partial so orphaned books stay discoverable.
func (s *Service) LogIngest(rec IngestRecord) {
	event := &entities.AuditEvent{
		EventType:  entities.AuditEventIngest,
		Action:     "generate_flashcards",
		EntityType: "book",
		EntityID:   rec.BookID,
		Status:     entities.AuditStatusSuccess,
	}

	switch {
	case rec.Err == nil:
		event.Description = fmt.Sprintf("Generated %d flashcards for '%s'", rec.Flashcards, rec.RequestedTitle)
	case rec.BookCreated:
		event.Status = entities.AuditStatusPartial
		event.Description = fmt.Sprintf("Book created for '%s' but its flashcards were not stored", rec.RequestedTitle)
	default:
		event.Status = entities.AuditStatusFailed
		event.Description = fmt.Sprintf("Flashcard generation failed for '%s'", rec.RequestedTitle)
	}
	if rec.Err != nil {
		event.ErrorKind = rec.ErrorKind
		event.ErrorMsg = truncate(rec.Err.Error(), maxErrorLen)
	}

	event.Metadata = encodeMetadata(map[string]any{
		"requested_title": rec.RequestedTitle,
		"book_created":    rec.BookCreated,
		"flashcards":      rec.Flashcards,
		"strategy":        rec.Strategy,
		"raw_dump":        rec.RawDump,
	})

	s.LogAsync(event)
}

// LogBackfill records a backfill migration run.
func (s *Service) LogBackfill(rec BackfillRecord) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventBackfill,
		Action:      "backfill_books",
		EntityType:  "book",
		Description: fmt.Sprintf("Backfilled %d of %d books, linked %d legacy flashcards", rec.Updated, rec.Books, rec.LegacyLinked),
		Status:      entities.AuditStatusSuccess,
		Metadata: encodeMetadata(map[string]any{
			"books":          rec.Books,
			"updated":        rec.Updated,
			"conflicts":      rec.Conflicts,
			"legacy_linked":  rec.LegacyLinked,
			"legacy_orphans": rec.LegacyOrphans,
		}),
	}

	if rec.Err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(rec.Err.Error(), maxErrorLen)
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(limit, offset)
}

// GetEventsByType retrieves audit events filtered by type.
func (s *Service) GetEventsByType(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByType(eventType, limit, offset)
}

// GetPartialWrites lists ingestions that left a book without flashcards.
func (s *Service) GetPartialWrites(limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByStatus(entities.AuditStatusPartial, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func encodeMetadata(metadata map[string]any) string {
	b, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
