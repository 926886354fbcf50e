package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

const QueueCleanupAuditEvents = "cleanup_audit_events"

// DefaultAuditRetentionDays applies when a cleanup task carries no retention.
const DefaultAuditRetentionDays = 30

// AuditEventCleaner deletes audit rows older than a retention period.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// DumpPruner removes raw completion dumps older than a cutoff.
type DumpPruner interface {
	Prune(olderThan time.Time) (int, error)
}

// CleanupAuditEventsTask expires the audit trail: event rows and the raw
// completion dumps written for failed extractions.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueCleanupAuditEvents,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention:   retainFailures(24 * time.Hour),
	}
}

func (t CleanupAuditEventsTask) retention() time.Duration {
	days := t.RetentionDays
	if days <= 0 {
		days = DefaultAuditRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// CleanupAuditEventsProcessor deletes expired events first and dumps second.
// dumps may be nil when raw completions are not kept on disk.
func CleanupAuditEventsProcessor(cleaner AuditEventCleaner, dumps DumpPruner) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return errors.New("audit event cleaner not configured")
		}

		retention := task.retention()
		events, err := cleaner.DeleteOldEvents(retention)
		if err != nil {
			return fmt.Errorf("delete audit events: %w", err)
		}

		var files int
		if dumps != nil {
			if files, err = dumps.Prune(time.Now().Add(-retention)); err != nil {
				return fmt.Errorf("prune completion dumps: %w", err)
			}
		}

		log.Printf("[TASK] Audit cleanup (retention %s): %d events, %d completion dumps removed", retention, events, files)
		return nil
	}
}

func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner, dumps DumpPruner) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner, dumps))
}
