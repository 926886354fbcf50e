package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Auditor writes diagnostic JSON dumps, one file per record, to AuditDir.
type Auditor struct {
	AuditDir string
}

func NewAuditor(auditDir string) *Auditor {
	return &Auditor{
		AuditDir: auditDir,
	}
}

// RawCompletion is the dump written when a completion could not be turned
// into flashcards.
type RawCompletion struct {
	RequestedTitle string    `json:"requested_title"`
	Prompt         string    `json:"prompt"`
	Completion     string    `json:"completion"`
	Error          string    `json:"error"`
	CapturedAt     time.Time `json:"captured_at"`
}

// SaveJSON saves the provided data as JSON to a file with UUID4 filename
func (a *Auditor) SaveJSON(data any) (string, error) {
	if err := a.ensureAuditDir(); err != nil {
		return "", fmt.Errorf("failed to ensure audit directory: %w", err)
	}

	auditID := uuid.New()
	filename := fmt.Sprintf("%s.json", auditID.String())
	path := filepath.Join(a.AuditDir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal data to JSON: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write audit file: %w", err)
	}

	log.Printf("[AUDIT] Saved audit file: %s", path)
	return filename, nil
}

// SaveRawCompletion dumps a completion that failed extraction.
func (a *Auditor) SaveRawCompletion(requestedTitle, prompt, completion string, cause error) (string, error) {
	record := RawCompletion{
		RequestedTitle: requestedTitle,
		Prompt:         prompt,
		Completion:     completion,
		CapturedAt:     time.Now().UTC(),
	}
	if cause != nil {
		record.Error = cause.Error()
	}
	return a.SaveJSON(record)
}

// Prune removes dump files last modified before olderThan and returns how
// many were removed. A missing directory is not an error.
func (a *Auditor) Prune(olderThan time.Time) (int, error) {
	entries, err := os.ReadDir(a.AuditDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read audit directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(olderThan) {
			continue
		}
		if err := os.Remove(filepath.Join(a.AuditDir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove audit file %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// ensureAuditDir creates the audit directory if it doesn't exist
func (a *Auditor) ensureAuditDir() error {
	if _, err := os.Stat(a.AuditDir); os.IsNotExist(err) {
		if err := os.MkdirAll(a.AuditDir, 0755); err != nil {
			return fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	return nil
}
