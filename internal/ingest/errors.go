package ingest

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable class of an ingestion failure.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindCompletionFailed  Kind = "completion_failed"
	KindExtractionFailed  Kind = "extraction_failed"
	KindDuplicateSlug     Kind = "duplicate_slug"
	KindPersistenceFailed Kind = "persistence_failed"
)

// Error is returned by Service.Ingest for every failure.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClientError reports whether the caller, not the service, is at fault.
func (e *Error) ClientError() bool {
	return e.Kind == KindInvalidInput
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of an ingestion error, or "" for any other error.
func KindOf(err error) Kind {
	var ingestErr *Error
	if errors.As(err, &ingestErr) {
		return ingestErr.Kind
	}
	return ""
}
