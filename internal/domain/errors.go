package domain

import (
	"fmt"
)

// ValidationError reports a missing or malformed field in a request.
// The request is rejected before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// EmptyWindowError reports that no fraud cases fell inside the requested
// window. This is a reportable business condition, not a crash.
type EmptyWindowError struct {
	Window Window
}

func (e *EmptyWindowError) Error() string {
	return fmt.Sprintf("no fraud cases in window %s", e.Window)
}

// DataIntegrityError reports a stored case whose risk level is outside the
// four-member enumeration. The engine surfaces it instead of guessing a
// bucket, since silently reclassifying would corrupt statistics.
type DataIntegrityError struct {
	CaseID string
	Value  string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("case %s has invalid risk level %q", e.CaseID, e.Value)
}

// NarrativeUnavailableError reports that the narrative-generation
// collaborator was unreachable or errored after the bounded retry.
type NarrativeUnavailableError struct {
	Err error
}

func (e *NarrativeUnavailableError) Error() string {
	return fmt.Sprintf("narrative generation unavailable: %v", e.Err)
}

func (e *NarrativeUnavailableError) Unwrap() error { return e.Err }

// StorageError reports a failed store operation. No automatic retry is
// performed in the core.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
