package service

import "fmt"

// Error kinds reported by Kind(). Handlers map these onto HTTP status codes.
const (
	KindNotFound               = "not_found"
	KindConflict               = "conflict"
	KindConcurrentModification = "concurrent_modification"
	KindValidation             = "validation"
)

// NotFoundError is returned when a page or version does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Kind() string { return KindNotFound }

// ConflictError is returned when a write would break a uniqueness rule, such as a taken slug.
type ConflictError struct {
	Resource string
	Field    string
	Value    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Resource, e.Field, e.Value)
}

func (e *ConflictError) Kind() string { return KindConflict }

// ConcurrentModificationError is returned when another writer claimed the
// version number this update tried to write, even after a retry.
type ConcurrentModificationError struct {
	PageID        string
	VersionNumber int
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("page %q was modified concurrently (version %d already exists)", e.PageID, e.VersionNumber)
}

func (e *ConcurrentModificationError) Kind() string { return KindConcurrentModification }

// ValidationError is returned for malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Kind() string { return KindValidation }
