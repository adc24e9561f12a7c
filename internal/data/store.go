package data

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Unique constraints the stores report through DuplicateError.
const (
	ConstraintPageSlug      = "pages.slug"
	ConstraintVersionNumber = "page_versions.page_id_version_number"
)

// DuplicateError reports a unique constraint violation.
type DuplicateError struct {
	Constraint string
	Err        error
}

func (e *DuplicateError) Error() string {
	if e.Err != nil {
		return "duplicate value for " + e.Constraint + ": " + e.Err.Error()
	}
	return "duplicate value for " + e.Constraint
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

// IsDuplicate reports whether err is a unique violation on the given constraint.
func IsDuplicate(err error, constraint string) bool {
	var dup *DuplicateError
	return errors.As(err, &dup) && dup.Constraint == constraint
}

// constraintFromMessage maps a driver error message onto one of the known constraints.
func constraintFromMessage(msg string) string {
	switch {
	case strings.Contains(msg, "page_versions"):
		return ConstraintVersionNumber
	case strings.Contains(msg, "slug"):
		return ConstraintPageSlug
	}
	return msg
}

// Repository is the set of persistence operations the page service relies on.
// Each call is atomic on its own; Store.Transact groups several into one unit.
type Repository interface {
	FindPageByID(ctx context.Context, id string) (*Page, error)
	// FindPageForUpdate loads a page and, where the backend supports it, locks the row
	// until the surrounding transaction ends.
	FindPageForUpdate(ctx context.Context, id string) (*Page, error)
	FindPageBySlug(ctx context.Context, slug string) (*Page, error)
	ListPages(ctx context.Context, filter PageFilter) ([]*Page, error)
	InsertPage(ctx context.Context, page *Page) error
	UpdatePage(ctx context.Context, page *Page) error
	DeletePage(ctx context.Context, id string) error

	InsertPageVersion(ctx context.Context, version *PageVersion) error
	ListVersionsByPage(ctx context.Context, pageID string) ([]*PageVersion, error)
	FindVersionByID(ctx context.Context, id string) (*PageVersion, error)
	FindLatestVersion(ctx context.Context, pageID string) (*PageVersion, error)

	InsertAuditLog(ctx context.Context, entry *AuditLog) error
	ListAuditLogs(ctx context.Context, filter AuditFilter) ([]*AuditLog, error)
	DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is a Repository that can run a group of operations atomically.
type Store interface {
	Repository
	// Transact runs fn inside a transaction. Any error returned by fn rolls back
	// every write made through the Repository it was given.
	Transact(ctx context.Context, fn func(Repository) error) error
}
