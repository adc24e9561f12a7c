package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const versionColumns = `id, page_id, version_number, title, description, page_type, category, meta_title,
	meta_description, featured_image, metadata, is_published, change_type, change_summary, created_at, created_by`

// InsertPageVersion writes a new immutable version row.
// A clash on (page_id, version_number) comes back as a DuplicateError.
func (r *sqlRepository) InsertPageVersion(ctx context.Context, version *PageVersion) error {
	query := `INSERT INTO page_versions (` + versionColumns + `) VALUES (:id, :page_id, :version_number, :title,
		:description, :page_type, :category, :meta_title, :meta_description, :featured_image, :metadata,
		:is_published, :change_type, :change_summary, :created_at, :created_by)`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, version); err != nil {
		return fmt.Errorf("failed to insert page version: %w", translateError(err))
	}
	return nil
}

// ListVersionsByPage returns a page's versions, most recent first.
func (r *sqlRepository) ListVersionsByPage(ctx context.Context, pageID string) ([]*PageVersion, error) {
	versions := []*PageVersion{}
	query := `SELECT ` + versionColumns + ` FROM page_versions WHERE page_id = ? ORDER BY version_number DESC`
	if err := sqlx.SelectContext(ctx, r.q, &versions, r.q.Rebind(query), pageID); err != nil {
		return nil, fmt.Errorf("failed to list page versions: %w", err)
	}
	return versions, nil
}

// FindVersionByID retrieves a version by its ID.
func (r *sqlRepository) FindVersionByID(ctx context.Context, id string) (*PageVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM page_versions WHERE id = ?`
	return r.getVersion(ctx, query, id)
}

// FindLatestVersion retrieves the version with the highest number for a page.
func (r *sqlRepository) FindLatestVersion(ctx context.Context, pageID string) (*PageVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM page_versions WHERE page_id = ? ORDER BY version_number DESC LIMIT 1`
	return r.getVersion(ctx, query, pageID)
}

func (r *sqlRepository) getVersion(ctx context.Context, query string, arg interface{}) (*PageVersion, error) {
	var version PageVersion
	if err := sqlx.GetContext(ctx, r.q, &version, r.q.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("page version %v: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get page version: %w", err)
	}
	return &version, nil
}
