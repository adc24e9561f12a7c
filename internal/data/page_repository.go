package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const pageColumns = `id, slug, title, description, page_type, category, meta_title, meta_description,
	featured_image, metadata, is_published, published_at, created_at, updated_at, created_by, updated_by`

// SQLStore is a Store backed by one of the supported SQL databases through sqlx.
type SQLStore struct {
	*sqlRepository
	db *sqlx.DB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		sqlRepository: &sqlRepository{q: db},
		db:            db,
	}
}

// Transact runs fn in a database transaction, committing only when fn succeeds.
func (s *SQLStore) Transact(ctx context.Context, fn func(Repository) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&sqlRepository{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translateError(err))
	}
	return nil
}

// sqlRepository implements Repository over either a *sqlx.DB or a *sqlx.Tx.
type sqlRepository struct {
	q sqlx.ExtContext
}

// translateError turns driver specific unique violations into DuplicateError.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return &DuplicateError{Constraint: constraintFromMessage(sqliteErr.Error()), Err: err}
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return &DuplicateError{Constraint: constraintFromMessage(mysqlErr.Message), Err: err}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &DuplicateError{Constraint: constraintFromMessage(pqErr.Constraint), Err: err}
	}
	return err
}

// FindPageByID retrieves a single page by its ID.
func (r *sqlRepository) FindPageByID(ctx context.Context, id string) (*Page, error) {
	return r.getPage(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
}

// FindPageForUpdate retrieves a page and takes a row lock on MySQL and Postgres.
// SQLite serializes writers on its own.
func (r *sqlRepository) FindPageForUpdate(ctx context.Context, id string) (*Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = ?`
	if r.q.DriverName() != DriverSQLite {
		query += ` FOR UPDATE`
	}
	return r.getPage(ctx, query, id)
}

// FindPageBySlug retrieves a single page by its slug.
func (r *sqlRepository) FindPageBySlug(ctx context.Context, slug string) (*Page, error) {
	return r.getPage(ctx, `SELECT `+pageColumns+` FROM pages WHERE slug = ?`, slug)
}

func (r *sqlRepository) getPage(ctx context.Context, query string, arg interface{}) (*Page, error) {
	var page Page
	if err := sqlx.GetContext(ctx, r.q, &page, r.q.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("page %v: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &page, nil
}

// ListPages retrieves pages matching the filter, newest first.
func (r *sqlRepository) ListPages(ctx context.Context, filter PageFilter) ([]*Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE 1 = 1`
	var args []interface{}
	if filter.PageType != "" {
		query += ` AND page_type = ?`
		args = append(args, filter.PageType)
	}
	if filter.PublishedOnly {
		query += ` AND is_published = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at DESC`

	pages := []*Page{}
	if err := sqlx.SelectContext(ctx, r.q, &pages, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

// InsertPage inserts a new page row. The caller assigns the ID and timestamps.
func (r *sqlRepository) InsertPage(ctx context.Context, page *Page) error {
	query := `INSERT INTO pages (` + pageColumns + `) VALUES (:id, :slug, :title, :description, :page_type,
		:category, :meta_title, :meta_description, :featured_image, :metadata, :is_published, :published_at,
		:created_at, :updated_at, :created_by, :updated_by)`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, page); err != nil {
		return fmt.Errorf("failed to execute create page query: %w", translateError(err))
	}
	return nil
}

// UpdatePage overwrites every mutable column of an existing page.
func (r *sqlRepository) UpdatePage(ctx context.Context, page *Page) error {
	query := `UPDATE pages SET slug = :slug, title = :title, description = :description, page_type = :page_type,
		category = :category, meta_title = :meta_title, meta_description = :meta_description,
		featured_image = :featured_image, metadata = :metadata, is_published = :is_published,
		published_at = :published_at, updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.q, query, page)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", translateError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	// MySQL reports 0 affected rows when nothing changed, so only trust a miss elsewhere.
	if rowsAffected == 0 && r.q.DriverName() != DriverMySQL {
		return fmt.Errorf("no page found to update with id %s: %w", page.ID, ErrNotFound)
	}
	return nil
}

// DeletePage removes a page; versions go with it through ON DELETE CASCADE.
func (r *sqlRepository) DeletePage(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, r.q.Rebind(`DELETE FROM pages WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no page found to delete with id %s: %w", id, ErrNotFound)
	}
	return nil
}
