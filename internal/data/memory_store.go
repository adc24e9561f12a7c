package data

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a Store that keeps everything in process memory. It enforces
// the same constraints as the SQL schema: unique slugs, unique version numbers
// per page and cascading deletes.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	pages    map[string]*Page
	versions map[string]*PageVersion
	audit    []*AuditLog
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		pages:    make(map[string]*Page),
		versions: make(map[string]*PageVersion),
	}}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		pages:    make(map[string]*Page, len(s.pages)),
		versions: make(map[string]*PageVersion, len(s.versions)),
		audit:    make([]*AuditLog, len(s.audit)),
	}
	for id, p := range s.pages {
		c.pages[id] = p
	}
	for id, v := range s.versions {
		c.versions[id] = v
	}
	copy(c.audit, s.audit)
	return c
}

// Transact runs fn against a private copy of the state and swaps it in on success.
// Rows are replaced, never mutated in place, so a shallow copy of the maps is enough.
func (m *MemoryStore) Transact(ctx context.Context, fn func(Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	working := m.state.clone()
	if err := fn(&memoryRepository{state: working}); err != nil {
		return err
	}
	m.state = working
	return nil
}

func (m *MemoryStore) repo() *memoryRepository {
	return &memoryRepository{state: m.state}
}

func (m *MemoryStore) FindPageByID(ctx context.Context, id string) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repo().FindPageByID(ctx, id)
}

func (m *MemoryStore) FindPageForUpdate(ctx context.Context, id string) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repo().FindPageForUpdate(ctx, id)
}

func (m *MemoryStore) FindPageBySlug(ctx context.Context, slug string) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repo().FindPageBySlug(ctx, slug)
}

func (m *MemoryStore) ListPages(ctx context.Context, filter PageFilter) ([]*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repo().ListPages(ctx, filter)
}

func (m *MemoryStore) InsertPage(ctx context.Context, page *Page) error {
	return m.Transact(ctx, func(r Repository) error { return r.InsertPage(ctx, page) })
}

func (m *MemoryStore) UpdatePage(ctx context.Context, page *Page) error {
	return m.Transact(ctx, func(r Repository) error { return r.UpdatePage(ctx, page) })
}

func (m *MemoryStore) DeletePage(ctx context.Context, id string) error {
	return m.Transact(ctx, func(r Repository) error { return r.DeletePage(ctx, id) })
}

func (m *MemoryStore) InsertPageVersion(ctx context.Context, version *PageVersion) error {
	return m.Transact(ctx, func(r Repository) error { return r.InsertPageVersion(ctx, version) })
}

func (m *MemoryStore) ListVersionsByPage(ctx context.Context, pageID string) ([]*PageVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repo().ListVersionsByPage(ctx, pageID)
}

func (m *MemoryStore) FindVersionByID(ctx context.Context, id string) (*PageVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repo().FindVersionByID(ctx, id)
}

func (m *MemoryStore) FindLatestVersion(ctx context.Context, pageID string) (*PageVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repo().FindLatestVersion(ctx, pageID)
}

func (m *MemoryStore) InsertAuditLog(ctx context.Context, entry *AuditLog) error {
	return m.Transact(ctx, func(r Repository) error { return r.InsertAuditLog(ctx, entry) })
}

func (m *MemoryStore) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]*AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repo().ListAuditLogs(ctx, filter)
}

func (m *MemoryStore) DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := m.Transact(ctx, func(r Repository) error {
		var err error
		n, err = r.DeleteAuditLogsBefore(ctx, cutoff)
		return err
	})
	return n, err
}

// memoryRepository operates on a state the caller has exclusive access to.
type memoryRepository struct {
	state *memoryState
}

func (r *memoryRepository) FindPageByID(ctx context.Context, id string) (*Page, error) {
	page, ok := r.state.pages[id]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	return page.Clone(), nil
}

func (r *memoryRepository) FindPageForUpdate(ctx context.Context, id string) (*Page, error) {
	return r.FindPageByID(ctx, id)
}

func (r *memoryRepository) FindPageBySlug(ctx context.Context, slug string) (*Page, error) {
	for _, page := range r.state.pages {
		if page.Slug == slug {
			return page.Clone(), nil
		}
	}
	return nil, fmt.Errorf("page %s: %w", slug, ErrNotFound)
}

func (r *memoryRepository) ListPages(ctx context.Context, filter PageFilter) ([]*Page, error) {
	pages := []*Page{}
	for _, page := range r.state.pages {
		if filter.PageType != "" && page.PageType != filter.PageType {
			continue
		}
		if filter.PublishedOnly && !page.IsPublished {
			continue
		}
		pages = append(pages, page.Clone())
	}
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].CreatedAt.After(pages[j].CreatedAt)
	})
	return pages, nil
}

func (r *memoryRepository) slugTaken(slug, exceptID string) bool {
	for id, page := range r.state.pages {
		if page.Slug == slug && id != exceptID {
			return true
		}
	}
	return false
}

func (r *memoryRepository) InsertPage(ctx context.Context, page *Page) error {
	if _, exists := r.state.pages[page.ID]; exists {
		return &DuplicateError{Constraint: "pages.id"}
	}
	if r.slugTaken(page.Slug, "") {
		return &DuplicateError{Constraint: ConstraintPageSlug}
	}
	r.state.pages[page.ID] = page.Clone()
	return nil
}

func (r *memoryRepository) UpdatePage(ctx context.Context, page *Page) error {
	current, ok := r.state.pages[page.ID]
	if !ok {
		return fmt.Errorf("no page found to update with id %s: %w", page.ID, ErrNotFound)
	}
	if r.slugTaken(page.Slug, page.ID) {
		return &DuplicateError{Constraint: ConstraintPageSlug}
	}
	updated := page.Clone()
	updated.CreatedAt = current.CreatedAt
	updated.CreatedBy = current.CreatedBy
	r.state.pages[page.ID] = updated
	return nil
}

func (r *memoryRepository) DeletePage(ctx context.Context, id string) error {
	if _, ok := r.state.pages[id]; !ok {
		return fmt.Errorf("no page found to delete with id %s: %w", id, ErrNotFound)
	}
	delete(r.state.pages, id)
	for vid, v := range r.state.versions {
		if v.PageID == id {
			delete(r.state.versions, vid)
		}
	}
	return nil
}

func (r *memoryRepository) InsertPageVersion(ctx context.Context, version *PageVersion) error {
	if _, ok := r.state.pages[version.PageID]; !ok {
		return fmt.Errorf("page %s for version: %w", version.PageID, ErrNotFound)
	}
	for _, v := range r.state.versions {
		if v.PageID == version.PageID && v.VersionNumber == version.VersionNumber {
			return &DuplicateError{Constraint: ConstraintVersionNumber}
		}
	}
	r.state.versions[version.ID] = version.Clone()
	return nil
}

func (r *memoryRepository) ListVersionsByPage(ctx context.Context, pageID string) ([]*PageVersion, error) {
	versions := []*PageVersion{}
	for _, v := range r.state.versions {
		if v.PageID == pageID {
			versions = append(versions, v.Clone())
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionNumber > versions[j].VersionNumber
	})
	return versions, nil
}

func (r *memoryRepository) FindVersionByID(ctx context.Context, id string) (*PageVersion, error) {
	v, ok := r.state.versions[id]
	if !ok {
		return nil, fmt.Errorf("page version %s: %w", id, ErrNotFound)
	}
	return v.Clone(), nil
}

func (r *memoryRepository) FindLatestVersion(ctx context.Context, pageID string) (*PageVersion, error) {
	var latest *PageVersion
	for _, v := range r.state.versions {
		if v.PageID == pageID && (latest == nil || v.VersionNumber > latest.VersionNumber) {
			latest = v
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("page version for page %s: %w", pageID, ErrNotFound)
	}
	return latest.Clone(), nil
}

func (r *memoryRepository) InsertAuditLog(ctx context.Context, entry *AuditLog) error {
	c := *entry
	c.Details = entry.Details.Clone()
	r.state.audit = append(r.state.audit, &c)
	return nil
}

func (r *memoryRepository) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]*AuditLog, error) {
	entries := []*AuditLog{}
	for i := len(r.state.audit) - 1; i >= 0; i-- {
		e := r.state.audit[i]
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Resource != "" && e.Resource != filter.Resource {
			continue
		}
		if filter.Since != nil && e.CreatedAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && e.CreatedAt.After(*filter.Until) {
			continue
		}
		c := *e
		c.Details = e.Details.Clone()
		entries = append(entries, &c)
		if filter.Limit > 0 && len(entries) == filter.Limit {
			break
		}
	}
	return entries, nil
}

func (r *memoryRepository) DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	kept := r.state.audit[:0:0]
	var removed int64
	for _, e := range r.state.audit {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.state.audit = kept
	return removed, nil
}
