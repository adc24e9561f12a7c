package service

import (
	"context"
	"errors"
	"fmt"
	"go-cms-app/internal/cache"
	"go-cms-app/internal/data"
	"go-cms-app/internal/logger"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const resourcePages = "pages"

// Actor identifies who performs a change and where the request came from.
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// CreatePageInput carries the fields of a new page.
type CreatePageInput struct {
	Slug            string        `json:"slug"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	PageType        string        `json:"pageType"`
	Category        string        `json:"category"`
	MetaTitle       string        `json:"metaTitle"`
	MetaDescription string        `json:"metaDescription"`
	FeaturedImage   string        `json:"featuredImage"`
	Metadata        data.Metadata `json:"metadata"`
	IsPublished     bool          `json:"isPublished"`
}

// PageUpdate is a partial update. Nil fields keep their current value.
type PageUpdate struct {
	Slug            *string       `json:"slug,omitempty"`
	Title           *string       `json:"title,omitempty"`
	Description     *string       `json:"description,omitempty"`
	PageType        *string       `json:"pageType,omitempty"`
	Category        *string       `json:"category,omitempty"`
	MetaTitle       *string       `json:"metaTitle,omitempty"`
	MetaDescription *string       `json:"metaDescription,omitempty"`
	FeaturedImage   *string       `json:"featuredImage,omitempty"`
	Metadata        data.Metadata `json:"metadata,omitempty"`
	IsPublished     *bool         `json:"isPublished,omitempty"`
}

// PageServicer defines the interface for interacting with pages and their history.
type PageServicer interface {
	CreatePage(ctx context.Context, in CreatePageInput, actor Actor) (*data.Page, error)
	UpdatePage(ctx context.Context, id string, upd PageUpdate, actor Actor) (*data.Page, error)
	PublishPage(ctx context.Context, id string, isPublished bool, actor Actor) (*data.Page, error)
	DeletePage(ctx context.Context, id string, actor Actor) error
	GetPage(ctx context.Context, id string) (*data.Page, error)
	GetPageBySlug(ctx context.Context, slug string) (*data.Page, error)
	ListPages(ctx context.Context, filter data.PageFilter) ([]*data.Page, error)

	GetPageVersions(ctx context.Context, pageID string) ([]*data.PageVersion, error)
	GetLatestVersion(ctx context.Context, pageID string) (*data.PageVersion, error)
	GetPageVersionByID(ctx context.Context, versionID string) (*data.PageVersion, error)
	RestoreVersion(ctx context.Context, pageID, versionID string, actor Actor) (*data.Page, error)
	CompareVersions(ctx context.Context, versionID1, versionID2 string) (*VersionComparison, error)

	PublishedPage(ctx context.Context, slug string) (*PublicPage, error)
	PublishedPages(ctx context.Context, pageType string) ([]*PublicPage, error)
}

var _ PageServicer = (*PageService)(nil)

// Options tunes a PageService.
type Options struct {
	// AttributionEnabled records the acting user in createdBy/updatedBy.
	AttributionEnabled bool
	// CacheTTL is how long rendered public pages stay cached.
	CacheTTL time.Duration
}

// PageService manages pages and their version history. Every mutation writes
// the page row, one version row and one audit entry in a single transaction.
type PageService struct {
	store       data.Store
	cache       cache.Cache
	log         logger.Logger
	markdown    goldmark.Markdown
	sanitizer   *bluemonday.Policy
	locks       *keyedMutex
	attribution bool
	cacheTTL    time.Duration
	now         func() time.Time
	newID       func() string

	// cacheMu orders cache fills against invalidations; cacheGen counts invalidations.
	cacheMu  sync.RWMutex
	cacheGen uint64
}

// NewPageService creates a new PageService. The cache may be nil.
func NewPageService(store data.Store, c cache.Cache, log logger.Logger, opts Options) *PageService {
	if log == nil {
		log = logger.Nop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &PageService{
		store:       store,
		cache:       c,
		log:         log,
		markdown:    goldmark.New(goldmark.WithExtensions(extension.GFM)),
		sanitizer:   bluemonday.UGCPolicy(),
		locks:       newKeyedMutex(),
		attribution: opts.AttributionEnabled,
		cacheTTL:    opts.CacheTTL,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// CreatePage stores a new page together with its first version.
func (s *PageService) CreatePage(ctx context.Context, in CreatePageInput, actor Actor) (*data.Page, error) {
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		return nil, &ValidationError{Field: "slug", Message: "is required"}
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, &ValidationError{Field: "title", Message: "is required"}
	}
	pageType, err := normalizePageType(in.PageType)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock("slug:" + slug)
	defer unlock()

	now := s.now()
	page := &data.Page{
		ID:              s.newID(),
		Slug:            slug,
		Title:           in.Title,
		Description:     in.Description,
		PageType:        pageType,
		Category:        in.Category,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		FeaturedImage:   in.FeaturedImage,
		Metadata:        in.Metadata.Clone(),
		IsPublished:     in.IsPublished,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedBy:       s.attribute(actor),
		UpdatedBy:       s.attribute(actor),
	}
	if page.Metadata == nil {
		page.Metadata = data.Metadata{}
	}
	if page.IsPublished {
		page.PublishedAt = &now
	}
	version := s.snapshot(page, 1, data.ChangeCreate, "Initial version", actor)

	err = s.store.Transact(ctx, func(r data.Repository) error {
		if _, err := r.FindPageBySlug(ctx, slug); err == nil {
			return &ConflictError{Resource: "page", Field: "slug", Value: slug}
		} else if !errors.Is(err, data.ErrNotFound) {
			return err
		}
		if err := r.InsertPage(ctx, page); err != nil {
			return err
		}
		if err := r.InsertPageVersion(ctx, version); err != nil {
			return err
		}
		details := data.Metadata{"title": page.Title, "slug": page.Slug, "versionNumber": 1}
		return r.InsertAuditLog(ctx, s.auditEntry(actor, "create", page.ID, details))
	})
	if err != nil {
		if data.IsDuplicate(err, data.ConstraintPageSlug) {
			return nil, &ConflictError{Resource: "page", Field: "slug", Value: slug}
		}
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	s.log.With(map[string]interface{}{"page_id": page.ID, "slug": page.Slug}).Info("Page created")
	s.invalidate(ctx, page.Slug)
	return page, nil
}

// UpdatePage merges upd over the current page and records the result as the next version.
func (s *PageService) UpdatePage(ctx context.Context, id string, upd PageUpdate, actor Actor) (*data.Page, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.applyUpdate(ctx, id, upd, actor, "", nil)
}

// PublishPage flips the published flag of a page.
func (s *PageService) PublishPage(ctx context.Context, id string, isPublished bool, actor Actor) (*data.Page, error) {
	return s.UpdatePage(ctx, id, PageUpdate{IsPublished: &isPublished}, actor)
}

// DeletePage removes a page and, with it, its whole history.
func (s *PageService) DeletePage(ctx context.Context, id string, actor Actor) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	var slug string
	err := s.store.Transact(ctx, func(r data.Repository) error {
		page, err := r.FindPageForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "page", id)
		}
		slug = page.Slug
		if err := r.DeletePage(ctx, id); err != nil {
			return notFound(err, "page", id)
		}
		details := data.Metadata{"title": page.Title, "slug": page.Slug}
		return r.InsertAuditLog(ctx, s.auditEntry(actor, "delete", id, details))
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return fmt.Errorf("failed to delete page: %w", err)
	}

	s.log.With(map[string]interface{}{"page_id": id}).Info("Page deleted")
	s.invalidate(ctx, slug)
	return nil
}

// GetPage returns a page by id.
func (s *PageService) GetPage(ctx context.Context, id string) (*data.Page, error) {
	page, err := s.store.FindPageByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "page", id)
	}
	return page, nil
}

// GetPageBySlug returns a page by slug.
func (s *PageService) GetPageBySlug(ctx context.Context, slug string) (*data.Page, error) {
	page, err := s.store.FindPageBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "page", slug)
	}
	return page, nil
}

// ListPages returns pages matching the filter, newest first.
func (s *PageService) ListPages(ctx context.Context, filter data.PageFilter) ([]*data.Page, error) {
	pages, err := s.store.ListPages(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

func (s *PageService) applyUpdate(ctx context.Context, id string, upd PageUpdate, actor Actor, action string, extra data.Metadata) (*data.Page, error) {
	if err := validateUpdate(&upd); err != nil {
		return nil, err
	}

	var (
		page         *data.Page
		previousSlug string
		err          error
	)
	for attempt := 1; attempt <= 2; attempt++ {
		page, previousSlug, err = s.updateOnce(ctx, id, upd, actor, action, extra)
		var cme *ConcurrentModificationError
		if err == nil || !errors.As(err, &cme) {
			break
		}
		s.log.With(map[string]interface{}{
			"page_id":        id,
			"version_number": cme.VersionNumber,
			"attempt":        attempt,
		}).Warn("Version number already taken")
	}
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update page: %w", err)
	}

	s.invalidate(ctx, previousSlug, page.Slug)
	return page, nil
}

// updateOnce runs a single attempt of an update inside one transaction.
func (s *PageService) updateOnce(ctx context.Context, id string, upd PageUpdate, actor Actor, action string, extra data.Metadata) (*data.Page, string, error) {
	var (
		page         *data.Page
		previousSlug string
	)
	err := s.store.Transact(ctx, func(r data.Repository) error {
		current, err := r.FindPageForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "page", id)
		}
		previousSlug = current.Slug

		if upd.Slug != nil && *upd.Slug != current.Slug {
			other, err := r.FindPageBySlug(ctx, *upd.Slug)
			switch {
			case err == nil && other.ID != id:
				return &ConflictError{Resource: "page", Field: "slug", Value: *upd.Slug}
			case err != nil && !errors.Is(err, data.ErrNotFound):
				return err
			}
		}

		next := 1
		latest, err := r.FindLatestVersion(ctx, id)
		switch {
		case err == nil:
			next = latest.VersionNumber + 1
		case !errors.Is(err, data.ErrNotFound):
			return err
		}

		now := s.now()
		merged := mergePage(current, upd)
		merged.UpdatedAt = now
		if s.attribution {
			merged.UpdatedBy = actor.UserID
		}
		switch {
		case merged.IsPublished && !current.IsPublished:
			merged.PublishedAt = &now
		case !merged.IsPublished:
			merged.PublishedAt = nil
		}

		changeType, summary := classifyChange(current.IsPublished, merged.IsPublished)
		version := s.snapshot(merged, next, changeType, summary, actor)
		if err := r.InsertPageVersion(ctx, version); err != nil {
			if data.IsDuplicate(err, data.ConstraintVersionNumber) {
				return &ConcurrentModificationError{PageID: id, VersionNumber: next}
			}
			return err
		}
		if err := r.UpdatePage(ctx, merged); err != nil {
			if data.IsDuplicate(err, data.ConstraintPageSlug) {
				return &ConflictError{Resource: "page", Field: "slug", Value: merged.Slug}
			}
			return notFound(err, "page", id)
		}

		auditAction := action
		if auditAction == "" {
			auditAction = string(changeType)
		}
		details := data.Metadata{
			"title":         merged.Title,
			"slug":          merged.Slug,
			"versionNumber": next,
			"changeType":    string(changeType),
		}
		for k, v := range extra {
			details[k] = v
		}
		if err := r.InsertAuditLog(ctx, s.auditEntry(actor, auditAction, id, details)); err != nil {
			return err
		}
		page = merged
		return nil
	})
	if data.IsDuplicate(err, data.ConstraintVersionNumber) {
		err = &ConcurrentModificationError{PageID: id}
	}
	return page, previousSlug, err
}

// classifyChange derives the change type and summary from the published flag transition.
func classifyChange(wasPublished, isPublished bool) (data.ChangeType, string) {
	switch {
	case isPublished && !wasPublished:
		return data.ChangePublish, "Page published"
	case !isPublished && wasPublished:
		return data.ChangeUnpublish, "Page unpublished"
	default:
		return data.ChangeUpdate, "Content updated"
	}
}

func mergePage(current *data.Page, upd PageUpdate) *data.Page {
	p := current.Clone()
	if upd.Slug != nil {
		p.Slug = *upd.Slug
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.PageType != nil {
		p.PageType = *upd.PageType
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.MetaTitle != nil {
		p.MetaTitle = *upd.MetaTitle
	}
	if upd.MetaDescription != nil {
		p.MetaDescription = *upd.MetaDescription
	}
	if upd.FeaturedImage != nil {
		p.FeaturedImage = *upd.FeaturedImage
	}
	if upd.Metadata != nil {
		p.Metadata = upd.Metadata.Clone()
	}
	if upd.IsPublished != nil {
		p.IsPublished = *upd.IsPublished
	}
	return p
}

func validateUpdate(upd *PageUpdate) error {
	if upd.Slug != nil {
		slug := strings.TrimSpace(*upd.Slug)
		if slug == "" {
			return &ValidationError{Field: "slug", Message: "must not be empty"}
		}
		upd.Slug = &slug
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if upd.PageType != nil {
		pageType, err := normalizePageType(*upd.PageType)
		if err != nil {
			return err
		}
		upd.PageType = &pageType
	}
	return nil
}

func normalizePageType(pageType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(pageType)) {
	case "", data.PageTypeMarketing:
		return data.PageTypeMarketing, nil
	case data.PageTypeBlog:
		return data.PageTypeBlog, nil
	case data.PageTypeJob:
		return data.PageTypeJob, nil
	}
	return "", &ValidationError{Field: "pageType", Message: fmt.Sprintf("unknown page type %q", pageType)}
}

func (s *PageService) snapshot(p *data.Page, number int, changeType data.ChangeType, summary string, actor Actor) *data.PageVersion {
	return &data.PageVersion{
		ID:              s.newID(),
		PageID:          p.ID,
		VersionNumber:   number,
		Title:           p.Title,
		Description:     p.Description,
		PageType:        p.PageType,
		Category:        p.Category,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		FeaturedImage:   p.FeaturedImage,
		Metadata:        p.Metadata.Clone(),
		IsPublished:     p.IsPublished,
		ChangeType:      changeType,
		ChangeSummary:   summary,
		CreatedAt:       s.now(),
		CreatedBy:       s.attribute(actor),
	}
}

func (s *PageService) attribute(actor Actor) string {
	if !s.attribution {
		return ""
	}
	return actor.UserID
}

// notFound converts a storage miss into a NotFoundError and passes other errors through.
func notFound(err error, resource, id string) error {
	if errors.Is(err, data.ErrNotFound) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return err
}

func isDomainError(err error) bool {
	var kinded interface{ Kind() string }
	return errors.As(err, &kinded)
}
