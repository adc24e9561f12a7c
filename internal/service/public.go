package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"go-cms-app/internal/data"
	"time"
)

// PublicPage is the read-only view of a published page served to site visitors.
type PublicPage struct {
	Slug            string        `json:"slug"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	DescriptionHTML string        `json:"descriptionHtml,omitempty"`
	PageType        string        `json:"pageType"`
	Category        string        `json:"category"`
	MetaTitle       string        `json:"metaTitle"`
	MetaDescription string        `json:"metaDescription"`
	FeaturedImage   string        `json:"featuredImage"`
	Metadata        data.Metadata `json:"metadata"`
	PublishedAt     *time.Time    `json:"publishedAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

var publicPageTypes = []string{"", data.PageTypeMarketing, data.PageTypeBlog, data.PageTypeJob}

func publicPageKey(slug string) string {
	return "public:page:" + slug
}

func publicListKey(pageType string) string {
	return "public:pages:" + pageType
}

// PublishedPage returns a published page with its description rendered from
// markdown to sanitized HTML. Drafts are reported as not found.
func (s *PageService) PublishedPage(ctx context.Context, slug string) (*PublicPage, error) {
	var cached PublicPage
	if s.cacheGet(ctx, publicPageKey(slug), &cached) {
		return &cached, nil
	}
	gen := s.cacheGeneration()

	page, err := s.store.FindPageBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "page", slug)
	}
	if !page.IsPublished {
		return nil, &NotFoundError{Resource: "page", ID: slug}
	}

	public := toPublicPage(page)
	html, err := s.RenderMarkdown(page.Description)
	if err != nil {
		return nil, err
	}
	public.DescriptionHTML = html

	s.cacheSet(ctx, gen, publicPageKey(slug), public)
	return public, nil
}

// PublishedPages lists published pages, optionally of one page type.
// An unknown page type is a ValidationError.
func (s *PageService) PublishedPages(ctx context.Context, pageType string) ([]*PublicPage, error) {
	if pageType != "" {
		normalized, err := normalizePageType(pageType)
		if err != nil {
			return nil, err
		}
		pageType = normalized
	}

	var cached []*PublicPage
	if s.cacheGet(ctx, publicListKey(pageType), &cached) {
		return cached, nil
	}
	gen := s.cacheGeneration()

	pages, err := s.store.ListPages(ctx, data.PageFilter{PageType: pageType, PublishedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list published pages: %w", err)
	}
	out := make([]*PublicPage, 0, len(pages))
	for _, p := range pages {
		out = append(out, toPublicPage(p))
	}

	s.cacheSet(ctx, gen, publicListKey(pageType), out)
	return out, nil
}

// RenderMarkdown converts markdown into HTML that is safe to embed in a page.
func (s *PageService) RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return s.sanitizer.Sanitize(buf.String()), nil
}

func toPublicPage(p *data.Page) *PublicPage {
	return &PublicPage{
		Slug:            p.Slug,
		Title:           p.Title,
		Description:     p.Description,
		PageType:        p.PageType,
		Category:        p.Category,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		FeaturedImage:   p.FeaturedImage,
		Metadata:        p.Metadata,
		PublishedAt:     p.PublishedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// cacheGet decodes a cached entry into dst. Cache failures count as misses.
func (s *PageService) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Error(err, "Failed to read from cache")
		return false
	}
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Error(err, "Failed to decode cached entry")
		return false
	}
	return true
}

// cacheGeneration returns the invalidation counter. Readers take it before
// loading from the store and hand it to cacheSet.
func (s *PageService) cacheGeneration() uint64 {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cacheGen
}

// cacheSet stores value unless an invalidation ran since gen was taken, so a
// view read before a mutation is never written back after it.
func (s *PageService) cacheSet(ctx context.Context, gen uint64, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Error(err, "Failed to encode cache entry")
		return
	}

	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	if s.cacheGen != gen {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.log.Error(err, "Failed to write to cache")
	}
}

// invalidate drops the cached public views of the given slugs and every public listing.
func (s *PageService) invalidate(ctx context.Context, slugs ...string) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cacheGen++

	keys := make([]string, 0, len(slugs)+len(publicPageTypes))
	for _, slug := range slugs {
		if slug != "" {
			keys = append(keys, publicPageKey(slug))
		}
	}
	for _, t := range publicPageTypes {
		keys = append(keys, publicListKey(t))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Error(err, "Failed to invalidate cache")
	}
}
