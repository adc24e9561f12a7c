package handler

import (
	"context"
	"encoding/xml"
	"go-cms-app/internal/middleware"
	"go-cms-app/internal/service"
	"net/http"
	"strings"
	"text/template"
)

const (
	sitemapNamespace  = "http://www.sitemaps.org/schemas/sitemap/0.9"
	sitemapDateFormat = "2006-01-02"
)

// Crawlers are kept out of the admin API and the login flow.
var robotsTemplate = template.Must(template.New("robots").Parse(`User-agent: *
Allow: /
Disallow: /api/admin/
Disallow: /auth/

Sitemap: {{.}}/sitemap.xml
`))

// publishedLister is the part of the page service the SEO routes read from.
type publishedLister interface {
	PublishedPages(ctx context.Context, pageType string) ([]*service.PublicPage, error)
}

// SeoHandler serves robots.txt and the sitemap of published pages.
type SeoHandler struct {
	pages   publishedLister
	baseURL string
}

// NewSeoHandler creates a new SeoHandler. baseURL is the public site root.
func NewSeoHandler(pages publishedLister, baseURL string) *SeoHandler {
	return &SeoHandler{pages: pages, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *SeoHandler) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	robotsTemplate.Execute(w, h.baseURL)
}

type sitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type sitemapDocument struct {
	XMLName xml.Name       `xml:"urlset"`
	Xmlns   string         `xml:"xmlns,attr"`
	URLs    []sitemapEntry `xml:"url"`
}

func (h *SeoHandler) sitemapHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pages, err := h.pages.PublishedPages(r.Context(), "")
	if err != nil {
		return appErrorFrom(err, "Failed to build sitemap")
	}

	doc := sitemapDocument{Xmlns: sitemapNamespace, URLs: make([]sitemapEntry, 0, len(pages))}
	for _, p := range pages {
		doc.URLs = append(doc.URLs, sitemapEntry{
			Loc:     h.baseURL + "/" + strings.TrimLeft(p.Slug, "/"),
			LastMod: p.UpdatedAt.UTC().Format(sitemapDateFormat),
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to encode sitemap", Code: http.StatusInternalServerError}
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write([]byte(xml.Header))
	w.Write(out)
	return nil
}
