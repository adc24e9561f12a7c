package handler

import (
	"go-cms-app/internal/middleware"
	"go-cms-app/internal/service"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PublicHandler serves published pages to site visitors.
type PublicHandler struct {
	pageService service.PageServicer
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(ps service.PageServicer) *PublicHandler {
	return &PublicHandler{pageService: ps}
}

func (h *PublicHandler) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pages, err := h.pageService.PublishedPages(r.Context(), r.URL.Query().Get("pageType"))
	if err != nil {
		return appErrorFrom(err, "Failed to list pages")
	}
	return writeJSON(w, http.StatusOK, pages)
}

// pageHandler serves a single page. Slugs may contain slashes (e.g. "careers/designer"),
// so the route captures the rest of the path.
func (h *PublicHandler) pageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.pageService.PublishedPage(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		return appErrorFrom(err, "Failed to load page")
	}
	return writeJSON(w, http.StatusOK, page)
}
