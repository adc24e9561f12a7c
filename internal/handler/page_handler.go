package handler

import (
	"go-cms-app/internal/data"
	"go-cms-app/internal/logger"
	"go-cms-app/internal/middleware"
	"go-cms-app/internal/service"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PageHandler holds the dependencies for the admin page handlers.
type PageHandler struct {
	pageService service.PageServicer
	log         logger.Logger
}

// NewPageHandler creates a new PageHandler with the given dependencies.
func NewPageHandler(ps service.PageServicer, log logger.Logger) *PageHandler {
	return &PageHandler{
		pageService: ps,
		log:         log,
	}
}

// listHandler returns all pages, optionally filtered by ?pageType= and ?published=true.
func (h *PageHandler) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	filter := data.PageFilter{
		PageType:      r.URL.Query().Get("pageType"),
		PublishedOnly: r.URL.Query().Get("published") == "true",
	}
	pages, err := h.pageService.ListPages(r.Context(), filter)
	if err != nil {
		return appErrorFrom(err, "Failed to list pages")
	}
	return writeJSON(w, http.StatusOK, pages)
}

func (h *PageHandler) createHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var in service.CreatePageInput
	if appErr := decodeJSON(w, r, &in); appErr != nil {
		return appErr
	}
	page, err := h.pageService.CreatePage(r.Context(), in, actorFrom(r))
	if err != nil {
		return appErrorFrom(err, "Failed to create page")
	}
	return writeJSON(w, http.StatusCreated, page)
}

func (h *PageHandler) getHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.pageService.GetPage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return appErrorFrom(err, "Failed to load page")
	}
	return writeJSON(w, http.StatusOK, page)
}

func (h *PageHandler) updateHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var upd service.PageUpdate
	if appErr := decodeJSON(w, r, &upd); appErr != nil {
		return appErr
	}
	page, err := h.pageService.UpdatePage(r.Context(), chi.URLParam(r, "id"), upd, actorFrom(r))
	if err != nil {
		return appErrorFrom(err, "Failed to update page")
	}
	return writeJSON(w, http.StatusOK, page)
}

func (h *PageHandler) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.pageService.DeletePage(r.Context(), chi.URLParam(r, "id"), actorFrom(r)); err != nil {
		return appErrorFrom(err, "Failed to delete page")
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// publishHandler expects {"isPublished": true|false}.
func (h *PageHandler) publishHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var body struct {
		IsPublished *bool `json:"isPublished"`
	}
	if appErr := decodeJSON(w, r, &body); appErr != nil {
		return appErr
	}
	if body.IsPublished == nil {
		return appErrorFrom(&service.ValidationError{Field: "isPublished", Message: "is required"}, "")
	}
	page, err := h.pageService.PublishPage(r.Context(), chi.URLParam(r, "id"), *body.IsPublished, actorFrom(r))
	if err != nil {
		return appErrorFrom(err, "Failed to change publish state")
	}
	return writeJSON(w, http.StatusOK, page)
}

func (h *PageHandler) versionsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	if _, err := h.pageService.GetPage(r.Context(), id); err != nil {
		return appErrorFrom(err, "Failed to load page")
	}
	versions, err := h.pageService.GetPageVersions(r.Context(), id)
	if err != nil {
		return appErrorFrom(err, "Failed to list versions")
	}
	return writeJSON(w, http.StatusOK, versions)
}

func (h *PageHandler) versionHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, versionID := chi.URLParam(r, "id"), chi.URLParam(r, "versionID")
	version, err := h.pageService.GetPageVersionByID(r.Context(), versionID)
	if err != nil {
		return appErrorFrom(err, "Failed to load version")
	}
	if version == nil || version.PageID != id {
		return appErrorFrom(&service.NotFoundError{Resource: "page version", ID: versionID}, "")
	}
	return writeJSON(w, http.StatusOK, version)
}

func (h *PageHandler) restoreHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.pageService.RestoreVersion(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "versionID"), actorFrom(r))
	if err != nil {
		return appErrorFrom(err, "Failed to restore version")
	}
	return writeJSON(w, http.StatusOK, page)
}

// compareHandler expects ?version1=<id>&version2=<id>.
func (h *PageHandler) compareHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	v1, v2 := r.URL.Query().Get("version1"), r.URL.Query().Get("version2")
	if v1 == "" || v2 == "" {
		return appErrorFrom(&service.ValidationError{Field: "version1/version2", Message: "both version ids are required"}, "")
	}
	cmp, err := h.pageService.CompareVersions(r.Context(), v1, v2)
	if err != nil {
		return appErrorFrom(err, "Failed to compare versions")
	}
	return writeJSON(w, http.StatusOK, cmp)
}
