package handler

import (
	"go-cms-app/internal/auth"
	"go-cms-app/internal/logger"
	"go-cms-app/internal/middleware"
	"go-cms-app/internal/session"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Pages  *PageHandler
	Public *PublicHandler
	Audit  *AuditHandler
	Auth   *AuthHandler
	SEO    *SeoHandler
}

// NewRouter creates and configures a new chi router.
// A nil limiter disables rate limiting.
func NewRouter(h Handlers, sm session.Manager, enforcer casbin.IEnforcer, limiter *middleware.RateLimiter, log logger.Logger) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(sm.LoadAndSave)

	errs := middleware.Error(log)
	limit := func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return limiter.Middleware(next)
	}
	can := func(resource, action string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(enforcer, log, resource, action)
	}

	// SEO routes
	r.Get("/robots.txt", h.SEO.robotsHandler)
	r.Method(http.MethodGet, "/sitemap.xml", errs(h.SEO.sitemapHandler))

	// Authentication routes
	r.Route("/auth", func(r chi.Router) {
		r.Use(limit)
		r.Get("/login", h.Auth.handleLogin)
		r.Get("/callback", h.Auth.handleCallback)
		r.Get("/logout", h.Auth.handleLogout)
	})

	// Public content
	r.Route("/api/public", func(r chi.Router) {
		r.Method(http.MethodGet, "/pages", errs(h.Public.listHandler))
		r.Method(http.MethodGet, "/pages/*", errs(h.Public.pageHandler))
	})

	// Protected routes
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(sm))

		r.Route("/pages", func(r chi.Router) {
			r.With(can(auth.ResourcePages, auth.ActionRead)).Method(http.MethodGet, "/", errs(h.Pages.listHandler))
			r.With(limit, can(auth.ResourcePages, auth.ActionCreate)).Method(http.MethodPost, "/", errs(h.Pages.createHandler))
			r.With(can(auth.ResourcePages, auth.ActionRead)).Method(http.MethodGet, "/versions/compare", errs(h.Pages.compareHandler))

			r.Route("/{id}", func(r chi.Router) {
				r.With(can(auth.ResourcePages, auth.ActionRead)).Method(http.MethodGet, "/", errs(h.Pages.getHandler))
				r.With(limit, can(auth.ResourcePages, auth.ActionUpdate)).Method(http.MethodPut, "/", errs(h.Pages.updateHandler))
				r.With(limit, can(auth.ResourcePages, auth.ActionDelete)).Method(http.MethodDelete, "/", errs(h.Pages.deleteHandler))
				r.With(limit, can(auth.ResourcePages, auth.ActionPublish)).Method(http.MethodPatch, "/publish", errs(h.Pages.publishHandler))
				r.With(can(auth.ResourcePages, auth.ActionRead)).Method(http.MethodGet, "/versions", errs(h.Pages.versionsHandler))
				r.With(can(auth.ResourcePages, auth.ActionRead)).Method(http.MethodGet, "/versions/{versionID}", errs(h.Pages.versionHandler))
				r.With(limit, can(auth.ResourcePages, auth.ActionUpdate)).Method(http.MethodPost, "/versions/{versionID}/restore", errs(h.Pages.restoreHandler))
			})
		})

		r.With(can(auth.ResourceAudit, auth.ActionRead)).Method(http.MethodGet, "/audit-logs", errs(h.Audit.listHandler))
	})

	return r
}
