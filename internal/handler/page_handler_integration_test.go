//go:build integration

package handler

import (
	"bytes"
	"encoding/json"
	"go-cms-app/internal/auth"
	"go-cms-app/internal/config"
	"go-cms-app/internal/data"
	"go-cms-app/internal/logger"
	"go-cms-app/internal/middleware"
	"go-cms-app/internal/service"
	"go-cms-app/internal/session"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/casbin/casbin/v2"
	"github.com/go-chi/chi/v5"
)

type testApp struct {
	Router   *chi.Mux
	Store    *data.SQLStore
	Enforcer *casbin.Enforcer
	Session  *scs.SessionManager
}

// setupIntegrationTest initializes a full application stack on a temporary SQLite database.
func setupIntegrationTest(t *testing.T) (*testApp, func()) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "cms.db")
	db, err := data.NewDB(config.DBConfig{Driver: data.DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	if err := data.ApplyMigrations(db); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	log := logger.New(config.LogConfig{Level: "debug", Format: "console"}, nil)
	store := data.NewSQLStore(db)
	pageService := service.NewPageService(store, nil, log, service.Options{AttributionEnabled: true})
	auditService := service.NewAuditService(store, log)

	sessionManager := session.New(config.SessionConfig{Lifetime: 1}, data.DriverSQLite, db.DB, false)

	enforcer, err := auth.NewEnforcer(data.DriverSQLite, dsn+"?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("Failed to create enforcer: %v", err)
	}
	auth.SeedDefaultPolicies(enforcer, []string{"admin-user"}, log)

	limiter, err := middleware.NewRateLimiter(config.RateLimitConfig{RPS: 1000, Burst: 1000, MaxClients: 100})
	if err != nil {
		t.Fatalf("Failed to create rate limiter: %v", err)
	}

	h := Handlers{
		Pages:  NewPageHandler(pageService, log),
		Public: NewPublicHandler(pageService),
		Audit:  NewAuditHandler(auditService),
		Auth:   NewAuthHandler(nil, sessionManager, auditService, log),
		SEO:    NewSeoHandler(pageService, "http://localhost:8080"),
	}
	router := NewRouter(h, sessionManager, enforcer, limiter, log)

	app := &testApp{
		Router:   router,
		Store:    store,
		Enforcer: enforcer,
		Session:  sessionManager,
	}
	teardown := func() {
		db.Close()
	}
	return app, teardown
}

// loginAs stores subject in a fresh session and returns its cookie.
func (a *testApp) loginAs(t *testing.T, subject string) *http.Cookie {
	t.Helper()
	h := a.Session.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.Session.Put(r.Context(), session.UserSubjectKey, subject)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie issued")
	}
	return cookies[0]
}

func (a *testApp) do(t *testing.T, cookie *http.Cookie, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	return rr
}

func TestIntegration_PageLifecycle(t *testing.T) {
	app, teardown := setupIntegrationTest(t)
	defer teardown()
	admin := app.loginAs(t, "admin-user")

	rr := app.do(t, admin, "POST", "/api/admin/pages", map[string]interface{}{
		"slug":     "careers",
		"title":    "Careers",
		"pageType": "job",
		"metadata": map[string]string{"location": "remote"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: want status 201; got %d (%s)", rr.Code, rr.Body.String())
	}
	var page data.Page
	json.NewDecoder(rr.Body).Decode(&page)

	rr = app.do(t, admin, "PATCH", "/api/admin/pages/"+page.ID+"/publish", map[string]bool{"isPublished": true})
	if rr.Code != http.StatusOK {
		t.Fatalf("publish: want status 200; got %d (%s)", rr.Code, rr.Body.String())
	}

	rr = app.do(t, nil, "GET", "/api/public/pages/careers", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("public: want status 200; got %d", rr.Code)
	}
	var public service.PublicPage
	json.NewDecoder(rr.Body).Decode(&public)
	if public.Metadata["location"] != "remote" || public.PublishedAt == nil {
		t.Errorf("unexpected public page: %+v", public)
	}

	rr = app.do(t, admin, "GET", "/api/admin/audit-logs?resource=pages", nil)
	var entries []data.AuditLog
	json.NewDecoder(rr.Body).Decode(&entries)
	if len(entries) != 2 || entries[0].Action != "publish" || entries[1].Action != "create" {
		t.Errorf("unexpected audit trail: %+v", entries)
	}

	rr = app.do(t, admin, "DELETE", "/api/admin/pages/"+page.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: want status 204; got %d", rr.Code)
	}
	versions, err := app.Store.ListVersionsByPage(httptest.NewRequest("GET", "/", nil).Context(), page.ID)
	if err != nil {
		t.Fatalf("ListVersionsByPage failed: %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("expected versions to cascade on delete, got %d", len(versions))
	}
}

func TestIntegration_ConcurrentUpdatesKeepNumbersUnique(t *testing.T) {
	app, teardown := setupIntegrationTest(t)
	defer teardown()
	admin := app.loginAs(t, "admin-user")

	rr := app.do(t, admin, "POST", "/api/admin/pages", map[string]string{"slug": "busy", "title": "Busy"})
	var page data.Page
	json.NewDecoder(rr.Body).Decode(&page)

	const writers = 10
	var wg sync.WaitGroup
	codes := make(chan int, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- app.do(t, admin, "PUT", "/api/admin/pages/"+page.ID, map[string]string{"description": "edit"}).Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		if code != http.StatusOK {
			t.Errorf("concurrent update: want status 200; got %d", code)
		}
	}

	rr = app.do(t, admin, "GET", "/api/admin/pages/"+page.ID+"/versions", nil)
	var versions []data.PageVersion
	json.NewDecoder(rr.Body).Decode(&versions)
	if len(versions) != writers+1 {
		t.Fatalf("expected %d versions, got %d", writers+1, len(versions))
	}
	for i, v := range versions {
		if v.VersionNumber != writers+1-i {
			t.Errorf("position %d: expected version %d, got %d", i, writers+1-i, v.VersionNumber)
		}
	}
}

func TestIntegration_PermissionsFromDatabase(t *testing.T) {
	app, teardown := setupIntegrationTest(t)
	defer teardown()

	if _, err := app.Enforcer.AddRoleForUser("reader", auth.RoleViewer); err != nil {
		t.Fatalf("AddRoleForUser failed: %v", err)
	}
	reader := app.loginAs(t, "reader")

	if rr := app.do(t, reader, "GET", "/api/admin/pages", nil); rr.Code != http.StatusOK {
		t.Errorf("viewer list: want status 200; got %d", rr.Code)
	}
	if rr := app.do(t, reader, "POST", "/api/admin/pages", map[string]string{"slug": "x", "title": "X"}); rr.Code != http.StatusForbidden {
		t.Errorf("viewer create: want status 403; got %d", rr.Code)
	}
	if rr := app.do(t, nil, "GET", "/api/admin/pages", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: want status 401; got %d", rr.Code)
	}
}
