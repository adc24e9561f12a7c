//go:build unit

package session

import (
	"go-cms-app/internal/config"
	"go-cms-app/internal/data"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
)

func TestNew_MemoryStore(t *testing.T) {
	sm := New(config.SessionConfig{Lifetime: 12}, data.DriverMemory, nil, true)

	if _, ok := sm.Store.(*memstore.MemStore); !ok {
		t.Errorf("expected memstore for the memory driver, got %T", sm.Store)
	}
	if sm.Lifetime != 12*time.Hour {
		t.Errorf("expected 12h lifetime, got %v", sm.Lifetime)
	}
	if !sm.Cookie.Secure || !sm.Cookie.HttpOnly {
		t.Error("expected a secure, http-only cookie")
	}
}

func TestNew_RoundTrip(t *testing.T) {
	sm := New(config.SessionConfig{Lifetime: 1}, data.DriverPostgres, nil, false)

	put := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.Put(r.Context(), UserSubjectKey, "oidc|alice")
	}))
	rr := httptest.NewRecorder()
	put.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "cms_session" {
		t.Fatalf("expected the session cookie, got %v", cookies)
	}

	var got string
	get := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = sm.GetString(r.Context(), UserSubjectKey)
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookies[0])
	get.ServeHTTP(httptest.NewRecorder(), req)

	if got != "oidc|alice" {
		t.Errorf("expected subject to survive the round trip, got '%s'", got)
	}
}
