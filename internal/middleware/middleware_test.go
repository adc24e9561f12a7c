//go:build unit

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"go-cms-app/internal/auth"
	"go-cms-app/internal/config"
	"go-cms-app/internal/logger"
	"go-cms-app/internal/session"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubSession is a session.Manager that serves fixed values.
type stubSession struct {
	values map[string]string
}

var _ session.Manager = (*stubSession)(nil)

func (s *stubSession) LoadAndSave(next http.Handler) http.Handler { return next }
func (s *stubSession) Put(ctx context.Context, key string, val interface{}) {}
func (s *stubSession) GetString(ctx context.Context, key string) string { return s.values[key] }
func (s *stubSession) PopString(ctx context.Context, key string) string { return s.values[key] }
func (s *stubSession) RenewToken(ctx context.Context) error             { return nil }
func (s *stubSession) Destroy(ctx context.Context) error                { return nil }
func (s *stubSession) Remove(ctx context.Context, key string)           {}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthenticateAndAuthorize(t *testing.T) {
	e, err := auth.NewMemoryEnforcer()
	if err != nil {
		t.Fatalf("NewMemoryEnforcer failed: %v", err)
	}
	auth.SeedDefaultPolicies(e, []string{"root"}, logger.Nop())
	if _, err := e.AddRoleForUser("reader", auth.RoleViewer); err != nil {
		t.Fatalf("AddRoleForUser failed: %v", err)
	}

	testCases := []struct {
		name     string
		subject  string
		action   string
		wantCode int
		wantKind string
	}{
		{"anonymous", "", auth.ActionRead, http.StatusUnauthorized, "unauthorized"},
		{"viewer reads", "reader", auth.ActionRead, http.StatusOK, ""},
		{"viewer cannot delete", "reader", auth.ActionDelete, http.StatusForbidden, "forbidden"},
		{"admin deletes", "root", auth.ActionDelete, http.StatusOK, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sm := &stubSession{values: map[string]string{session.UserSubjectKey: tc.subject}}
			h := Authenticate(sm)(RequirePermission(e, logger.Nop(), auth.ResourcePages, tc.action)(http.HandlerFunc(okHandler)))

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/admin/pages", nil))

			if rr.Code != tc.wantCode {
				t.Fatalf("want status %d; got %d", tc.wantCode, rr.Code)
			}
			if tc.wantKind != "" {
				if body := decodeError(t, rr); body.Error != tc.wantKind || body.Status != tc.wantCode {
					t.Errorf("unexpected error body: %+v", body)
				}
			}
		})
	}
}

func TestAuthenticate_SetsUserInfo(t *testing.T) {
	sm := &stubSession{values: map[string]string{
		session.UserSubjectKey: "oidc|42",
		session.UserNameKey:    "Ada",
	}}
	var got *UserInfo
	h := Authenticate(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUserInfo(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if got == nil || got.Subject != "oidc|42" || got.Name != "Ada" {
		t.Errorf("unexpected user info: %+v", got)
	}
}

func TestErrorMiddleware(t *testing.T) {
	mw := Error(logger.Nop())

	t.Run("app error", func(t *testing.T) {
		h := mw(func(w http.ResponseWriter, r *http.Request) *AppError {
			return &AppError{Error: errors.New("missing"), Message: "page not found", Code: http.StatusNotFound, Kind: "not_found"}
		})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		if rr.Code != http.StatusNotFound {
			t.Fatalf("want status 404; got %d", rr.Code)
		}
		body := decodeError(t, rr)
		if body.Error != "not_found" || body.Message != "page not found" || body.Status != 404 {
			t.Errorf("unexpected body: %+v", body)
		}
	})

	t.Run("panic", func(t *testing.T) {
		h := mw(func(w http.ResponseWriter, r *http.Request) *AppError {
			panic("boom")
		})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("want status 500; got %d", rr.Code)
		}
		if body := decodeError(t, rr); body.Error != "internal" {
			t.Errorf("unexpected body: %+v", body)
		}
	})

	t.Run("success", func(t *testing.T) {
		h := mw(func(w http.ResponseWriter, r *http.Request) *AppError {
			w.WriteHeader(http.StatusNoContent)
			return nil
		})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
		if rr.Code != http.StatusNoContent {
			t.Errorf("want status 204; got %d", rr.Code)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	rl, err := NewRateLimiter(config.RateLimitConfig{RPS: 0.001, Burst: 2, MaxClients: 2})
	if err != nil {
		t.Fatalf("NewRateLimiter failed: %v", err)
	}
	h := rl.Middleware(http.HandlerFunc(okHandler))

	send := func(addr string) int {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("192.0.2.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: want 200; got %d", i, code)
		}
	}
	if code := send("192.0.2.1:5678"); code != http.StatusTooManyRequests {
		t.Errorf("want 429 once the burst is spent; got %d", code)
	}
	if code := send("192.0.2.2:1234"); code != http.StatusOK {
		t.Errorf("other clients must not be limited; got %d", code)
	}

	send("192.0.2.3:1234")
	if n := rl.Tracked(); n != 2 {
		t.Errorf("expected the client table to stay bounded at 2, got %d", n)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.9:443"
	if ip := ClientIP(req); ip != "203.0.113.9" {
		t.Errorf("expected address without port, got '%s'", ip)
	}
	req.RemoteAddr = "203.0.113.10"
	if ip := ClientIP(req); ip != "203.0.113.10" {
		t.Errorf("expected bare address to pass through, got '%s'", ip)
	}
}
