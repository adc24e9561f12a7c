package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"go-cms-app/internal/auth"
	"go-cms-app/internal/data"
	"go-cms-app/internal/logger"
	"go-cms-app/internal/middleware"
	"go-cms-app/internal/service"
	"go-cms-app/internal/session"
	"io"
	"net/http"
	"time"
)

// AuditRecorder appends entries to the audit log.
type AuditRecorder interface {
	Record(ctx context.Context, actor service.Actor, action, resource, resourceID string, details data.Metadata) error
}

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	auth    *auth.Authenticator
	session session.Manager
	audit   AuditRecorder
	log     logger.Logger
}

// NewAuthHandler creates a new AuthHandler. The authenticator may be nil when
// no OIDC provider is configured; only logout is served then.
func NewAuthHandler(a *auth.Authenticator, sm session.Manager, audit AuditRecorder, log logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{auth: a, session: sm, audit: audit, log: log}
}

// handleLogin redirects the user to the OIDC provider to log in.
// It uses a random 'state' string for CSRF protection.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "unavailable", "Login is not configured")
		return
	}
	state, err := randString(16)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	// Store the state in a short-lived cookie to verify on callback.
	http.SetCookie(w, &http.Cookie{
		Name:     "state",
		Value:    state,
		Path:     "/",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
	})
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback is the redirect URL for the OIDC provider.
// It handles the code exchange and token verification, then starts a session.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "unavailable", "Login is not configured")
		return
	}
	// Verify the state parameter to prevent CSRF attacks.
	stateCookie, err := r.Cookie("state")
	if err != nil {
		http.Error(w, "state cookie not found", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		http.Error(w, "state did not match", http.StatusBadRequest)
		return
	}

	identity, err := h.auth.Identify(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.log.Error(err, "Failed to complete login")
		http.Error(w, "Failed to complete login", http.StatusUnauthorized)
		return
	}

	// Issue a fresh session token on privilege change.
	if err := h.session.RenewToken(r.Context()); err != nil {
		http.Error(w, "Failed to renew session", http.StatusInternalServerError)
		return
	}
	h.session.Put(r.Context(), session.UserSubjectKey, identity.Subject)
	h.session.Put(r.Context(), session.UserNameKey, identity.Name)
	h.record(r, identity.Subject, "login")

	// Clear the state cookie.
	http.SetCookie(w, &http.Cookie{Name: "state", Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout destroys the session and redirects to the site root.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	subject := h.session.GetString(r.Context(), session.UserSubjectKey)
	if err := h.session.Destroy(r.Context()); err != nil {
		http.Error(w, "Failed to log out", http.StatusInternalServerError)
		return
	}
	if subject != "" {
		h.record(r, subject, "logout")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) record(r *http.Request, subject, action string) {
	if h.audit == nil {
		return
	}
	actor := service.Actor{UserID: subject, IPAddress: middleware.ClientIP(r), UserAgent: r.UserAgent()}
	if err := h.audit.Record(r.Context(), actor, action, "auth", subject, nil); err != nil {
		h.log.Error(err, "Failed to record "+action)
	}
}

// randString is a helper function to generate a random string for the 'state' parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
