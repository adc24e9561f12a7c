package middleware

import (
	"go-cms-app/internal/logger"
	"go-cms-app/internal/session"
	"net/http"

	"github.com/casbin/casbin/v2"
)

// Authenticate loads the logged in user from the session into the request
// context and rejects anonymous requests with 401.
func Authenticate(sm session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := sm.GetString(r.Context(), session.UserSubjectKey)
			if subject == "" {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}

			userInfo := &UserInfo{
				Subject: subject,
				Name:    sm.GetString(r.Context(), session.UserNameKey),
			}
			next.ServeHTTP(w, r.WithContext(SetUserInfo(r.Context(), userInfo)))
		})
	}
}

// RequirePermission creates a middleware that lets the request through only if
// the current user may perform action on resource according to Casbin.
func RequirePermission(e casbin.IEnforcer, log logger.Logger, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserInfo(r.Context())
			if user.IsAnonymous() {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}

			allowed, err := e.Enforce(user.Subject, resource, action)
			if err != nil {
				log.Error(err, "Authorization check failed")
				WriteError(w, http.StatusInternalServerError, "internal", "Authorization error")
				return
			}
			if !allowed {
				WriteError(w, http.StatusForbidden, "forbidden", "Insufficient permissions for "+resource+":"+action)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
