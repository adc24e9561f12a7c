package session

import (
	"context"
	"database/sql"
	"go-cms-app/internal/config"
	"go-cms-app/internal/data"
	"net/http"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
)

// Keys stored in the session.
const (
	UserSubjectKey = "user_subject"
	UserNameKey    = "user_name"
)

// Manager is an interface that abstracts the session management implementation.
// This allows for easier testing and dependency injection.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetString(ctx context.Context, key string) string
	PopString(ctx context.Context, key string) string
	RenewToken(ctx context.Context) error
	Destroy(ctx context.Context) error
	Remove(ctx context.Context, key string)
}

var _ Manager = (*scs.SessionManager)(nil)

// New creates a session manager whose store matches the database driver.
// Drivers without a session table fall back to process memory.
func New(cfg config.SessionConfig, driver string, db *sql.DB, secure bool) *scs.SessionManager {
	sm := scs.New()
	switch driver {
	case data.DriverSQLite:
		sm.Store = sqlite3store.New(db)
	case data.DriverMySQL:
		sm.Store = mysqlstore.New(db)
	default:
		sm.Store = memstore.New()
	}
	sm.Lifetime = time.Duration(cfg.Lifetime) * time.Hour
	sm.Cookie.Name = "cms_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Persist = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = secure
	return sm
}
