package data

import (
	"embed"
	"errors"
	"fmt"
	"go-cms-app/internal/config"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations
var migrationsFS embed.FS

// NewDB creates a new database connection pool for one of the SQL drivers.
func NewDB(cfg config.DBConfig) (*sqlx.DB, error) {
	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverMySQL:
		// Timestamps must come back as time.Time and migration files hold several statements.
		mc, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
		}
		mc.ParseTime = true
		mc.MultiStatements = true
		dsn = mc.FormatDSN()
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	// sqlx.Connect opens a connection and pings it to verify it's alive.
	db, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer; one connection keeps in-memory databases shared too.
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// sqliteDSN makes sure foreign keys are enforced on every connection so page
// deletes cascade to their versions.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// ApplyMigrations runs all up migrations embedded for the connection's driver.
func ApplyMigrations(db *sqlx.DB) error {
	driverName := db.DriverName()

	source, err := iofs.New(migrationsFS, "migrations/"+driverName)
	if err != nil {
		return fmt.Errorf("failed to open migrations for %s: %w", driverName, err)
	}

	var instance database.Driver
	switch driverName {
	case DriverSQLite:
		instance, err = migratesqlite3.WithInstance(db.DB, &migratesqlite3.Config{})
	case DriverMySQL:
		instance, err = migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	case DriverPostgres:
		instance, err = migratepostgres.WithInstance(db.DB, &migratepostgres.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", driverName)
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, instance)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Up applies all available up migrations.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
