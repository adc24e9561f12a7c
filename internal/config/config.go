package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	DB         DBConfig         `mapstructure:"db"`
	OIDC       OIDCConfig       `mapstructure:"oidc"`
	Session    SessionConfig    `mapstructure:"session"`
	Log        LogConfig        `mapstructure:"log"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Versioning VersioningConfig `mapstructure:"versioning"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port    string    `mapstructure:"port"`
	BaseURL string    `mapstructure:"base_url"` // public site root, used by the sitemap
	TLS     TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds database-specific configuration.
type DBConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite3", "mysql", "postgres" or "memory"
	DSN    string `mapstructure:"dsn"`
}

// OIDCConfig holds OIDC client configuration.
type OIDCConfig struct {
	IssuerURL    string `mapstructure:"issuer_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// SessionConfig holds session cookie configuration.
type SessionConfig struct {
	Lifetime int `mapstructure:"lifetime"` // hours
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// CacheConfig holds configuration for the public page cache.
type CacheConfig struct {
	Driver        string `mapstructure:"driver"` // "sqlite" or "redis"
	FilePath      string `mapstructure:"file_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	TTL           int    `mapstructure:"ttl"` // seconds
}

// AuthConfig holds authorization bootstrap settings.
type AuthConfig struct {
	// Admins lists OIDC subjects that are granted the admin role on startup.
	Admins []string `mapstructure:"admins"`
}

// VersioningConfig controls page history behaviour.
type VersioningConfig struct {
	// AttributionEnabled records the acting user on page rows and versions.
	AttributionEnabled bool `mapstructure:"attribution_enabled"`
}

// RateLimitConfig bounds request rates per client address.
type RateLimitConfig struct {
	RPS        float64 `mapstructure:"rps"`
	Burst      int     `mapstructure:"burst"`
	MaxClients int     `mapstructure:"max_clients"`
}

// AuditConfig holds audit log retention settings.
type AuditConfig struct {
	RetentionDays int    `mapstructure:"retention_days"` // 0 keeps entries forever
	PruneSchedule string `mapstructure:"prune_schedule"` // cron spec
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()

	// Set default values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "cms.db")
	v.SetDefault("oidc.issuer_url", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("oidc.client_secret", "")
	v.SetDefault("oidc.redirect_url", "")
	v.SetDefault("session.lifetime", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.file_path", "cache.db")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", 300)
	v.SetDefault("auth.admins", []string{})
	v.SetDefault("versioning.attribution_enabled", true)
	v.SetDefault("ratelimit.rps", 5.0)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ratelimit.max_clients", 10000)
	v.SetDefault("audit.retention_days", 0)
	v.SetDefault("audit.prune_schedule", "@daily")

	// Set up viper to read from config file
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/go-cms-app/")
	v.AddConfigPath("$HOME/.go-cms-app")

	// Attempt to read the config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return nil, err
		}
		// Config file not found; proceed with defaults and env vars
	}

	// Set up viper to read from environment variables
	v.SetEnvPrefix("CMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal the config into the Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
