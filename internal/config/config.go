package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const MinSessionSecretLength = 32

// Config represents the complete configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Minio    MinioConfig    `toml:"minio"`
	Identity IdentityConfig `toml:"identity"`
	Session  SessionConfig  `toml:"session"`
	Cache    CacheConfig    `toml:"cache"`
	Timeouts TimeoutConfig  `toml:"timeouts"`
	Jobs     JobsConfig     `toml:"jobs"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Port int `toml:"port"`
	// PublicURL is the base of landing page links shown on the dashboard
	PublicURL       string        `toml:"public_url"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `toml:"url"`
	MaxConns int32  `toml:"max_conns"`
	Migrate  bool   `toml:"migrate"`
}

// RedisConfig. An empty Addr disables revocation and the shared cache level.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MinioConfig. An empty Endpoint disables archiving.
type MinioConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
	Bucket    string `toml:"bucket"`
}

type IdentityConfig struct {
	ProjectID string `toml:"project_id"`
	JWKSURL   string `toml:"jwks_url"`
	Issuer    string `toml:"issuer"`
	Audience  string `toml:"audience"`
}

type SessionConfig struct {
	Secret       string        `toml:"secret"`
	CookieName   string        `toml:"cookie_name"`
	Lifetime     time.Duration `toml:"lifetime"`
	SecureCookie bool          `toml:"secure_cookie"`
}

type CacheConfig struct {
	LocalMaxBytes int64         `toml:"local_max_bytes"`
	PublicTTL     time.Duration `toml:"public_ttl"`
}

type TimeoutConfig struct {
	Store  time.Duration `toml:"store"`
	Issuer time.Duration `toml:"issuer"`
}

type JobsConfig struct {
	ReconcileInterval time.Duration `toml:"reconcile_interval"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, ShutdownTimeout: 10 * time.Second},
		Database: DatabaseConfig{MaxConns: 10, Migrate: true},
		Minio:    MinioConfig{Bucket: "tenant-archive"},
		Session: SessionConfig{
			CookieName:   "consultapp_session",
			Lifetime:     7 * 24 * time.Hour,
			SecureCookie: true,
		},
		Cache:    CacheConfig{LocalMaxBytes: 16 << 20, PublicTTL: 30 * time.Second},
		Timeouts: TimeoutConfig{Store: 5 * time.Second, Issuer: 5 * time.Second},
		Jobs:     JobsConfig{ReconcileInterval: 10 * time.Minute},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}

// Load applies defaults, then the TOML file at path (if non-empty), then
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	num("PORT", &c.Server.Port)
	str("PUBLIC_URL", &c.Server.PublicURL)
	str("DATABASE_URL", &c.Database.URL)
	flag("DATABASE_MIGRATE", &c.Database.Migrate)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	num("REDIS_DB", &c.Redis.DB)
	str("MINIO_ENDPOINT", &c.Minio.Endpoint)
	str("MINIO_ACCESS_KEY", &c.Minio.AccessKey)
	str("MINIO_SECRET_KEY", &c.Minio.SecretKey)
	flag("MINIO_USE_SSL", &c.Minio.UseSSL)
	str("MINIO_BUCKET", &c.Minio.Bucket)
	str("IDENTITY_PROJECT_ID", &c.Identity.ProjectID)
	str("IDENTITY_JWKS_URL", &c.Identity.JWKSURL)
	str("SESSION_SECRET", &c.Session.Secret)
	dur("SESSION_LIFETIME", &c.Session.Lifetime)
	flag("SESSION_SECURE_COOKIE", &c.Session.SecureCookie)
	dur("RECONCILE_INTERVAL", &c.Jobs.ReconcileInterval)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	if len(c.Session.Secret) < MinSessionSecretLength {
		errs = append(errs, fmt.Errorf("session.secret must be at least %d bytes", MinSessionSecretLength))
	}
	if c.Identity.ProjectID == "" {
		errs = append(errs, errors.New("identity.project_id is required"))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session.cookie_name is required"))
	}
	if c.Session.Lifetime <= 0 {
		errs = append(errs, errors.New("session.lifetime must be positive"))
	}
	if c.Jobs.ReconcileInterval < 0 {
		errs = append(errs, errors.New("jobs.reconcile_interval must not be negative"))
	}
	return errors.Join(errs...)
}
