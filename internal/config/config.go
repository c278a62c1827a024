package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds settings for every process in the module. LoadWeb and LoadAPI
// fill the sections their process needs and leave the rest zero.
type Config struct {
	App        AppConfig
	Backend    BackendConfig
	Completion CompletionConfig
	Identity   IdentityConfig
	Redis      RedisConfig
	Database   DatabaseConfig
	Migrations MigrationsConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type CompletionConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	RoutingSort string
	Timeout     time.Duration
	RPS         float64
	SanitizeAI  bool
}

type IdentityConfig struct {
	PublicKeyPEM      string
	Issuer            string
	AuthorizedParties []string
	SessionCookie     string
	SignInURL         string
	SignUpURL         string
	AfterSignOutURL   string
	GuardEnabled      bool
	UserSyncMarkerTTL time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
}

// MigrationsConfig points at an on-disk migrations directory. When Dir is
// empty the schema embedded in the binary is used.
type MigrationsConfig struct {
	Dir string
}

const (
	DefaultCompletionBaseURL = "https://openrouter.ai/api/v1"
	DefaultCompletionModel   = "deepseek/deepseek-chat:free"
	DefaultRoutingSort       = "latency"
	DefaultSessionCookie     = "__session"
)

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	errInvalidEnv         = errors.New("invalid environment variables")
)

type envReader struct {
	missing []string
	invalid []string
}

func (e *envReader) req(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		e.missing = append(e.missing, key)
	}
	return v
}

func (e *envReader) opt(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func (e *envReader) optDefault(key, def string) string {
	if v := e.opt(key); v != "" {
		return v
	}
	return def
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := e.opt(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		e.invalid = append(e.invalid, key)
		return def
	}
	return d
}

func (e *envReader) boolean(key string, def bool) bool {
	raw := e.opt(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		e.invalid = append(e.invalid, key)
		return def
	}
	return b
}

func (e *envReader) float(key string, def float64) float64 {
	raw := e.opt(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		e.invalid = append(e.invalid, key)
		return def
	}
	return f
}

func (e *envReader) int32(key string) int32 {
	raw := e.opt(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v < 0 {
		e.invalid = append(e.invalid, key)
		return 0
	}
	return int32(v)
}

func (e *envReader) err() error {
	if len(e.missing) > 0 {
		return fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(e.missing, ", "))
	}
	if len(e.invalid) > 0 {
		return fmt.Errorf("%w: %s", errInvalidEnv, strings.Join(e.invalid, ", "))
	}
	return nil
}

func (e *envReader) app() AppConfig {
	return AppConfig{
		AppName:     e.req("APP_NAME"),
		Environment: e.req("APP_ENV"),
		HTTPPort:    e.req("HTTP_PORT"),
	}
}

func (e *envReader) redis() RedisConfig {
	return RedisConfig{
		Host:     e.optDefault("REDIS_HOST", "localhost"),
		Port:     e.optDefault("REDIS_PORT", "6379"),
		Password: e.opt("REDIS_PASSWORD"),
	}
}

// LoadWeb reads the configuration of the web frontend.
func LoadWeb() (Config, error) {
	e := &envReader{}
	cfg := Config{}

	cfg.App = e.app()

	cfg.Backend = BackendConfig{
		BaseURL: strings.TrimRight(e.req("BACKEND_BASE_URL"), "/"),
		Timeout: e.duration("BACKEND_TIMEOUT", 15*time.Second),
	}

	cfg.Completion = CompletionConfig{
		BaseURL:     strings.TrimRight(e.optDefault("COMPLETION_BASE_URL", DefaultCompletionBaseURL), "/"),
		APIKey:      e.opt("COMPLETION_API_KEY"),
		Model:       e.optDefault("COMPLETION_MODEL", DefaultCompletionModel),
		RoutingSort: e.optDefault("COMPLETION_ROUTING_SORT", DefaultRoutingSort),
		Timeout:     e.duration("COMPLETION_TIMEOUT", 60*time.Second),
		RPS:         e.float("COMPLETION_RPS", 2),
		SanitizeAI:  e.boolean("SANITIZE_AI_HTML", true),
	}

	guard := e.boolean("AUTH_GUARD_ENABLED", true)
	pem := e.opt("IDP_JWT_PUBLIC_KEY")
	if guard && pem == "" {
		e.missing = append(e.missing, "IDP_JWT_PUBLIC_KEY")
	}
	cfg.Identity = IdentityConfig{
		PublicKeyPEM:      pem,
		Issuer:            e.opt("IDP_ISSUER"),
		AuthorizedParties: splitList(e.opt("IDP_AUTHORIZED_PARTIES")),
		SessionCookie:     e.optDefault("IDP_SESSION_COOKIE", DefaultSessionCookie),
		SignInURL:         e.opt("IDP_SIGN_IN_URL"),
		SignUpURL:         e.opt("IDP_SIGN_UP_URL"),
		AfterSignOutURL:   e.optDefault("IDP_AFTER_SIGN_OUT_URL", "/"),
		GuardEnabled:      guard,
		UserSyncMarkerTTL: e.duration("USER_SYNC_TTL", 24*time.Hour),
	}

	cfg.Redis = e.redis()

	if err := e.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadAPI reads the configuration of the backend REST service.
func LoadAPI() (Config, error) {
	e := &envReader{}
	cfg := Config{}

	cfg.App = e.app()
	cfg.Database = e.database()
	cfg.Identity = IdentityConfig{
		PublicKeyPEM:      e.req("IDP_JWT_PUBLIC_KEY"),
		Issuer:            e.opt("IDP_ISSUER"),
		AuthorizedParties: splitList(e.opt("IDP_AUTHORIZED_PARTIES")),
		GuardEnabled:      true,
	}
	cfg.Migrations = MigrationsConfig{Dir: e.opt("MIGRATIONS_DIR")}

	if err := e.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadScraper reads the configuration of the ingestion CLI.
func LoadScraper() (Config, error) {
	e := &envReader{}
	cfg := Config{}

	cfg.Database = e.database()
	cfg.Migrations = MigrationsConfig{Dir: e.opt("MIGRATIONS_DIR")}

	if err := e.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (e *envReader) database() DatabaseConfig {
	return DatabaseConfig{
		DBHost:     e.req("DB_HOST"),
		DBPort:     e.req("DB_PORT"),
		DBName:     e.req("DB_NAME"),
		DBUser:     e.req("DB_USER"),
		DBPassword: e.opt("DB_PASSWORD"),
		DBSSLMode:  e.optDefault("DB_SSL_MODE", "disable"),

		ConnectTimeout:        e.duration("DB_CONNECT_TIMEOUT", 5*time.Second),
		PoolMaxConns:          e.int32("DB_POOL_MAX_CONNS"),
		PoolMinConns:          e.int32("DB_POOL_MIN_CONNS"),
		PoolMaxConnLifetime:   e.duration("DB_POOL_MAX_CONN_LIFETIME", 0),
		PoolMaxConnIdleTime:   e.duration("DB_POOL_MAX_CONN_IDLE_TIME", 0),
		PoolHealthCheckPeriod: e.duration("DB_POOL_HEALTH_CHECK_PERIOD", 0),
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
