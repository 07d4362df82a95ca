package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32

	// ApplicationName tags the service's sessions in pg_stat_activity.
	ApplicationName string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	TimeoutMillis int
	// KeyPrefix namespaces every key the service writes.
	KeyPrefix     string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines how callers are authenticated.
type AuthConfig struct {
	// Audience is the client identifier every id token must be issued for.
	Audience                string
	JWKSURL                 string
	JWKSCacheTTLSeconds     int
	JWKSFetchTimeoutSeconds int
	// UseRedisKeyCache shares the fetched key set across replicas.
	UseRedisKeyCache bool
	MachineHeader    string
	MachineSecret    string
	SystemIdentity   string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "trading-journal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			ApplicationName: getEnv("APP_NAME", "trading-journal"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:   getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			KeyPrefix:     getEnv("REDIS_KEY_PREFIX", "trading-journal"),
			TimeoutMillis: getEnvAsInt("REDIS_TIMEOUT_MS", 500),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			Audience:                os.Getenv("AUTH_AUDIENCE"),
			JWKSURL:                 getEnv("AUTH_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
			JWKSCacheTTLSeconds:     getEnvAsInt("AUTH_JWKS_CACHE_TTL_SECONDS", 300),
			JWKSFetchTimeoutSeconds: getEnvAsInt("AUTH_JWKS_FETCH_TIMEOUT_SECONDS", 5),
			UseRedisKeyCache:        getEnvAsBool("AUTH_JWKS_REDIS_CACHE", false),
			MachineHeader:           getEnv("AUTH_MACHINE_HEADER", "X-Machine-Secret"),
			MachineSecret:           os.Getenv("AUTH_MACHINE_SECRET"),
			SystemIdentity:          getEnv("AUTH_SYSTEM_IDENTITY", "system"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that would leave the service unable to authenticate anyone.
func (c *Config) Validate() error {
	if c.Auth.Audience == "" {
		return errors.New("AUTH_AUDIENCE is required")
	}
	if c.Auth.JWKSURL == "" {
		return errors.New("AUTH_JWKS_URL is required")
	}
	if c.Auth.MachineHeader == "" {
		return errors.New("AUTH_MACHINE_HEADER must not be empty")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout bounds dialing and each command round trip.
func (r RedisConfig) Timeout() time.Duration {
	if r.TimeoutMillis <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(r.TimeoutMillis) * time.Millisecond
}

// KeyCacheTTL returns how long a fetched key set may be reused.
func (a AuthConfig) KeyCacheTTL() time.Duration {
	if a.JWKSCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(a.JWKSCacheTTLSeconds) * time.Second
}

// KeyFetchTimeout bounds a single key set fetch.
func (a AuthConfig) KeyFetchTimeout() time.Duration {
	if a.JWKSFetchTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(a.JWKSFetchTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
