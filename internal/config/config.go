package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionBackendMemory   = "memory"
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	AppEnv          string
	BackendURL      string
	BackendContract string
	BackendTimeout  time.Duration

	SessionBackend      string
	SessionSecret       string
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins      []string
	TrustProxy       bool
	RateLimitRPM     int
	AuthRateLimitRPM int

	MaxPhotoSize      int64
	PhotoMaxDimension int

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	appEnv := strings.ToLower(getEnv("APP_ENV", "pro"))
	backendURL := getEnv("BACKEND_URL", "")
	if appEnv == "dev" {
		backendURL = getEnv("BACKEND_URL_DEV", backendURL)
	}

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 45*time.Second),
		AppEnv:                  appEnv,
		BackendURL:              strings.TrimRight(backendURL, "/"),
		BackendContract:         strings.ToLower(getEnv("BACKEND_CONTRACT", "v2")),
		BackendTimeout:          getDuration("BACKEND_TIMEOUT", 20*time.Second),
		SessionBackend:          strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendMemory)),
		SessionSecret:           strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		SessionTTL:              getDuration("SESSION_TTL", 8*time.Hour),
		SessionCookieName:       getEnv("SESSION_COOKIE_NAME", "portal_session"),
		SessionCookieSecure:     getBool("SESSION_COOKIE_SECURE", appEnv != "dev"),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		RedisDB:                 getInt("REDIS_DB", 0),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		TrustProxy:              getBool("TRUST_PROXY", false),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 120),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 10),
		MaxPhotoSize:            getInt64("MAX_PHOTO_SIZE", 5*1024*1024),
		PhotoMaxDimension:       getInt("PHOTO_MAX_DIMENSION", 1024),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "pretty")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.BackendURL == "" {
		if c.AppEnv == "dev" {
			return fmt.Errorf("BACKEND_URL_DEV or BACKEND_URL is required")
		}
		return fmt.Errorf("BACKEND_URL is required")
	}

	if c.BackendContract != "v1" && c.BackendContract != "v2" {
		return fmt.Errorf("BACKEND_CONTRACT must be v1 or v2, got %q", c.BackendContract)
	}

	if c.RequestTimeout <= 0 || c.BackendTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT and BACKEND_TIMEOUT must be positive")
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_BACKEND=postgres")
		}
	case SessionBackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be memory, postgres or redis, got %q", c.SessionBackend)
	}

	if c.SessionBackend != SessionBackendMemory && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters for persistent session backends")
	}

	if c.MaxPhotoSize <= 0 {
		return fmt.Errorf("MAX_PHOTO_SIZE must be positive")
	}

	if c.PhotoMaxDimension < 0 {
		return fmt.Errorf("PHOTO_MAX_DIMENSION cannot be negative")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
