package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

var ttlPattern = regexp.MustCompile(`(?i)^0*[1-9][0-9]*[dhm]$`)

type Config struct {
	AppEnv                  string
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	LogLevel                string
	LogFormat               string

	StoreDriver string
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     string
	RefreshTokenTTL    string
	JWTIssuer          string
	JWTAudience        string
	CookieDomain       string
	CookieSecure       bool

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int

	RedisURL         string
	LoginMaxAttempts int
	LoginLockout     time.Duration

	SessionCleanupSchedule string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFromName string
	PortalURL    string

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	BootstrapAdminName     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:                  strings.ToLower(getEnv("APP_ENV", "development")),
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "pretty"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		AccessTokenSecret:  strings.TrimSpace(os.Getenv("ACCESS_TOKEN_SECRET")),
		RefreshTokenSecret: strings.TrimSpace(os.Getenv("REFRESH_TOKEN_SECRET")),
		AccessTokenTTL:     getEnv("ACCESS_TOKEN_TTL", "15m"),
		RefreshTokenTTL:    getEnv("REFRESH_TOKEN_TTL", "7d"),
		JWTIssuer:          getEnv("JWT_ISSUER", "exam-portal"),
		JWTAudience:        getEnv("JWT_AUDIENCE", "exam-portal-clients"),
		CookieDomain:       strings.TrimSpace(os.Getenv("COOKIE_DOMAIN")),
		CookieSecure:       getBool("COOKIE_SECURE", false),

		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitRPM:     getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM: getInt("AUTH_RATE_LIMIT_RPM", 10),

		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		LoginMaxAttempts: getInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginLockout:     getDuration("LOGIN_LOCKOUT", 15*time.Minute),

		SessionCleanupSchedule: getEnv("SESSION_CLEANUP_SCHEDULE", "@every 24h"),

		SMTPHost:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Exam Portal"),
		PortalURL:    getEnv("PORTAL_URL", "http://localhost:3000"),

		BootstrapAdminEmail:    strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminName:     getEnv("BOOTSTRAP_ADMIN_NAME", "Super Admin"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.AccessTokenSecret) == "" {
		return fmt.Errorf("ACCESS_TOKEN_SECRET is required")
	}

	if strings.TrimSpace(c.RefreshTokenSecret) == "" {
		return fmt.Errorf("REFRESH_TOKEN_SECRET is required")
	}

	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	if !ttlPattern.MatchString(strings.TrimSpace(c.AccessTokenTTL)) {
		return fmt.Errorf("ACCESS_TOKEN_TTL %q must be a positive number of minutes, hours or days (e.g. 15m)", c.AccessTokenTTL)
	}

	if !ttlPattern.MatchString(strings.TrimSpace(c.RefreshTokenTTL)) {
		return fmt.Errorf("REFRESH_TOKEN_TTL %q must be a positive number of minutes, hours or days (e.g. 7d)", c.RefreshTokenTTL)
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreDriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	if strings.TrimSpace(c.JWTIssuer) == "" || strings.TrimSpace(c.JWTAudience) == "" {
		return fmt.Errorf("JWT_ISSUER and JWT_AUDIENCE cannot be empty")
	}

	if strings.TrimSpace(c.SessionCleanupSchedule) == "" {
		return fmt.Errorf("SESSION_CLEANUP_SCHEDULE cannot be empty")
	}

	if c.BootstrapAdminEmail != "" && len(c.BootstrapAdminPassword) < 8 {
		return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD must be at least 8 characters")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
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
