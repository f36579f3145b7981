package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var defaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:3000",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:3000",
}

type Config struct {
	ListenAddr  string
	APIBasePath string
	AppEnv      string
	LogLevel    string

	DBDriver          string
	DBPath            string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	MigrationsDir     string

	SessionCookieName   string
	SessionSecret       string
	SessionIdleMinutes  int
	SessionAbsoluteHour int
	CookieSecure        bool
	TrustProxy          bool
	CORSAllowedOrigins  []string
	RateLimitBackend    string

	IssueStatuses       []string
	IssueResolvedStatus string
	IssueCategories     []string

	OTPTTLMinutes     int
	OTPMaxAttempts    int
	PasswordMinLength int
	PasswordMaxLength int

	UploadDir     string
	PublicBaseURL string

	DispatchWorkers   int
	DispatchQueueSize int

	SentryDSN string

	HTTPReadTimeoutSec       int
	HTTPReadHeaderTimeoutSec int
	HTTPWriteTimeoutSec      int
	HTTPIdleTimeoutSec       int

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// Load reads the process environment, after merging an optional .env file
// from the working directory. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		ListenAddr:               env("LISTEN_ADDR", ":8080"),
		APIBasePath:              env("API_BASE_PATH", "/api"),
		AppEnv:                   env("APP_ENV", "development"),
		LogLevel:                 strings.ToLower(env("LOG_LEVEL", "info")),
		DBDriver:                 strings.ToLower(env("DB_DRIVER", "sqlite")),
		DBPath:                   env("APP_DB_PATH", "./data/civic.db"),
		DBDSN:                    env("DB_DSN", ""),
		DBMaxOpenConns:           envInt("APP_DB_MAX_OPEN_CONNS", 4),
		DBMaxIdleConns:           envInt("APP_DB_MAX_IDLE_CONNS", 2),
		DBConnMaxLifetime:        time.Duration(envInt("APP_DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		MigrationsDir:            env("MIGRATIONS_DIR", "migrations"),
		SessionCookieName:        env("SESSION_COOKIE_NAME", "civic_session"),
		SessionSecret:            env("SESSION_SECRET", ""),
		SessionIdleMinutes:       envInt("SESSION_IDLE_MINUTES", 120),
		SessionAbsoluteHour:      envInt("SESSION_ABSOLUTE_HOURS", 24),
		CookieSecure:             envBool("COOKIE_SECURE", false),
		TrustProxy:               envBool("TRUST_PROXY", false),
		CORSAllowedOrigins:       envCSV("CORS_ALLOWED_ORIGINS"),
		RateLimitBackend:         strings.ToLower(env("RATE_LIMIT_BACKEND", "memory")),
		IssueStatuses:            envCSV("ISSUE_STATUSES"),
		IssueResolvedStatus:      env("ISSUE_RESOLVED_STATUS", "resolved"),
		IssueCategories:          envCSV("ISSUE_CATEGORIES"),
		OTPTTLMinutes:            envInt("OTP_TTL_MINUTES", 10),
		OTPMaxAttempts:           envInt("OTP_MAX_ATTEMPTS", 5),
		PasswordMinLength:        envInt("PASSWORD_MIN_LENGTH", 8),
		PasswordMaxLength:        envInt("PASSWORD_MAX_LENGTH", 128),
		UploadDir:                env("UPLOAD_DIR", "./uploads"),
		PublicBaseURL:            strings.TrimRight(env("PUBLIC_BASE_URL", ""), "/"),
		DispatchWorkers:          envInt("DISPATCH_WORKERS", 2),
		DispatchQueueSize:        envInt("DISPATCH_QUEUE_SIZE", 1024),
		SentryDSN:                env("SENTRY_DSN", ""),
		HTTPReadTimeoutSec:       envInt("HTTP_READ_TIMEOUT_SEC", 10),
		HTTPReadHeaderTimeoutSec: envInt("HTTP_READ_HEADER_TIMEOUT_SEC", 5),
		HTTPWriteTimeoutSec:      envInt("HTTP_WRITE_TIMEOUT_SEC", 30),
		HTTPIdleTimeoutSec:       envInt("HTTP_IDLE_TIMEOUT_SEC", 60),
		BootstrapAdminEmail:      env("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword:   env("BOOTSTRAP_ADMIN_PASSWORD", ""),
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills list-valued settings that were left empty. Tests that
// build a Config literal call it too.
func (c *Config) ApplyDefaults() {
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = append([]string(nil), defaultCORSOrigins...)
	}
	if len(c.IssueStatuses) == 0 {
		c.IssueStatuses = []string{"open", "in_progress", "resolved", "closed"}
	}
	if len(c.IssueCategories) == 0 {
		c.IssueCategories = []string{
			"pothole", "trash", "streetlight", "graffiti", "water_leak", "tree_damage",
			"sidewalk", "roads", "lighting", "water", "sanitation", "parks", "other",
		}
	}
	if c.APIBasePath == "" {
		c.APIBasePath = "/api"
	}
	c.APIBasePath = "/" + strings.Trim(c.APIBasePath, "/")
	if c.OTPTTLMinutes == 0 {
		c.OTPTTLMinutes = 10
	}
	if c.OTPMaxAttempts == 0 {
		c.OTPMaxAttempts = 5
	}
	if c.PasswordMinLength == 0 {
		c.PasswordMinLength = 8
	}
	if c.PasswordMaxLength == 0 {
		c.PasswordMaxLength = 128
	}
	if c.IssueResolvedStatus == "" {
		c.IssueResolvedStatus = "resolved"
	}
}

func (c Config) Validate() error {
	if c.SessionIdleMinutes <= 0 || c.SessionAbsoluteHour <= 0 {
		return fmt.Errorf("session timeouts must be positive")
	}
	if c.DBMaxOpenConns <= 0 || c.DBMaxIdleConns < 0 {
		return fmt.Errorf("invalid DB pool config")
	}
	switch c.DBDriver {
	case "sqlite":
	case "postgres", "mysql":
		if strings.TrimSpace(c.DBDSN) == "" {
			return fmt.Errorf("DB_DSN is required when DB_DRIVER=%s", c.DBDriver)
		}
	default:
		return fmt.Errorf("DB_DRIVER must be one of: sqlite, postgres, mysql")
	}
	switch c.RateLimitBackend {
	case "memory", "db":
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be one of: memory, db")
	}
	if len(strings.TrimSpace(c.SessionSecret)) < 32 {
		return fmt.Errorf("SESSION_SECRET must be set to a strong value (>=32 chars)")
	}
	if c.PasswordMinLength < 8 {
		return fmt.Errorf("password min length must be >= 8")
	}
	if c.PasswordMaxLength < c.PasswordMinLength {
		return fmt.Errorf("password max length must be >= min length")
	}
	if c.OTPTTLMinutes <= 0 || c.OTPMaxAttempts <= 0 {
		return fmt.Errorf("OTP ttl and max attempts must be positive")
	}
	if !contains(c.IssueStatuses, c.IssueResolvedStatus) {
		return fmt.Errorf("ISSUE_RESOLVED_STATUS %q is not one of ISSUE_STATUSES", c.IssueResolvedStatus)
	}
	if c.DispatchWorkers <= 0 || c.DispatchQueueSize <= 0 {
		return fmt.Errorf("dispatch workers and queue size must be positive")
	}
	if !c.CookieSecure && !isLocalListen(c.ListenAddr) {
		return fmt.Errorf("COOKIE_SECURE=false is allowed only for local listen addresses")
	}
	return nil
}

// InitialIssueStatus is the status every new issue starts in.
func (c Config) InitialIssueStatus() string {
	return c.IssueStatuses[0]
}

func (c Config) SessionIdleDuration() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

func (c Config) SessionAbsoluteDuration() time.Duration {
	return time.Duration(c.SessionAbsoluteHour) * time.Hour
}

func (c Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPTTLMinutes) * time.Minute
}

func env(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envCSV(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func isLocalListen(addr string) bool {
	a := strings.ToLower(strings.TrimSpace(addr))
	return strings.Contains(a, "127.0.0.1") || strings.Contains(a, "localhost") || strings.Contains(a, "[::1]") || strings.HasPrefix(a, ":")
}
