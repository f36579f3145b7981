package config

import (
	"testing"
)

const testSecret = "this_is_a_valid_long_session_secret_0123456789"

func TestLoadRejectsMissingSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := Load()
	if err == nil {
		t.Fatalf("expected Load to fail without a session secret")
	}
}

func TestLoadPasswordBounds(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("PASSWORD_MIN_LENGTH", "16")
	t.Setenv("PASSWORD_MAX_LENGTH", "12")
	_, err := Load()
	if err == nil {
		t.Fatalf("expected Load to fail for invalid password bounds")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("DB_DRIVER", "oracle")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail for unsupported DB_DRIVER")
	}
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail for postgres without DB_DSN")
	}
}

func TestLoadDefaultsStatusEnum(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.InitialIssueStatus(); got != "open" {
		t.Fatalf("expected initial status open, got %q", got)
	}
	if cfg.APIBasePath != "/api" {
		t.Fatalf("expected default base path /api, got %q", cfg.APIBasePath)
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		t.Fatalf("expected default CORS origins")
	}
}

func TestLoadCustomStatusEnum(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("ISSUE_STATUSES", "pending_review, in_progress, resolved")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.InitialIssueStatus(); got != "pending_review" {
		t.Fatalf("expected initial status pending_review, got %q", got)
	}

	t.Setenv("ISSUE_RESOLVED_STATUS", "done")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail when resolved status is not in the enum")
	}
}

func TestLoadRejectsInsecureCookieOnPublicListen(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("LISTEN_ADDR", "0.0.0.0:8080")
	t.Setenv("COOKIE_SECURE", "false")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail for insecure cookies on a public address")
	}
}
