package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.Model != "mistral-tiny" {
		t.Fatalf("Model = %q, want mistral-tiny", cfg.Model)
	}
	if cfg.HistorySize != 6 {
		t.Fatalf("HistorySize = %d, want 6", cfg.HistorySize)
	}
	if cfg.RetentionWindow != 24*time.Hour {
		t.Fatalf("RetentionWindow = %v, want 24h", cfg.RetentionWindow)
	}
	if cfg.UpstreamMaxAttempts != 3 || cfg.BackoffMin != 4*time.Second || cfg.BackoffMax != 10*time.Second {
		t.Fatalf("retry defaults wrong: %d %v %v", cfg.UpstreamMaxAttempts, cfg.BackoffMin, cfg.BackoffMax)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL = %q, want empty default", cfg.DatabaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("HISTORY_SIZE", "12")
	t.Setenv("HISTORY_RETENTION", "2h")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HistorySize != 12 || cfg.RetentionWindow != 2*time.Hour || cfg.UpstreamTimeout != 5*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("HISTORY_SIZE", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("HISTORY_SIZE=0 should fail validation")
	}

	setCoreEnvEmpty(t)
	t.Setenv("UPSTREAM_TIMEOUT", "nonsense")
	if _, err := Load(); err == nil {
		t.Fatalf("unparseable duration should fail")
	}

	setCoreEnvEmpty(t)
	t.Setenv("UPSTREAM_BACKOFF_MIN", "20s")
	if _, err := Load(); err == nil {
		t.Fatalf("backoff min above max should fail")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_NAME",
		"APP_VERSION",
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_THROTTLE_LIMIT",
		"UPSTREAM_BASE_URL",
		"UPSTREAM_MODEL",
		"UPSTREAM_TIMEOUT",
		"UPSTREAM_MAX_ATTEMPTS",
		"UPSTREAM_BACKOFF_MIN",
		"UPSTREAM_BACKOFF_MAX",
		"HISTORY_SIZE",
		"HISTORY_RETENTION",
		"HISTORY_SWEEP_INTERVAL",
		"PROMPTS_DIR",
		"MAX_QUESTION_LEN",
		"SANITIZE_MAX_LEN",
		"MAX_REPLY_WORDS",
		"DATABASE_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
