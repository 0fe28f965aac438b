package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the cultural assistant service.
type Config struct {
	AppName          string
	AppVersion       string
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	ThrottleLimit    int

	UpstreamBaseURL     string
	Model               string
	UpstreamTimeout     time.Duration
	UpstreamMaxAttempts int
	BackoffMin          time.Duration
	BackoffMax          time.Duration

	HistorySize     int
	RetentionWindow time.Duration
	SweepInterval   time.Duration

	PromptsDir     string
	MaxQuestionLen int
	SanitizeMaxLen int
	MaxReplyWords  int

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		AppName:          envOrDefault("APP_NAME", "Cultural Assistant API"),
		AppVersion:       envOrDefault("APP_VERSION", "1.0.0"),
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "calliope"),
		ThrottleLimit:    10,
		UpstreamBaseURL:  envOrDefault("UPSTREAM_BASE_URL", "https://api.mistral.ai"),
		Model:            envOrDefault("UPSTREAM_MODEL", "mistral-tiny"),
		PromptsDir:       envOrDefault("PROMPTS_DIR", "prompts"),
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),

		ShutdownTimeout:     15 * time.Second,
		UpstreamTimeout:     30 * time.Second,
		UpstreamMaxAttempts: 3,
		BackoffMin:          4 * time.Second,
		BackoffMax:          10 * time.Second,
		HistorySize:         6,
		RetentionWindow:     24 * time.Hour,
		SweepInterval:       10 * time.Minute,
		MaxQuestionLen:      1000,
		SanitizeMaxLen:      2000,
		MaxReplyWords:       200,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.UpstreamTimeout, err = durationFromEnv("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.BackoffMin, err = durationFromEnv("UPSTREAM_BACKOFF_MIN", cfg.BackoffMin)
	if err != nil {
		return Config{}, err
	}
	cfg.BackoffMax, err = durationFromEnv("UPSTREAM_BACKOFF_MAX", cfg.BackoffMax)
	if err != nil {
		return Config{}, err
	}
	cfg.RetentionWindow, err = durationFromEnv("HISTORY_RETENTION", cfg.RetentionWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval, err = durationFromEnv("HISTORY_SWEEP_INTERVAL", cfg.SweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.UpstreamMaxAttempts, err = intFromEnv("UPSTREAM_MAX_ATTEMPTS", cfg.UpstreamMaxAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.HistorySize, err = intFromEnv("HISTORY_SIZE", cfg.HistorySize)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxQuestionLen, err = intFromEnv("MAX_QUESTION_LEN", cfg.MaxQuestionLen)
	if err != nil {
		return Config{}, err
	}
	cfg.SanitizeMaxLen, err = intFromEnv("SANITIZE_MAX_LEN", cfg.SanitizeMaxLen)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxReplyWords, err = intFromEnv("MAX_REPLY_WORDS", cfg.MaxReplyWords)
	if err != nil {
		return Config{}, err
	}
	cfg.ThrottleLimit, err = intFromEnv("APP_THROTTLE_LIMIT", cfg.ThrottleLimit)
	if err != nil {
		return Config{}, err
	}

	if cfg.HistorySize <= 0 {
		return Config{}, fmt.Errorf("HISTORY_SIZE must be positive")
	}
	if cfg.RetentionWindow < time.Minute {
		return Config{}, fmt.Errorf("HISTORY_RETENTION must be at least 1m")
	}
	if cfg.UpstreamMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("UPSTREAM_MAX_ATTEMPTS must be positive")
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		return Config{}, fmt.Errorf("UPSTREAM_BACKOFF_MAX must be >= UPSTREAM_BACKOFF_MIN")
	}
	if cfg.MaxQuestionLen <= 0 {
		return Config{}, fmt.Errorf("MAX_QUESTION_LEN must be positive")
	}
	if cfg.ThrottleLimit <= 0 {
		return Config{}, fmt.Errorf("APP_THROTTLE_LIMIT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
