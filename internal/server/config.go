package server

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tyrowin/nexus-chat/internal/store"
	"github.com/Tyrowin/nexus-chat/internal/validation"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings, including the chat input
// limits handed to the dispatcher.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig

	MaxStoredMessages int
	MaxMessageLength  int
	UsernameMinLength int
	UsernameMaxLength int
	MaxFileSize       int64
	AllowedFileTypes  []string
	HistorySize       int
	AvatarBaseURL     string

	CleanupInterval time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	limits := validation.DefaultLimits()
	return &Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 16 * 1024,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		MaxStoredMessages: store.DefaultMaxMessages,
		MaxMessageLength:  limits.MaxMessageLength,
		UsernameMinLength: limits.UsernameMinLength,
		UsernameMaxLength: limits.UsernameMaxLength,
		MaxFileSize:       limits.MaxFileSize,
		AllowedFileTypes:  limits.AllowedFileTypes,
		HistorySize:       20,
		AvatarBaseURL:     "https://ui-avatars.com/api/",
		CleanupInterval:   30 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Unset or invalid values fall back to the defaults.
func NewConfigFromEnv() *Config {
	cfg := NewConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = normalizePort(port)
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseList(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseInt64Value(maxSize, cfg.MaxMessageSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	if v := os.Getenv("MAX_STORED_MESSAGES"); v != "" {
		cfg.MaxStoredMessages = parseIntValue(v, cfg.MaxStoredMessages)
	}
	if v := os.Getenv("MAX_MESSAGE_LENGTH"); v != "" {
		cfg.MaxMessageLength = parseIntValue(v, cfg.MaxMessageLength)
	}
	if v := os.Getenv("USERNAME_MIN_LENGTH"); v != "" {
		cfg.UsernameMinLength = parseIntValue(v, cfg.UsernameMinLength)
	}
	if v := os.Getenv("USERNAME_MAX_LENGTH"); v != "" {
		cfg.UsernameMaxLength = parseIntValue(v, cfg.UsernameMaxLength)
	}
	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		cfg.MaxFileSize = parseInt64Value(v, cfg.MaxFileSize)
	}
	if v := os.Getenv("ALLOWED_FILE_TYPES"); v != "" {
		if types := parseList(v); len(types) > 0 {
			cfg.AllowedFileTypes = types
		}
	}
	if v := os.Getenv("HISTORY_SIZE"); v != "" {
		cfg.HistorySize = parseIntValue(v, cfg.HistorySize)
	}
	if v := os.Getenv("AVATAR_BASE_URL"); v != "" {
		cfg.AvatarBaseURL = v
	}

	if v := os.Getenv("CLEANUP_INTERVAL"); v != "" {
		cfg.CleanupInterval = parseSeconds(v, cfg.CleanupInterval)
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		cfg.ShutdownTimeout = parseSeconds(v, cfg.ShutdownTimeout)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	if cfg.UsernameMinLength > cfg.UsernameMaxLength {
		defaults := NewConfig()
		cfg.UsernameMinLength = defaults.UsernameMinLength
		cfg.UsernameMaxLength = defaults.UsernameMaxLength
	}

	return cfg
}

// Limits returns the input limits the dispatcher validates against.
func (c *Config) Limits() validation.Limits {
	limits := validation.DefaultLimits()
	limits.MaxMessageLength = c.MaxMessageLength
	limits.UsernameMinLength = c.UsernameMinLength
	limits.UsernameMaxLength = c.UsernameMaxLength
	limits.MaxFileSize = c.MaxFileSize
	if len(c.AllowedFileTypes) > 0 {
		limits.AllowedFileTypes = append([]string(nil), c.AllowedFileTypes...)
	}
	return limits
}

func normalizePort(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt64Value(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// parseSeconds accepts a whole number of seconds or a Go duration string.
func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
