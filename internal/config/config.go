package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"supplement-coach/internal/supplement"
)

// DefaultGeminiModels is the preference order used when GEMINI_MODELS is unset.
var DefaultGeminiModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-flash-latest",
	"gemini-2.0-flash",
	"gemini-2.5-flash",
}

// Config holds the configuration for the application.
type Config struct {
	AppEnv string
	Port   string

	// GeminiAPIKey is optional. Without it the label scanner is disabled.
	GeminiAPIKey string
	GeminiModels []string

	DatabasePath   string
	SessionSecret  string
	SessionTTL     time.Duration
	Location       *time.Location
	DefaultProfile supplement.Profile
	MaxUploadBytes int64
	// AllowedOrigins enables CORS for the listed origins. Empty means no CORS.
	AllowedOrigins []string
	// SecureCookies marks the session cookie Secure. Only enable it when the
	// server is reached over HTTPS; browsers drop Secure cookies on plain HTTP.
	SecureCookies bool

	// Telegram Config (optional, the bot is disabled without a token)
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "production"),
		Port:               getEnv("PORT", "8080"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModels:       splitList(os.Getenv("GEMINI_MODELS")),
		DatabasePath:       getEnv("DATABASE_PATH", "data/supplement-coach.db"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		AllowedOrigins:     splitList(os.Getenv("ALLOWED_ORIGINS")),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
	}

	if cfg.GeminiAPIKey == "" {
		// Older deployments store the key as GOOGLE_API_KEY.
		cfg.GeminiAPIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if len(cfg.GeminiModels) == 0 {
		cfg.GeminiModels = append([]string(nil), DefaultGeminiModels...)
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "12h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be a positive duration")
	}
	cfg.SessionTTL = ttl

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Europe/Berlin"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE is invalid: %w", err)
	}
	cfg.Location = loc

	profile, err := supplement.ParseProfile(getEnv("DEFAULT_PROFILE", string(supplement.ProfileEugen)))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_PROFILE is invalid: %w", err)
	}
	cfg.DefaultProfile = profile

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	if err != nil || maxUpload <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer")
	}
	cfg.MaxUploadBytes = maxUpload

	secure, err := strconv.ParseBool(getEnv("SECURE_COOKIES", "false"))
	if err != nil {
		return nil, fmt.Errorf("SECURE_COOKIES must be a boolean")
	}
	cfg.SecureCookies = secure

	for _, raw := range splitList(os.Getenv("TELEGRAM_ALLOWED_USER_IDS")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS contains an invalid id %q", raw)
		}
		cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
	}

	if raw := os.Getenv("TELEGRAM_ADMIN_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ADMIN_ID environment variable is invalid")
		}
		cfg.AdminTelegramID = id
	}

	return cfg, nil
}

// ScanEnabled reports whether a Gemini credential is configured.
func (c *Config) ScanEnabled() bool {
	return c.GeminiAPIKey != ""
}

// TelegramEnabled reports whether the Telegram bot should be started.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
