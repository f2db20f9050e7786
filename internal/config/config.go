package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	DataDir string

	// Session cookie
	SessionSecret string
	SessionMaxAge int

	// Web Push (VAPID)
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	PushTimeout     time.Duration
	PushQueueSize   int

	// Reminder
	ReminderLead     time.Duration
	ReminderInterval time.Duration

	// Domain limits
	MaxSessions int
	SuperUser   string

	// Rate Limit
	RateLimitGeneral int
	RateLimitSignup  int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DataDir = os.Getenv("DATA_DIR")
	if cfg.DataDir == "" {
		missing = append(missing, "DATA_DIR")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	if cfg.VAPIDPublicKey == "" {
		missing = append(missing, "VAPID_PUBLIC_KEY")
	}

	cfg.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	if cfg.VAPIDPrivateKey == "" {
		missing = append(missing, "VAPID_PRIVATE_KEY")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 2592000)
	cfg.VAPIDSubject = getEnvString("VAPID_SUBJECT", "mailto:admin@example.com")
	cfg.PushTimeout = getEnvDuration("PUSH_TIMEOUT", 10*time.Second)
	cfg.PushQueueSize = getEnvInt("PUSH_QUEUE_SIZE", 64)
	cfg.ReminderLead = getEnvDuration("REMINDER_LEAD", 45*time.Minute)
	cfg.ReminderInterval = getEnvDuration("REMINDER_INTERVAL", 60*time.Second)
	cfg.MaxSessions = getEnvInt("MAX_SESSIONS", 100)
	cfg.SuperUser = getEnvString("SUPER_USER", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSignup = getEnvInt("RATE_LIMIT_SIGNUP", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
