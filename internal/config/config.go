package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Auth
	APIKey        string
	PayloadSecret string

	// External APIs
	DirectoryBaseURL string
	ThumbnailBaseURL string

	// Fetch
	FetchTimeout     time.Duration
	AvatarRetryDelay time.Duration

	// Payload
	PayloadMaxAge time.Duration

	// Withdrawal
	SessionTTL time.Duration

	// Rate Limit（req/min単位）
	RateLimitGeneral  int
	RateLimitWithdraw int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.APIKey = os.Getenv("API_KEY")
	if cfg.APIKey == "" {
		missing = append(missing, "API_KEY")
	}

	cfg.PayloadSecret = os.Getenv("PAYLOAD_SECRET")
	if cfg.PayloadSecret == "" {
		missing = append(missing, "PAYLOAD_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DirectoryBaseURL = getEnvString("DIRECTORY_BASE_URL", "https://users.roblox.com")
	cfg.ThumbnailBaseURL = getEnvString("THUMBNAIL_BASE_URL", "https://thumbnails.roblox.com")
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.AvatarRetryDelay = getEnvDuration("AVATAR_RETRY_DELAY", 1*time.Second)
	cfg.PayloadMaxAge = getEnvDuration("PAYLOAD_MAX_AGE", 5*time.Minute)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", 30*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWithdraw = getEnvInt("RATE_LIMIT_WITHDRAW", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
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
