package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Session
	SessionMaxAge          int           `env:"SESSION_MAX_AGE" env-default:"604800"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" env-default:"1h"`
	BcryptCost             int           `env:"BCRYPT_COST" env-default:"10"`

	// Download proxy
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT" env-default:"15s"`
	DownloadMaxSize int64         `env:"DOWNLOAD_MAX_SIZE" env-default:"52428800"`

	// Feed import
	ImportTimeout   time.Duration `env:"IMPORT_TIMEOUT" env-default:"10s"`
	ImportMaxSize   int64         `env:"IMPORT_MAX_SIZE" env-default:"5242880"`
	ImportMaxSlides int           `env:"IMPORT_MAX_SLIDES" env-default:"10"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	// Server
	ServerPort string `env:"SERVER_PORT" env-default:"5001"`
	BaseURL    string `env:"BASE_URL" env-default:"http://localhost:5001"`

	// Cookie
	CookieSecure bool
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" env-default:"http://localhost:5173"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定（空文字列を含む）の場合は、不足している変数名をまとめてエラーとして返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if cfg.ImportMaxSlides < 1 {
		return nil, fmt.Errorf("IMPORT_MAX_SLIDES must be positive: %d", cfg.ImportMaxSlides)
	}

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	return cfg, nil
}
