package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL        string
	StoreDriver        string
	JWTSecretKey       string
	ServerPort         int
	TokenTTL           time.Duration
	CookieSecure       bool
	CORSAllowedOrigins []string
	LoginRateLimit     float64
	LoginRateBurst     int
	LogLevel           slog.Level
	R2                 R2Config
}

// R2Config - параметры хранилища изображений. Загрузка включена, только если заданы все поля.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" &&
		c.BucketName != "" && c.PublicBaseURL != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию из произвольного источника переменных.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:  getenv("DATABASE_URL"),
		StoreDriver:  strings.ToLower(strings.TrimSpace(getenv("STORE_DRIVER"))),
		JWTSecretKey: getenv("JWT_SECRET_KEY"),
		R2: R2Config{
			AccountID:       getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   strings.TrimRight(getenv("R2_PUBLIC_BASE_URL"), "/"),
		},
	}

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = StoreDriverPostgres
	}
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	cfg.TokenTTL = 7 * 24 * time.Hour
	if v := getenv("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid TOKEN_TTL %q", v)
		}
		cfg.TokenTTL = ttl
	}

	cfg.CookieSecure = true
	if v := getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
		}
		cfg.CookieSecure = secure
	}

	cfg.CORSAllowedOrigins = []string{"http://localhost:3000"}
	if v := getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := make([]string, 0)
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSAllowedOrigins = origins
	}

	cfg.LoginRateLimit = 5
	if v := getenv("LOGIN_RATE_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("invalid LOGIN_RATE_LIMIT %q", v)
		}
		cfg.LoginRateLimit = limit
	}
	cfg.LoginRateBurst = 10
	if v := getenv("LOGIN_RATE_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil || burst <= 0 {
			return nil, fmt.Errorf("invalid LOGIN_RATE_BURST %q", v)
		}
		cfg.LoginRateBurst = burst
	}

	cfg.LogLevel = slog.LevelInfo
	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
	}

	return cfg, nil
}
