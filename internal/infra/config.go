package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	DBMaxConns     int
	DBMinConns     int
	JWTSecret      string
	StorageBaseURL string
	StoragePath    string
	GeoIPDBPath    string
	GoogleClientID string
	GoogleIssuer   string

	KieAPIKey  string
	KieBaseURL string
	FalAPIKey  string
	FalBaseURL string
	MuxTokenID string
	MuxSecret  string
	MuxBaseURL string

	BillingWebhookSecret string
	BillingTolerance     time.Duration

	RedisAddr     string
	RedisPassword string
	TrendingTTL   time.Duration

	PollInterval     time.Duration
	PollMaxTransient int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxConns:     getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:     getEnvInt("DB_MIN_CONNS", 1),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleIssuer:   getEnv("GOOGLE_ISSUER", "https://accounts.google.com"),

		KieAPIKey:  os.Getenv("KIE_API_KEY"),
		KieBaseURL: getEnv("KIE_BASE_URL", "https://api.kie.ai"),
		FalAPIKey:  os.Getenv("FAL_API_KEY"),
		FalBaseURL: getEnv("FAL_BASE_URL", "https://queue.fal.run"),
		MuxTokenID: os.Getenv("MUX_TOKEN_ID"),
		MuxSecret:  os.Getenv("MUX_TOKEN_SECRET"),
		MuxBaseURL: getEnv("MUX_BASE_URL", "https://api.mux.com"),

		BillingWebhookSecret: os.Getenv("BILLING_WEBHOOK_SECRET"),
		BillingTolerance:     time.Second * time.Duration(getEnvInt("BILLING_TOLERANCE_SECONDS", 300)),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		TrendingTTL:   time.Second * time.Duration(getEnvInt("TRENDING_TTL_SECONDS", 120)),

		PollInterval:     time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)),
		PollMaxTransient: getEnvInt("POLL_MAX_TRANSIENT", 150),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.DBMaxConns <= 0 {
		cfg.DBMaxConns = 10
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		cfg.DBMinConns = 1
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollMaxTransient <= 0 {
		cfg.PollMaxTransient = 150
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
