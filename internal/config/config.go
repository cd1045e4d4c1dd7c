package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pharmapos/m/domain"
)

// Config holds application configuration values.
type Config struct {
	Secret             string
	HTTPPort           string
	DatabaseDriver     string
	DatabaseDSN        string
	LogLevel           string
	LogFormat          string
	LowStockThreshold  int64
	DBTimeout          time.Duration
	SaleMaxAttempts    int
	PhonePattern       string
	TokenTTL           time.Duration
	CatalogPath        string
	CatalogEncoding    string
	StockCheckInterval time.Duration
	AdminEmail         string
	AdminPassword      string
	RateLimitRate      float64
	RateLimitBurst     int64
	CORSOrigins        []string
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() (Config, error) {
	cfg := Config{
		Secret:             getEnv("SECRET", "dev_secret"),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseDriver:     strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseDSN:        os.Getenv("DATABASE_DSN"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		LowStockThreshold:  int64(getIntEnv("LOW_STOCK_THRESHOLD", domain.DefaultLowStockThreshold)),
		DBTimeout:          getDurationEnv("DB_TIMEOUT", 5*time.Second),
		SaleMaxAttempts:    getIntEnv("SALE_MAX_ATTEMPTS", 3),
		PhonePattern:       getEnv("PHONE_PATTERN", domain.DefaultPhonePattern),
		TokenTTL:           getDurationEnv("TOKEN_TTL", 24*time.Hour),
		CatalogPath:        getEnv("CATALOG_PATH", "assets/drugs.csv"),
		CatalogEncoding:    strings.ToLower(getEnv("CATALOG_ENCODING", "utf-8")),
		StockCheckInterval: getDurationEnv("STOCK_CHECK_INTERVAL", 15*time.Minute),
		AdminEmail:         strings.ToLower(os.Getenv("ADMIN_EMAIL")),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		RateLimitRate:      getFloatEnv("RATE_LIMIT_RATE", 5),
		RateLimitBurst:     int64(getIntEnv("RATE_LIMIT_BURST", 20)),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "*")),
	}

	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = defaultDSN(cfg.DatabaseDriver)
	}

	if err := validate(cfg); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func defaultDSN(driver string) string {
	if driver == "pgx" {
		user := getEnv("USER", "postgres")
		password := os.Getenv("PASSWORD")
		host := getEnv("HOST", "localhost")
		port := getEnv("PORT", "5432")
		name := getEnv("NAME", "pharmapos")
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
	}
	return "file:pharmapos.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func validate(cfg Config) error {
	port, err := strconv.Atoi(cfg.HTTPPort)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %q", cfg.HTTPPort)
	}
	if cfg.DatabaseDriver != "sqlite" && cfg.DatabaseDriver != "pgx" {
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or pgx, got %q", cfg.DatabaseDriver)
	}
	if cfg.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative, got %d", cfg.LowStockThreshold)
	}
	if cfg.DBTimeout <= 0 {
		return fmt.Errorf("DB_TIMEOUT must be positive, got %s", cfg.DBTimeout)
	}
	if cfg.SaleMaxAttempts < 1 || cfg.SaleMaxAttempts > 10 {
		return fmt.Errorf("SALE_MAX_ATTEMPTS must be between 1 and 10, got %d", cfg.SaleMaxAttempts)
	}
	if _, err := regexp.Compile(cfg.PhonePattern); err != nil {
		return fmt.Errorf("invalid PHONE_PATTERN: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.CatalogEncoding != "utf-8" && cfg.CatalogEncoding != "windows-1252" {
		return fmt.Errorf("CATALOG_ENCODING must be utf-8 or windows-1252, got %q", cfg.CatalogEncoding)
	}
	if cfg.StockCheckInterval < time.Minute {
		return fmt.Errorf("STOCK_CHECK_INTERVAL must be at least 1m, got %s", cfg.StockCheckInterval)
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if cfg.RateLimitRate <= 0 || cfg.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RATE and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// Malformed numeric values are kept as a sentinel so validation reports them.
func getIntEnv(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return n
}

func getFloatEnv(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return -1
	}
	return f
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return -1
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
