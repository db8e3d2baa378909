package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig aggregates runtime configuration. Everything comes from
// environment variables so deployments never patch code for a knob.
type AppConfig struct {
	HTTPAddr string
	DBPath   string

	RedisAddr string
	RedisDB   int

	// Kafka cluster (comma separated) and the operational alert topic.
	KafkaBrokers []string
	AlertTopic   string
	AlertGroupID string

	// Course catalog (discovery) service.
	CatalogBaseURL  string
	CatalogTimeout  time.Duration
	CatalogCacheTTL time.Duration

	// Currencies the purchase workflow will record. Anything else is
	// rejected before any row is written.
	SupportedCurrencies []string

	// Mailbox alerted about expired mobile courses. Empty disables the
	// alert (logged, not fatal).
	OpsMailbox string

	// Purchase endpoint rate limiting.
	PurchaseRateLimit  int
	PurchaseRateWindow time.Duration

	// Prefix for dry-run order numbers, kept out of the real sequence.
	ManualOrderPrefix string
}

// Load reads and validates configuration, falling back to defaults.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DBPath:              getEnv("DB_PATH", "course_commerce.db"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:             0,
		KafkaBrokers:        splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		AlertTopic:          getEnv("ALERT_TOPIC", "ops-alerts"),
		AlertGroupID:        getEnv("ALERT_GROUP_ID", "ops-alert-worker"),
		CatalogBaseURL:      getEnv("CATALOG_BASE_URL", "http://localhost:18381/api/v1"),
		CatalogTimeout:      10 * time.Second,
		CatalogCacheTTL:     time.Hour,
		SupportedCurrencies: splitCSV(getEnv("SUPPORTED_CURRENCIES", "SAR")),
		OpsMailbox:          getEnv("OPS_MAILBOX", ""),
		PurchaseRateLimit:   10,
		PurchaseRateWindow:  time.Minute,
		ManualOrderPrefix:   getEnv("MANUAL_ORDER_PREFIX", "MANUAL-ENTRY-"),
	}

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	timeoutSec, err := getEnvInt("CATALOG_TIMEOUT_SEC", int(cfg.CatalogTimeout.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid CATALOG_TIMEOUT_SEC: %w", err)
	}
	if timeoutSec <= 0 {
		return AppConfig{}, fmt.Errorf("CATALOG_TIMEOUT_SEC must be > 0")
	}
	cfg.CatalogTimeout = time.Duration(timeoutSec) * time.Second

	cacheTTLMin, err := getEnvInt("CATALOG_CACHE_TTL_MIN", int(cfg.CatalogCacheTTL.Minutes()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid CATALOG_CACHE_TTL_MIN: %w", err)
	}
	if cacheTTLMin <= 0 {
		return AppConfig{}, fmt.Errorf("CATALOG_CACHE_TTL_MIN must be > 0")
	}
	cfg.CatalogCacheTTL = time.Duration(cacheTTLMin) * time.Minute

	rateLimit, err := getEnvInt("PURCHASE_RATE_LIMIT", cfg.PurchaseRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid PURCHASE_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("PURCHASE_RATE_LIMIT must be > 0")
	}
	cfg.PurchaseRateLimit = rateLimit

	rateWindowSec, err := getEnvInt("PURCHASE_RATE_WINDOW_SEC", int(cfg.PurchaseRateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid PURCHASE_RATE_WINDOW_SEC: %w", err)
	}
	if rateWindowSec <= 0 {
		return AppConfig{}, fmt.Errorf("PURCHASE_RATE_WINDOW_SEC must be > 0")
	}
	cfg.PurchaseRateWindow = time.Duration(rateWindowSec) * time.Second

	if len(cfg.KafkaBrokers) == 0 {
		return AppConfig{}, fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	if cfg.AlertTopic == "" {
		return AppConfig{}, fmt.Errorf("ALERT_TOPIC must not be empty")
	}
	if cfg.AlertGroupID == "" {
		return AppConfig{}, fmt.Errorf("ALERT_GROUP_ID must not be empty")
	}
	if cfg.CatalogBaseURL == "" {
		return AppConfig{}, fmt.Errorf("CATALOG_BASE_URL must not be empty")
	}
	if len(cfg.SupportedCurrencies) == 0 {
		return AppConfig{}, fmt.Errorf("SUPPORTED_CURRENCIES must not be empty")
	}
	if cfg.ManualOrderPrefix == "" {
		return AppConfig{}, fmt.Errorf("MANUAL_ORDER_PREFIX must not be empty")
	}

	return cfg, nil
}

// getEnv reads a string variable, falling back when empty.
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt reads an integer variable, falling back when empty.
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// splitCSV parses a comma separated string into a slice.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
