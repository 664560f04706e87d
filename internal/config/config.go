package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP
	Port           string
	RunLocal       bool
	AllowedOrigins []string
	SessionSecret  string
	SessionMaxAge  time.Duration

	// AWS
	Region           string
	Endpoint         string // local DynamoDB/SQS emulator
	OrdersTable      string
	IdempotencyTable string
	SessionsTable    string
	OrdersQueueURL   string
	MetricsNamespace string
	IdempotencyTTL   time.Duration

	// Remote authority and address book
	AuthVerifyURL    string
	AddressLookupURL string
	RemoteTimeout    time.Duration

	CatalogPath string

	// Development mode
	Development bool
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		RunLocal:       getBoolEnv("RUN_LOCAL", false),
		AllowedOrigins: getSliceEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		SessionSecret:  getEnv("SESSION_SECRET", "change-me-in-production"),
		SessionMaxAge:  getDurationEnv("SESSION_TTL", 30*24*time.Hour),

		Region:           getEnv("AWS_REGION", "us-east-1"),
		Endpoint:         getEnv("AWS_ENDPOINT", ""),
		OrdersTable:      getEnv("ORDERS_TABLE", "fishly-orders"),
		IdempotencyTable: getEnv("IDEMPOTENCY_TABLE", "fishly-idempotency"),
		SessionsTable:    getEnv("SESSIONS_TABLE", ""),
		OrdersQueueURL:   getEnv("ORDERS_QUEUE_URL", ""),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "Fishly/Storefront"),
		IdempotencyTTL:   getDurationEnv("IDEMPOTENCY_TTL", 48*time.Hour),

		AuthVerifyURL:    getEnv("AUTH_VERIFY_URL", "http://localhost:5000/api/auth/verify"),
		AddressLookupURL: getEnv("ADDRESS_LOOKUP_URL", ""),
		RemoteTimeout:    getDurationEnv("REMOTE_TIMEOUT", 5*time.Second),

		CatalogPath: getEnv("CATALOG_PATH", "config/catalog.yaml"),

		Development: getBoolEnv("DEVELOPMENT", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("90s") or whole seconds ("90").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	return defaultValue
}
