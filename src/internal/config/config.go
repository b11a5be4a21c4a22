package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultDatabaseDSN = "host=localhost port=5432 dbname=bridge_ledger user=postgres password=postgres sslmode=disable"
	defaultMongoURI    = "mongodb://localhost:27017"
	defaultMongoDB     = "bridge_ledger"
	defaultRedisAddr   = "localhost:6379"
	defaultKafkaBroker = "localhost:9092"
	defaultKafkaTopic  = "ledger_event_completed"
	defaultServerAddr  = ":8080"
	defaultChannelID   = "BridgeAdmin"
	defaultChannelKey  = "BridgeAdminKey001"
)

type Config struct {
	// Persistence
	StoreBackend  string // "postgres" or "mongo"
	DatabaseDSN   string
	MigrationsDir string
	MongoURI      string
	MongoDatabase string

	// Coordination
	RedisAddr           string
	RedisPassword       string
	LockTTL             time.Duration
	LockWaitTimeout     time.Duration
	LockWaitLogInterval time.Duration

	// Completion records
	KafkaBrokers []string
	KafkaTopic   string

	// Conversion fees, all settlement-side
	FeePercent                float64
	FlatFeeSats               int64
	NotificationFeeSats       int64
	NotificationThresholdSats int64
	MinimalReceiptMsats       int64

	// Pipeline retry policy (distinct from the lock TTL backstop)
	RetryBaseDelay   time.Duration
	RetryMaxAttempts int

	// Customer conversion limit over a sliding window
	CustomerLimitSats   int64
	CustomerLimitWindow time.Duration

	// Static exchange rates used until a live feed adapter is wired in
	RateTokenAUSD string
	RateTokenBUSD string
	RateBTCUSD    string
	RateSource    string

	// Admin surface
	ServerAddr string
	ChannelID  string
	ChannelKey string
}

func Load() (Config, error) {
	cfg := Config{
		StoreBackend:  envString("STORE_BACKEND", "postgres"),
		DatabaseDSN:   envString("DATABASE_DSN", defaultDatabaseDSN),
		MigrationsDir: filepath.Join("src", "migrations"),
		MongoURI:      envString("MONGO_URI", defaultMongoURI),
		MongoDatabase: envString("MONGO_DATABASE", defaultMongoDB),

		RedisAddr:           envString("REDIS_ADDR", defaultRedisAddr),
		RedisPassword:       envString("REDIS_PASSWORD", ""),
		LockTTL:             envDuration("LOCK_TTL", 120*time.Second),
		LockWaitTimeout:     envDuration("LOCK_WAIT_TIMEOUT", 30*time.Second),
		LockWaitLogInterval: envDuration("LOCK_WAIT_LOG_INTERVAL", 5*time.Second),

		KafkaBrokers: envList("KAFKA_BROKERS", defaultKafkaBroker),
		KafkaTopic:   envString("KAFKA_TOPIC", defaultKafkaTopic),

		FeePercent:                envFloat("CONV_FEE_PERCENT", 1.5),
		FlatFeeSats:               envInt("CONV_FLAT_FEE_SATS", 50),
		NotificationFeeSats:       envInt("NOTIFICATION_FEE_SATS", 100),
		NotificationThresholdSats: envInt("NOTIFICATION_THRESHOLD_SATS", 5000),
		MinimalReceiptMsats:       envInt("MINIMAL_RECEIPT_MSATS", 1000),

		RetryBaseDelay:   envDuration("RETRY_BASE_DELAY", 2*time.Second),
		RetryMaxAttempts: int(envInt("RETRY_MAX_ATTEMPTS", 3)),

		CustomerLimitSats:   envInt("CUSTOMER_LIMIT_SATS", 1_000_000),
		CustomerLimitWindow: envDuration("CUSTOMER_LIMIT_WINDOW", 24*time.Hour),

		RateTokenAUSD: envString("RATE_TOKENA_USD", "0.0561"),
		RateTokenBUSD: envString("RATE_TOKENB_USD", "0.245"),
		RateBTCUSD:    envString("RATE_BTC_USD", "22095.86"),
		RateSource:    envString("RATE_SOURCE", "static-env"),

		ServerAddr: envString("SERVER_ADDR", defaultServerAddr),
		ChannelID:  envString("CHANNEL_ID", defaultChannelID),
		ChannelKey: envString("CHANNEL_KEY", defaultChannelKey),
	}

	switch cfg.StoreBackend {
	case "postgres", "mongo":
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND must be postgres or mongo, got %q", cfg.StoreBackend)
	}
	if cfg.FeePercent < 0 || cfg.FeePercent >= 100 {
		return Config{}, fmt.Errorf("CONV_FEE_PERCENT must be in [0, 100), got %v", cfg.FeePercent)
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envList(key, fallback string) []string {
	raw := envString(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
