package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all process configuration loaded from environment
// variables. Policy parameters are deliberately NOT here: they are
// immutable per vault and live in the policy file (see policy.go).
type Config struct {
	IndexerURL          string
	OracleURL           string
	OracleWSURL         string
	OraclePublicKey     string
	DatabaseURL         string
	PolicyFile          string
	KeeperAddress       string
	PayoutAddress       string
	IndexerRetryMax     int
	IndexerRetryDelay   time.Duration
	OracleRetryMax      int
	OracleRetryDelay    time.Duration
	OracleMinInterval   time.Duration
	QuoteStaleThreshold time.Duration
	QuoteInterval       time.Duration
	RebalanceInterval   time.Duration
	HTTPPort            string
	AdminAPIKey         string
	SheetsSpreadsheetID string
	SheetsCredentials   string
}

// Load reads configuration from environment variables with sensible
// defaults.
func Load() Config {
	return Config{
		IndexerURL:          envOrDefault("INDEXER_URL", "https://indexer.cashpeg.example"),
		OracleURL:           envOrDefault("ORACLE_URL", "https://oracles.generalprotocols.com"),
		OracleWSURL:         envOrDefault("ORACLE_WS_URL", ""),
		OraclePublicKey:     envOrDefaultWarn("ORACLE_PUBLIC_KEY", ""),
		DatabaseURL:         envOrDefaultWarn("DATABASE_URL", ""),
		PolicyFile:          envOrDefault("POLICY_FILE", "policy.yaml"),
		KeeperAddress:       envOrDefaultWarn("KEEPER_ADDRESS", ""),
		PayoutAddress:       envOrDefaultWarn("PAYOUT_ADDRESS", ""),
		IndexerRetryMax:     envOrDefaultInt("INDEXER_RETRY_MAX", 5),
		IndexerRetryDelay:   envOrDefaultDuration("INDEXER_RETRY_DELAY", 2*time.Second),
		OracleRetryMax:      envOrDefaultInt("ORACLE_RETRY_MAX", 5),
		OracleRetryDelay:    envOrDefaultDuration("ORACLE_RETRY_DELAY", 2*time.Second),
		OracleMinInterval:   envOrDefaultDuration("ORACLE_MIN_INTERVAL", 5*time.Second),
		QuoteStaleThreshold: envOrDefaultDuration("QUOTE_STALE_THRESHOLD", 30*time.Minute),
		QuoteInterval:       envOrDefaultDuration("QUOTE_INTERVAL", 5*time.Minute),
		RebalanceInterval:   envOrDefaultDuration("REBALANCE_INTERVAL", 1*time.Hour),
		HTTPPort:            envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:         envOrDefault("ADMIN_API_KEY", ""),
		SheetsSpreadsheetID: envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentials:   envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
