package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config holds all runtime settings. Token and wallet definitions live in the
// registry (see LoadRegistry), not here.
type Config struct {
	Env      string
	LogLevel slog.Level

	// Market data
	CoinGeckoBaseURL string
	CoinGeckoAPIKey  string
	CoinGeckoRPS     float64
	HistoryDays      int
	VsCurrency       string

	// Ledger
	PulseChainBaseURL string
	LedgerCacheSize   int

	HTTPTimeout      time.Duration
	FetchConcurrency int

	// Thresholds
	LargeTxThreshold float64
	VolumeDropRatio  float64
	VolumeSpikeRatio float64
	SupplyMultiplier float64

	// Redis series store (optional)
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SeriesCacheTTL time.Duration

	// ClickHouse report sink (optional)
	ClickhouseAddr     string
	ClickhouseUsername string
	ClickhousePassword string
	ClickhouseDatabase string
	ClickhouseTimeout  int

	// Alerts
	AlertWSURL    string
	AlertWSSecret string

	// Narrative
	OpenAIKey   string
	OpenAIModel string

	// Output
	ReportDir    string
	RegistryPath string

	// Watch mode
	CheckInterval time.Duration
	MetricsAddr   string
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:      getEnv("ENV", EnvLocal),
		LogLevel: getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),

		CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:  getEnv("COINGECKO_API_KEY", ""),
		CoinGeckoRPS:     getEnvAsFloat("COINGECKO_RPS", 0.5),
		HistoryDays:      getEnvAsInt("HISTORY_DAYS", 30),
		VsCurrency:       getEnv("VS_CURRENCY", "usd"),

		PulseChainBaseURL: getEnv("PULSECHAIN_BASE_URL", "https://scan.pulsechain.com/api"),
		LedgerCacheSize:   getEnvAsInt("LEDGER_CACHE_SIZE", 256),

		HTTPTimeout:      getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		FetchConcurrency: getEnvAsInt("FETCH_CONCURRENCY", 4),

		LargeTxThreshold: getEnvAsFloat("LARGE_TX_THRESHOLD", 0.05),
		VolumeDropRatio:  getEnvAsFloat("VOLUME_DROP_RATIO", 0.5),
		VolumeSpikeRatio: getEnvAsFloat("VOLUME_SPIKE_RATIO", 2.0),
		SupplyMultiplier: getEnvAsFloat("SUPPLY_MULTIPLIER", 10),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvAsInt("REDIS_DB", 0),
		SeriesCacheTTL: getEnvAsDuration("SERIES_CACHE_TTL", 6*time.Hour),

		ClickhouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickhouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickhousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		ClickhouseDatabase: getEnv("CLICKHOUSE_DATABASE", "default"),
		ClickhouseTimeout:  getEnvAsInt("CLICKHOUSE_TIMEOUT", 10),

		AlertWSURL:    getEnv("ALERT_WS_URL", ""),
		AlertWSSecret: getEnv("ALERT_WS_SECRET", ""),

		OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel: getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		ReportDir:    getEnv("REPORT_DIR", "reports"),
		RegistryPath: getEnv("REGISTRY_PATH", ""),

		CheckInterval: getEnvAsDuration("CHECK_INTERVAL", 60*time.Minute),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9102"),
	}
}

// NewLogger builds the process logger for the configured environment.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	switch c.Env {
	case EnvDev, EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsLevel(key string, defaultVal slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(getEnv(key, "")))); err == nil {
		return level
	}
	return defaultVal
}
