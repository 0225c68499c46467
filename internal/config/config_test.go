package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HISTORY_DAYS", "VS_CURRENCY", "LARGE_TX_THRESHOLD", "SUPPLY_MULTIPLIER", "CHECK_INTERVAL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.HistoryDays != 30 {
		t.Errorf("HistoryDays = %d, want 30", cfg.HistoryDays)
	}
	if cfg.LargeTxThreshold != 0.05 {
		t.Errorf("LargeTxThreshold = %v, want 0.05", cfg.LargeTxThreshold)
	}
	if cfg.SupplyMultiplier != 10 {
		t.Errorf("SupplyMultiplier = %v, want 10", cfg.SupplyMultiplier)
	}
	if cfg.CheckInterval != time.Hour {
		t.Errorf("CheckInterval = %v, want 1h", cfg.CheckInterval)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HISTORY_DAYS", "7")
	t.Setenv("VS_CURRENCY", "eur")
	t.Setenv("LARGE_TX_THRESHOLD", "1.5")
	t.Setenv("SERIES_CACHE_TTL", "90m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FETCH_CONCURRENCY", "not-a-number")

	cfg := Load()

	if cfg.HistoryDays != 7 {
		t.Errorf("HistoryDays = %d, want 7", cfg.HistoryDays)
	}
	if cfg.VsCurrency != "eur" {
		t.Errorf("VsCurrency = %s, want eur", cfg.VsCurrency)
	}
	if cfg.LargeTxThreshold != 1.5 {
		t.Errorf("LargeTxThreshold = %v, want 1.5", cfg.LargeTxThreshold)
	}
	if cfg.SeriesCacheTTL != 90*time.Minute {
		t.Errorf("SeriesCacheTTL = %v, want 90m", cfg.SeriesCacheTTL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
	if cfg.FetchConcurrency != 4 {
		t.Errorf("FetchConcurrency = %d, want default 4 for invalid input", cfg.FetchConcurrency)
	}
}
