package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/adapters/cache"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/adapters/chain"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/adapters/narrate"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/adapters/notify"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/adapters/price"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/adapters/report"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/config"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/service"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/metrics"
)

// narrator produces a prose summary of an ecosystem report.
type narrator interface {
	Summarize(ctx context.Context, eco *domain.EcosystemHealth) (string, error)
}

// app holds the process-wide dependencies. Each command builds a fresh
// MonitorService so every run starts with an empty Series Cache.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *config.Registry

	market domain.MarketDataSource
	ledger domain.LedgerDataSource
	redis  *redis.Client

	alerts   domain.AlertSink
	sinks    []domain.ReportSink
	narrator narrator
	metrics  *metrics.Metrics

	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" || args[0] == "--help" {
		usage(stderr)
		return 2
	}

	cfg := config.Load()
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if args[0] == "version" {
		return cmdVersion(stdout)
	}

	reg, err := config.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		fmt.Fprintf(stderr, "registry: %s\n", describe(err))
		return 1
	}

	a, cleanup, err := newApp(ctx, cfg, logger, reg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "startup: %v\n", err)
		return 1
	}
	defer cleanup()

	return a.dispatch(ctx, args)
}

// newApp wires the live adapters. Optional backends (Redis, ClickHouse,
// WebSocket alerts, OpenAI) are enabled by their environment settings.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg *config.Registry, stdout, stderr io.Writer) (*app, func(), error) {
	a := &app{
		cfg:      cfg,
		log:      logger,
		registry: reg,
		market:   price.NewCoinGeckoService(cfg.CoinGeckoBaseURL, cfg.CoinGeckoAPIKey, cfg.CoinGeckoRPS, cfg.HTTPTimeout),
		ledger:   chain.NewPulseChainService(cfg.PulseChainBaseURL, cfg.HTTPTimeout),
		sinks:    []domain.ReportSink{},
		stdout:   stdout,
		stderr:   stderr,
	}
	var closers []func() error

	alertSinks := notify.MultiSink{notify.NewLogSink(logger)}

	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory series cache", "addr", cfg.RedisAddr, "error", err)
		} else {
			a.redis = client
			closers = append(closers, client.Close)
		}
	}

	if cfg.ClickhouseAddr != "" {
		sink, err := report.NewClickHouseSink(ctx, report.ClickHouseConfig{
			Addr:     cfg.ClickhouseAddr,
			Username: cfg.ClickhouseUsername,
			Password: cfg.ClickhousePassword,
			Database: cfg.ClickhouseDatabase,
			Timeout:  cfg.ClickhouseTimeout,
		})
		if err != nil {
			logger.Warn("clickhouse unavailable, reports go to files only", "addr", cfg.ClickhouseAddr, "error", err)
		} else {
			a.sinks = append(a.sinks, sink)
			closers = append(closers, sink.Close)
		}
	}

	if cfg.AlertWSURL != "" {
		ws := notify.NewWebSocketSink(cfg.AlertWSURL, cfg.AlertWSSecret, uuid.NewString())
		alertSinks = append(alertSinks, ws)
		closers = append(closers, ws.Close)
	}
	a.alerts = alertSinks

	if cfg.OpenAIKey != "" {
		a.narrator = narrate.NewOpenAINarrator(cfg.OpenAIKey, cfg.OpenAIModel)
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Debug("close failed", "error", err)
			}
		}
	}
	return a, cleanup, nil
}

// newService starts a monitoring run.
func (a *app) newService() (*service.MonitorService, error) {
	runID := uuid.NewString()

	var store domain.SeriesStore
	if a.redis != nil {
		store = cache.NewRedisSeriesStore(a.redis, runID, a.cfg.SeriesCacheTTL)
	}

	return service.NewMonitorService(service.Options{
		Registry:         a.registry,
		Market:           a.market,
		Ledger:           a.ledger,
		SeriesStore:      store,
		Alerts:           a.alerts,
		Metrics:          a.metrics,
		Logger:           a.log,
		RunID:            runID,
		WindowDays:       a.cfg.HistoryDays,
		Currency:         a.cfg.VsCurrency,
		FetchConcurrency: a.cfg.FetchConcurrency,
		LedgerCacheSize:  a.cfg.LedgerCacheSize,
		LargeTxThreshold: a.cfg.LargeTxThreshold,
		VolumeDropRatio:  a.cfg.VolumeDropRatio,
		VolumeSpikeRatio: a.cfg.VolumeSpikeRatio,
		SupplyMultiplier: a.cfg.SupplyMultiplier,
	})
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: taxyield-monitor <command> [flags] [args]

Commands:
  token <id>                 analyze one ecosystem token
  wallet <name|address>      check a wallet's recent activity
  tax <id>                   tax collected by a token's project wallets
  ecosystem [id...]          evaluate and roll up tokens (all by default)
  sustainability             sustainability of every token's tax model
  check-all                  full health check: tokens, wallets, tax, ecosystem
  list                       list ecosystem tokens
  relationships              reward relationships between tokens
  watch                      repeat the ecosystem check and serve metrics
  version                    print version

Report commands accept -o <path> to save the JSON report.
`)
}
