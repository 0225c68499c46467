package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/adapters/notify"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/adapters/synthetic"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/config"
	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/service"
)

func main() {
	_ = godotenv.Load()

	anchor := flag.String("anchor", time.Now().UTC().Format(time.DateOnly), "last day of the synthetic window (YYYY-MM-DD)")
	full := flag.Bool("full", false, "run the full health check instead of the ecosystem rollup")
	flag.Parse()

	cfg := config.Load()
	logger := cfg.NewLogger()

	at, err := time.Parse(time.DateOnly, *anchor)
	if err != nil {
		log.Fatalf("invalid anchor: %v", err)
	}

	// 1. Same engine as the CLI, fed by deterministic sources
	reg, err := config.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		log.Fatalf("registry: %v", err)
	}
	svc, err := service.NewMonitorService(service.Options{
		Registry:         reg,
		Market:           synthetic.NewMarket(at),
		Ledger:           synthetic.NewLedger(at),
		Alerts:           notify.NewLogSink(logger),
		Logger:           logger,
		WindowDays:       cfg.HistoryDays,
		Currency:         cfg.VsCurrency,
		FetchConcurrency: cfg.FetchConcurrency,
		LargeTxThreshold: cfg.LargeTxThreshold,
		VolumeDropRatio:  cfg.VolumeDropRatio,
		VolumeSpikeRatio: cfg.VolumeSpikeRatio,
		SupplyMultiplier: cfg.SupplyMultiplier,
		Now:              func() time.Time { return at },
	})
	if err != nil {
		log.Fatalf("setup failed: %v", err)
	}

	// 2. Execute
	log.Printf("Simulating %d tokens as of %s...", len(reg.Tokens()), at.Format(time.DateOnly))
	var result any
	if *full {
		result, err = svc.RunHealthCheck(context.Background())
	} else {
		result, err = svc.CheckEcosystem(context.Background(), nil)
	}
	if err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	// 3. Print Output
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	fmt.Fprintln(os.Stdout, string(output))
}
