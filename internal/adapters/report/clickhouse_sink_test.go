package report

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

func TestClickHouseSink_Write(t *testing.T) {
	addr := os.Getenv("CLICKHOUSE_ADDR")
	if addr == "" {
		t.Skip("CLICKHOUSE_ADDR not set; requires live ClickHouse instance")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, err := NewClickHouseSink(ctx, ClickHouseConfig{
		Addr:     addr,
		Username: os.Getenv("CLICKHOUSE_USER"),
		Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		Timeout:  10,
	})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer sink.Close()

	loc, err := sink.Write(ctx, domain.Report{
		RunID:   "test-run",
		Kind:    domain.ReportTokenHealth,
		Subject: "alpha",
		Body:    &domain.TokenHealthReport{TokenID: "alpha", VolumeHealth: domain.VolumeNormal},
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if loc != "test-run/token_health/alpha" {
		t.Errorf("location = %s", loc)
	}
}
