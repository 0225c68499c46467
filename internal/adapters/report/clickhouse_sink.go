package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

type ClickHouseConfig struct {
	Addr     string
	Username string
	Password string
	Database string
	Timeout  int
}

// ClickHouseSink stores reports as JSON payload rows in monitor_reports.
type ClickHouseSink struct {
	conn driver.Conn
	now  func() time.Time
}

func NewClickHouseSink(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseSink, error) {
	database := cfg.Database
	if database == "" {
		database = "default"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: time.Duration(cfg.Timeout) * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := createReportsTable(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &ClickHouseSink{conn: conn, now: func() time.Time { return time.Now().UTC() }}, nil
}

var _ domain.ReportSink = (*ClickHouseSink)(nil)

func createReportsTable(ctx context.Context, conn driver.Conn) error {
	return conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS monitor_reports (
			run_id String,
			kind LowCardinality(String),
			subject String,
			payload String,
			created_at DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY (kind, subject, created_at)
	`)
}

// Write inserts one row and returns "run_id/kind/subject".
func (s *ClickHouseSink) Write(ctx context.Context, r domain.Report) (string, error) {
	payload, err := json.Marshal(r.Body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s report: %w", r.Kind, err)
	}

	err = s.conn.Exec(ctx, `
		INSERT INTO monitor_reports (run_id, kind, subject, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.RunID, string(r.Kind), r.Subject, string(payload), s.now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert report: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", r.RunID, r.Kind, r.Subject), nil
}

func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
