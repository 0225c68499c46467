package domain

import (
	"context"
	"time"
)

// MarketDataSource fetches price/volume history for a token.
type MarketDataSource interface {
	// FetchSeries returns an oldest-first series. Every failure (transport,
	// unknown token, rate limiting) is reported as an error matching ErrNoData.
	FetchSeries(ctx context.Context, tokenID TokenID, windowDays int, currency string) (TokenSeries, error)
}

// LedgerDataSource fetches native-value transfers touching an address.
type LedgerDataSource interface {
	FetchTransactions(ctx context.Context, address string) ([]Transaction, error)
}

// SeriesStore is the backing map of the Series Cache.
type SeriesStore interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key SeriesKey) (TokenSeries, bool, error)
	Put(ctx context.Context, key SeriesKey, series TokenSeries) error
}

// ReportKind names a report document type.
type ReportKind string

const (
	ReportTokenHealth     ReportKind = "token_health"
	ReportSustainability  ReportKind = "sustainability"
	ReportWalletActivity  ReportKind = "wallet_activity"
	ReportTaxDistribution ReportKind = "tax_distribution"
	ReportEcosystem       ReportKind = "ecosystem"
	ReportHealthCheck     ReportKind = "health_check"
	ReportRelationships   ReportKind = "relationships"
)

// Report is a serializable document handed to a ReportSink.
type Report struct {
	RunID   string
	Kind    ReportKind
	Subject string
	Body    any
}

// ReportSink persists a report. The returned location is sink specific
// (a file path, a table row id).
type ReportSink interface {
	Write(ctx context.Context, report Report) (string, error)
}

// Severity of an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertKind classifies an alert.
type AlertKind string

const (
	AlertVolumeAnomaly    AlertKind = "volume_anomaly"
	AlertUnsustainable    AlertKind = "unsustainable_yield"
	AlertLargeTransaction AlertKind = "large_transaction"
)

// Alert is a classified event for the Observability Sink.
type Alert struct {
	Kind     AlertKind         `json:"kind"`
	Severity Severity          `json:"severity"`
	Subject  string            `json:"subject"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	At       time.Time         `json:"at"`
}

// AlertSink consumes classified alerts.
type AlertSink interface {
	Notify(ctx context.Context, alert Alert) error
}
