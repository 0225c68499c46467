package domain

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TokenID identifies a token in the ecosystem registry (CoinGecko id style).
type TokenID string

// TimeSeriesPoint is a single price/volume sample.
type TimeSeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
}

// TokenSeries is ordered oldest-first.
type TokenSeries []TimeSeriesPoint

// Validate reports ErrNoData for an empty series and ErrInvalidSeries when
// timestamps are not ascending.
func (s TokenSeries) Validate() error {
	if len(s) == 0 {
		return ErrNoData
	}
	for i := 1; i < len(s); i++ {
		if s[i].Timestamp.Before(s[i-1].Timestamp) {
			return ErrInvalidSeries
		}
	}
	return nil
}

// SeriesKey is the Series Cache key.
type SeriesKey struct {
	TokenID    TokenID
	WindowDays int
	Currency   string
}

// Direction of a transfer relative to a subject wallet.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// weiExponent is the decimals shift applied to raw on-chain values.
const weiExponent = -18

// Transaction is a native-value transfer as reported by the Ledger Data Source.
type Transaction struct {
	Hash            string    `json:"hash"`
	Value           *big.Int  `json:"value"`
	ValueNormalized float64   `json:"value_normalized"`
	From            string    `json:"from_address"`
	To              string    `json:"to_address"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewTransaction builds a Transaction, deriving the normalized value from the
// raw integer amount.
func NewTransaction(hash string, value *big.Int, from, to string, ts time.Time) Transaction {
	if value == nil {
		value = new(big.Int)
	}
	return Transaction{
		Hash:            hash,
		Value:           value,
		ValueNormalized: NormalizeValue(value),
		From:            from,
		To:              to,
		Timestamp:       ts.UTC(),
	}
}

// NormalizeValue converts raw units (10^-18) to whole units.
func NormalizeValue(raw *big.Int) float64 {
	if raw == nil {
		return 0
	}
	return decimal.NewFromBigInt(raw, weiExponent).InexactFloat64()
}

// IsIncomingFor reports whether the transfer lands in subject.
func (t Transaction) IsIncomingFor(subject string) bool {
	return strings.EqualFold(t.To, subject)
}

// IsOutgoingFor reports whether the transfer leaves subject.
func (t Transaction) IsOutgoingFor(subject string) bool {
	return strings.EqualFold(t.From, subject)
}

// DirectionFor tags a transfer: outgoing when sent by subject, incoming otherwise.
func (t Transaction) DirectionFor(subject string) Direction {
	if t.IsOutgoingFor(subject) {
		return DirectionOutgoing
	}
	return DirectionIncoming
}

// VolumeHealth classifies the latest volume against the window average.
type VolumeHealth string

const (
	VolumeNormal       VolumeHealth = "Normal"
	VolumeDrop         VolumeHealth = "VolumeDrop"
	VolumeHighActivity VolumeHealth = "HighActivity"
)

// TokenHealthReport is produced once per token per evaluation run.
type TokenHealthReport struct {
	TokenID            TokenID      `json:"token_id"`
	CurrentPrice       float64      `json:"current_price"`
	AvgPrice           float64      `json:"avg_price"`
	PriceChangePct     float64      `json:"price_change_pct"`
	PriceVolatilityPct float64      `json:"price_volatility_pct"`
	CurrentVolume      float64      `json:"current_volume"`
	AvgVolume          float64      `json:"avg_volume"`
	VolumeChangePct    float64      `json:"volume_change_pct"`
	VolumeHealth       VolumeHealth `json:"volume_health"`
	Timestamp          time.Time    `json:"timestamp"`
}

// Ratio is a float64 whose +/-Inf values survive JSON encoding as strings.
type Ratio float64

func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(f)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "Infinity":
			*r = Ratio(math.Inf(1))
		case "-Infinity":
			*r = Ratio(math.Inf(-1))
		default:
			*r = Ratio(math.NaN())
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// IsFinite is false for +/-Inf and NaN.
func (r Ratio) IsFinite() bool {
	f := float64(r)
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// SustainabilityInput holds the five model inputs plus provenance of the
// supply value.
type SustainabilityInput struct {
	TokenID          TokenID
	DailyVolume      float64
	TaxRate          float64
	TotalSupplyValue float64
	DailyROI         float64
	SupplyEstimated  bool
}

type SustainabilityReport struct {
	TokenID             TokenID   `json:"token_id"`
	DailyVolume         float64   `json:"daily_volume"`
	TaxRate             float64   `json:"tax_rate"`
	DailyTaxRevenue     float64   `json:"daily_tax_revenue"`
	TotalSupplyValue    float64   `json:"total_supply_value"`
	SupplyEstimated     bool      `json:"supply_estimated"`
	DailyROI            float64   `json:"daily_roi"`
	RequiredPayouts     float64   `json:"required_payouts"`
	SustainabilityRatio Ratio     `json:"sustainability_ratio"`
	IsSustainable       bool      `json:"is_sustainable"`
	Timestamp           time.Time `json:"timestamp"`
}

// HealthStatus is the three-level verdict shared by tokens and the ecosystem.
type HealthStatus string

const (
	StatusCritical HealthStatus = "Critical"
	StatusWarning  HealthStatus = "Warning"
	StatusHealthy  HealthStatus = "Healthy"
)

const (
	CriticalRatioThreshold = 1.0
	WarningRatioThreshold  = 1.5
)

// ClassifyRatio maps a sustainability ratio (or score) onto a HealthStatus.
func ClassifyRatio(ratio float64) HealthStatus {
	switch {
	case ratio < CriticalRatioThreshold:
		return StatusCritical
	case ratio < WarningRatioThreshold:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// WalletRef names the subject of a wallet check. Name is empty for raw addresses.
type WalletRef struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// Identifier is the name when known, otherwise the address.
func (w WalletRef) Identifier() string {
	if w.Name != "" {
		return w.Name
	}
	return w.Address
}

// FlaggedTransaction is a large transfer tagged with its direction.
type FlaggedTransaction struct {
	Transaction
	Direction Direction `json:"direction"`
}

type WalletActivitySummary struct {
	Wallet            string               `json:"wallet_identifier"`
	Address           string               `json:"address"`
	NoActivity        bool                 `json:"no_activity"`
	TotalCount        int                  `json:"total_transaction_count"`
	IncomingCount     int                  `json:"incoming_count"`
	OutgoingCount     int                  `json:"outgoing_count"`
	LargeCount        int                  `json:"large_transaction_count"`
	LargeThreshold    float64              `json:"large_transaction_threshold"`
	LatestTransaction *Transaction         `json:"latest_transaction,omitempty"`
	LargeTransactions []FlaggedTransaction `json:"large_transactions"`
}

// ProjectWalletActivity pairs a project wallet with its fetched history.
type ProjectWalletActivity struct {
	Wallet       WalletRef
	Transactions []Transaction
}

// DailyCollection is the tax collected by a wallet on one UTC date.
type DailyCollection struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type WalletTaxCollection struct {
	Address            string            `json:"address"`
	TotalCollected     float64           `json:"total_collected"`
	AvgDailyCollection float64           `json:"avg_daily_collection"`
	ActiveDays         int               `json:"active_days"`
	Last7Days          []DailyCollection `json:"last_7_days"`
}

type TaxDistributionReport struct {
	TokenID      TokenID                        `json:"token_id"`
	TaxRate      float64                        `json:"tax_rate"`
	Distribution map[string]WalletTaxCollection `json:"distribution"`
	Timestamp    time.Time                      `json:"timestamp"`
}

// TokenEvaluation is one successfully evaluated token handed to the aggregator.
type TokenEvaluation struct {
	Health         *TokenHealthReport
	Sustainability *SustainabilityReport
}

type EcosystemHealth struct {
	Tokens                map[TokenID]TokenHealthReport    `json:"tokens"`
	Sustainability        map[TokenID]SustainabilityReport `json:"sustainability"`
	TotalVolume           float64                          `json:"total_volume"`
	AvgPriceChange        float64                          `json:"avg_price_change"`
	SustainabilityScore   float64                          `json:"sustainability_score"`
	ScoredTokens          int                              `json:"scored_tokens"`
	HealthStatus          HealthStatus                     `json:"health_status"`
	EstimatedSupplyTokens int                              `json:"estimated_supply_tokens"`
	EstimationNote        string                           `json:"estimation_note,omitempty"`
	Timestamp             time.Time                        `json:"timestamp"`
}

// TokenAnalysis is the single-token CLI result.
type TokenAnalysis struct {
	Health         *TokenHealthReport    `json:"health"`
	Sustainability *SustainabilityReport `json:"sustainability,omitempty"`
}

// HealthCheckReport is the full monitoring-run document.
type HealthCheckReport struct {
	RunID           string                            `json:"run_id"`
	Timestamp       time.Time                         `json:"timestamp"`
	Tokens          map[TokenID]TokenHealthReport     `json:"tokens"`
	Wallets         map[string]WalletActivitySummary  `json:"wallets"`
	TaxDistribution map[TokenID]TaxDistributionReport `json:"tax_distribution"`
	Ecosystem       *EcosystemHealth                  `json:"ecosystem"`
}

// RewardLink records that Token pays its holders in some reward asset.
type RewardLink struct {
	Token TokenID `json:"token"`
	Name  string  `json:"name"`
}

// Relationship lists the registry tokens that reward holders with Asset.
type Relationship struct {
	Asset      string       `json:"asset"`
	InRegistry bool         `json:"in_registry"`
	RewardedBy []RewardLink `json:"rewarded_by"`
}
