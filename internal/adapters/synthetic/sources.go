// Package synthetic provides deterministic in-memory market and ledger
// sources. The same token id or address always yields the same data, which
// makes offline runs reproducible.
package synthetic

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

// Market is a MarketDataSource backed by seeded random walks.
type Market struct {
	anchor time.Time

	mu        sync.RWMutex
	overrides map[domain.TokenID]domain.TokenSeries
	failing   map[domain.TokenID]bool
	calls     atomic.Int64
}

// NewMarket generates series ending at anchor.
func NewMarket(anchor time.Time) *Market {
	return &Market{
		anchor:    anchor.UTC().Truncate(24 * time.Hour),
		overrides: make(map[domain.TokenID]domain.TokenSeries),
		failing:   make(map[domain.TokenID]bool),
	}
}

var _ domain.MarketDataSource = (*Market)(nil)

// Set pins the series returned for id.
func (m *Market) Set(id domain.TokenID, series domain.TokenSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[id] = series
}

// Fail makes every fetch of id return ErrNoData.
func (m *Market) Fail(id domain.TokenID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[id] = true
}

// Calls is the number of FetchSeries invocations so far.
func (m *Market) Calls() int { return int(m.calls.Load()) }

func (m *Market) FetchSeries(ctx context.Context, id domain.TokenID, windowDays int, currency string) (domain.TokenSeries, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrNoData)
	}

	m.mu.RLock()
	series, pinned := m.overrides[id]
	failing := m.failing[id]
	m.mu.RUnlock()

	if failing {
		return nil, fmt.Errorf("synthetic market %s: %w", id, domain.ErrNoData)
	}
	if pinned {
		out := make(domain.TokenSeries, len(series))
		copy(out, series)
		return out, nil
	}
	return m.generate(id, windowDays, currency), nil
}

func (m *Market) generate(id domain.TokenID, windowDays int, currency string) domain.TokenSeries {
	rng := seeded(string(id), currency)

	price := 0.0005 + rng.Float64()*0.5
	baseVolume := 1e4 + rng.Float64()*1e6
	start := m.anchor.AddDate(0, 0, -windowDays)

	series := make(domain.TokenSeries, 0, windowDays+1)
	for d := 0; d <= windowDays; d++ {
		price *= 1 + (rng.Float64()-0.5)*0.1
		volume := baseVolume * (0.7 + rng.Float64()*0.6)
		series = append(series, domain.TimeSeriesPoint{
			Timestamp: start.AddDate(0, 0, d),
			Price:     price,
			Volume:    volume,
		})
	}

	// Some tokens end the window on a drop or a spike.
	switch rng.IntN(5) {
	case 0:
		series[len(series)-1].Volume = baseVolume * 0.2
	case 1:
		series[len(series)-1].Volume = baseVolume * 3
	}
	return series
}

// Ledger is a LedgerDataSource producing seeded transfer histories.
type Ledger struct {
	anchor time.Time

	mu        sync.RWMutex
	overrides map[string][]domain.Transaction
	failing   map[string]bool
	calls     atomic.Int64
}

func NewLedger(anchor time.Time) *Ledger {
	return &Ledger{
		anchor:    anchor.UTC(),
		overrides: make(map[string][]domain.Transaction),
		failing:   make(map[string]bool),
	}
}

var _ domain.LedgerDataSource = (*Ledger)(nil)

func (l *Ledger) Set(address string, txs []domain.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[strings.ToLower(address)] = txs
}

func (l *Ledger) Fail(address string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failing[strings.ToLower(address)] = true
}

func (l *Ledger) Calls() int { return int(l.calls.Load()) }

func (l *Ledger) FetchTransactions(ctx context.Context, address string) ([]domain.Transaction, error) {
	l.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrNoData)
	}
	key := strings.ToLower(address)

	l.mu.RLock()
	txs, pinned := l.overrides[key]
	failing := l.failing[key]
	l.mu.RUnlock()

	if failing {
		return nil, fmt.Errorf("synthetic ledger %s: %w", address, domain.ErrNoData)
	}
	if pinned {
		out := make([]domain.Transaction, len(txs))
		copy(out, txs)
		return out, nil
	}
	return l.generate(address), nil
}

func (l *Ledger) generate(address string) []domain.Transaction {
	rng := seeded(strings.ToLower(address))
	subject := common.HexToAddress(address).Hex()

	n := 5 + rng.IntN(36)
	txs := make([]domain.Transaction, 0, n)
	for i := 0; i < n; i++ {
		counterparty := common.BytesToAddress(crypto.Keccak256([]byte(fmt.Sprintf("%s/%d/peer", subject, i)))).Hex()
		from, to := counterparty, subject
		if rng.IntN(3) == 0 {
			from, to = subject, counterparty
		}
		// Mostly dust, occasionally above the default large-transfer threshold.
		amount := rng.Float64() * 0.04
		if rng.IntN(8) == 0 {
			amount = 0.05 + rng.Float64()*2
		}
		ts := l.anchor.Add(-time.Duration(rng.IntN(14*24*60)) * time.Minute)
		hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s/%d", subject, i))).Hex()
		wei := decimal.NewFromFloat(amount).Shift(18).Truncate(0).BigInt()

		txs = append(txs, domain.NewTransaction(hash, wei, from, to, ts))
	}
	return txs
}

func seeded(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
